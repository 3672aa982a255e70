package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/payments"
	"github.com/skillforge/api/internal/platform/auth"
	"github.com/skillforge/api/internal/repositories"
	"github.com/skillforge/api/internal/repositories/memory"
	"github.com/skillforge/api/internal/services"
)

type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]domain.Cart)}
}

func (r *memCartRepo) Get(_ context.Context, userID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return domain.Cart{}, repositories.NewNotFound("cart", nil)
	}
	return cart, nil
}

func (r *memCartRepo) Save(_ context.Context, cart domain.Cart, _ *time.Time) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.UserID] = cart
	return cart, nil
}

func (r *memCartRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string][]domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string][]domain.Order)}
}

func (r *memOrderRepo) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.UserID] = append(r.orders[order.UserID], order)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, userID, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders[userID] {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, repositories.NewNotFound("order", nil)
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, len(r.orders[userID]))
	copy(out, r.orders[userID])
	return out, nil
}

type memDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]domain.WizardDraft
}

func newMemDraftRepo() *memDraftRepo {
	return &memDraftRepo{drafts: make(map[string]domain.WizardDraft)}
}

func (r *memDraftRepo) Save(_ context.Context, userID, courseKey string, draft domain.WizardDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[userID+"/"+courseKey] = draft
	return nil
}

func (r *memDraftRepo) Load(_ context.Context, userID, courseKey string) (domain.WizardDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[userID+"/"+courseKey]
	if !ok {
		return domain.WizardDraft{}, repositories.NewNotFound("draft", nil)
	}
	return draft, nil
}

func (r *memDraftRepo) Delete(_ context.Context, userID, courseKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, userID+"/"+courseKey)
	return nil
}

type memPlayerRepo struct {
	mu     sync.Mutex
	states map[string]domain.PlayerState
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{states: make(map[string]domain.PlayerState)}
}

func (r *memPlayerRepo) Save(_ context.Context, userID string, state domain.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID+"/"+state.CourseID] = state
	return nil
}

func (r *memPlayerRepo) Load(_ context.Context, userID, courseID string) (domain.PlayerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID+"/"+courseID]
	if !ok {
		return domain.PlayerState{}, repositories.NewNotFound("player state", nil)
	}
	return state, nil
}

// newTestServer wires the real services over in-memory repositories and the
// seeded catalog, mirroring the production composition.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	clock := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	sessions, err := auth.NewSessionManager("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	authn := auth.NewAuthenticator(sessions)

	authService, err := services.NewAuthService(services.AuthServiceDeps{
		Sessions: sessions,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	courseRepo := memory.NewCourseRepository(nil)
	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{Repository: courseRepo})
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	searches, err := services.NewSearchCoordinator(services.SearchCoordinatorDeps{Catalog: catalogService})
	if err != nil {
		t.Fatalf("search coordinator: %v", err)
	}

	provider := payments.NewSimulatedProvider(payments.SimulatedProviderConfig{})
	manager, err := payments.NewManager(map[string]payments.Provider{"simulated": provider})
	if err != nil {
		t.Fatalf("payment manager: %v", err)
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: newMemCartRepo(),
		Courses:    courseRepo,
		Coupons:    memory.NewCouponRepository(nil),
		Orders:     newMemOrderRepo(),
		Payments:   manager,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	wizardService, err := services.NewWizardService(services.WizardServiceDeps{
		Drafts: newMemDraftRepo(),
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("wizard service: %v", err)
	}

	playerService, err := services.NewPlayerService(services.PlayerServiceDeps{
		Repository: newMemPlayerRepo(),
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("player service: %v", err)
	}

	cartHandlers := NewCartHandlers(authn, cartService)
	router := NewRouter(
		WithAuthRoutes(NewAuthHandlers(authService).Routes),
		WithCatalogRoutes(NewCatalogHandlers(catalogService, searches).Routes),
		WithCartRoutes(cartHandlers.Routes),
		WithOrderRoutes(cartHandlers.OrderRoutes),
		WithWizardRoutes(NewWizardHandlers(authn, wizardService).Routes),
		WithPlayerRoutes(NewPlayerHandlers(authn, playerService).Routes),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, buf.Bytes()
}

func loginAs(t *testing.T, baseURL, email string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode login envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("login failed: %s", env.Message)
	}
	var session sessionPayload
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token")
	}
	return session.Token
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/readyz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d", resp.StatusCode)
	}
}

func TestRouterNotImplementedGroup(t *testing.T) {
	router := NewRouter()
	server := httptest.NewServer(router)
	defer server.Close()

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/catalog", "", nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestLoginFailureStaysInEnvelope(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    "not-an-email",
		"password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Fatal("expected success=false for a malformed email")
	}
	if env.Message == "" {
		t.Fatal("expected a user-facing message")
	}
}

func TestCartRequiresSession(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/cart", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCatalogSearchOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/v1/catalog?category=Design&sort=price-high-low", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var page catalogPagePayload
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2 Design courses", page.TotalCount)
	}
	if len(page.Courses) != 2 || page.Courses[0].Price < page.Courses[1].Price {
		t.Fatalf("expected Design courses priced high to low, got %+v", page.Courses)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/catalog?sort=bogus", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown sort status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/catalog/does-not-exist", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing course status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmittedSearchPublishesSnapshot(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/catalog/search", "", map[string]any{
		"q": "typescript",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit search status = %d, body %s", resp.StatusCode, body)
	}
	var snapshot searchSnapshotPayload
	if err := json.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Superseded {
		t.Fatal("a lone submission must not be superseded")
	}
	if snapshot.Page.TotalCount != 1 {
		t.Fatalf("TotalCount = %d, want the one TypeScript course", snapshot.Page.TotalCount)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/catalog/search/latest", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest search status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("decode latest snapshot: %v", err)
	}
	if snapshot.Page.TotalCount != 1 {
		t.Fatalf("latest TotalCount = %d, want 1", snapshot.Page.TotalCount)
	}
}

func TestCartCheckoutFlow(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server.URL, "buyer@example.com")

	// Two Data Science courses, subtotal 26998.
	for _, courseID := range []string{"01J5K000000000000000000003", "01J5K00000000000000000000B"} {
		resp, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/cart/items", token, map[string]string{
			"courseId": courseID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add item status = %d, body %s", resp.StatusCode, body)
		}
	}

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/cart/coupon", token, map[string]string{
		"code": "learn50",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply coupon status = %d, body %s", resp.StatusCode, body)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode coupon envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("coupon apply failed: %s", env.Message)
	}
	var cart cartPayload
	if err := json.Unmarshal(env.Data, &cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if cart.Totals.CouponDiscount != 10000 {
		t.Fatalf("CouponDiscount = %d, want the 10000 cap", cart.Totals.CouponDiscount)
	}
	if cart.Totals.Total != 16998 {
		t.Fatalf("Total = %d, want 16998", cart.Totals.Total)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/v1/cart/checkout", token, map[string]any{
		"billing": map[string]string{
			"name":       "Ada Buyer",
			"line1":      "1 Main St",
			"city":       "Springfield",
			"postalCode": "12345",
			"country":    "US",
		},
		"paymentMethod": "simulated",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status = %d, body %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode checkout envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("checkout failed: %s", env.Message)
	}
	var order orderPayload
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Fatalf("OrderNumber = %q", order.OrderNumber)
	}
	if order.Totals.Total != 16998 {
		t.Fatalf("order Total = %d, want 16998", order.Totals.Total)
	}

	// Checkout clears the cart.
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/cart", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get cart status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected an empty cart after checkout, got %d items", len(cart.Items))
	}

	// The order is listed and fetchable.
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/orders", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list orders status = %d", resp.StatusCode)
	}
	var orderList struct {
		Orders []orderPayload `json:"orders"`
	}
	if err := json.Unmarshal(body, &orderList); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(orderList.Orders) != 1 || orderList.Orders[0].ID != order.ID {
		t.Fatalf("unexpected order list %+v", orderList.Orders)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/orders/"+order.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get order status = %d", resp.StatusCode)
	}
}

func TestCouponFailureStaysInEnvelope(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server.URL, "buyer@example.com")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/cart/coupon", token, map[string]string{
		"code": "NOSUCHCODE",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Fatal("expected success=false for an unknown code")
	}
}

func TestWizardAuthoringFlow(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server.URL, "author@example.com")
	base := server.URL + "/api/v1/wizard/new-course"

	resp, body := doJSON(t, http.MethodPut, base+"/basics", token, map[string]any{
		"title":    "Practical Go",
		"subtitle": "Services that ship",
		"category": "Development",
		"level":    "intermediate",
		"tags":     []string{"go", "backend"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update basics status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/sections", token, map[string]string{"title": "Getting Started"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add section status = %d, body %s", resp.StatusCode, body)
	}
	var state wizardStatePayload
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Data.Sections) != 1 {
		t.Fatalf("expected one section, got %+v", state.Data.Sections)
	}
	sectionID := state.Data.Sections[0].ID

	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/sections/%s/lectures", base, sectionID), token, map[string]string{
		"title": "Installing the toolchain",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add lecture status = %d, body %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.Dirty {
		t.Fatal("expected the session to be dirty after edits")
	}

	// Forward past an incomplete step is blocked.
	resp, _ = doJSON(t, http.MethodPost, base+"/step", token, map[string]int{"step": 3})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("step jump status = %d, want 422", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/draft", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save draft status = %d, body %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Dirty {
		t.Fatal("expected a clean session after saving the draft")
	}

	req, err := http.NewRequest(http.MethodGet, base+"/export", nil)
	if err != nil {
		t.Fatalf("build export request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	exportResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer exportResp.Body.Close()
	if exportResp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", exportResp.StatusCode)
	}
	if got := exportResp.Header.Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("Content-Disposition = %q", got)
	}

	resp, _ = doJSON(t, http.MethodDelete, base+"/draft", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("discard draft status = %d, want 204", resp.StatusCode)
	}
}

func TestPlayerStateOverHTTP(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server.URL, "viewer@example.com")
	base := server.URL + "/api/v1/player/01J5K000000000000000000001"

	resp, body := doJSON(t, http.MethodPut, base+"/bookmark", token, map[string]int{"atSeconds": 90})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bookmark status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/notes", token, map[string]any{
		"atSeconds": 120,
		"text":      "interfaces start here",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add note status = %d, body %s", resp.StatusCode, body)
	}
	var state playerStatePayload
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.BookmarkSeconds != 90 || len(state.Notes) != 1 {
		t.Fatalf("unexpected state %+v", state)
	}

	resp, body = doJSON(t, http.MethodDelete, base+"/notes/"+state.Notes[0].ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete note status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Notes) != 0 {
		t.Fatalf("expected no notes after delete, got %+v", state.Notes)
	}
}
