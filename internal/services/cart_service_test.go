package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/payments"
	kvstore "github.com/skillforge/api/internal/platform/localstore"
	localstoreRepo "github.com/skillforge/api/internal/repositories/localstore"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string      { return "repository error stub" }
func (e *repositoryErrorStub) IsNotFound() bool   { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool   { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

// memoryCartRepository keeps the latest cart per user, enough for multi-step
// service tests.
type memoryCartRepository struct {
	carts   map[string]domain.Cart
	saveErr error
}

func newMemoryCartRepository() *memoryCartRepository {
	return &memoryCartRepository{carts: make(map[string]domain.Cart)}
}

func (r *memoryCartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	cart, ok := r.carts[userID]
	if !ok {
		return domain.Cart{}, &repositoryErrorStub{notFound: true}
	}
	return cart, nil
}

func (r *memoryCartRepository) Save(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
	if r.saveErr != nil {
		return domain.Cart{}, r.saveErr
	}
	r.carts[cart.UserID] = cart
	return cart, nil
}

func (r *memoryCartRepository) Delete(ctx context.Context, userID string) error {
	delete(r.carts, userID)
	return nil
}

type stubCourseRepository struct {
	courses map[string]domain.Course
}

func (r *stubCourseRepository) List(ctx context.Context) ([]domain.Course, error) {
	out := make([]domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

func (r *stubCourseRepository) FindByID(ctx context.Context, courseID string) (domain.Course, error) {
	course, ok := r.courses[courseID]
	if !ok {
		return domain.Course{}, &repositoryErrorStub{notFound: true}
	}
	return course, nil
}

type stubCouponRepository struct {
	coupons map[string]domain.Coupon
}

func (r *stubCouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	coupon, ok := r.coupons[code]
	if !ok {
		return domain.Coupon{}, &repositoryErrorStub{notFound: true}
	}
	return coupon, nil
}

type stubOrderRepository struct {
	inserted  []domain.Order
	insertErr error
}

func (r *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, order)
	return nil
}

func (r *stubOrderRepository) FindByID(ctx context.Context, userID, orderID string) (domain.Order, error) {
	for _, order := range r.inserted {
		if order.UserID == userID && order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, &repositoryErrorStub{notFound: true}
}

func (r *stubOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range r.inserted {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

type stubCharger struct {
	lastReq payments.ChargeRequest
	err     error
}

func (c *stubCharger) Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	c.lastReq = req
	if c.err != nil {
		return payments.ChargeResult{}, c.err
	}
	return payments.ChargeResult{
		Provider:  "simulated",
		Reference: "pay_test",
		Status:    payments.StatusSucceeded,
		Amount:    req.Amount,
		Currency:  req.Currency,
	}, nil
}

func testCatalog() *stubCourseRepository {
	return &stubCourseRepository{courses: map[string]domain.Course{
		"course-1": {ID: "course-1", Title: "Course One", Instructor: "A", Price: 5000, OriginalPrice: 10000},
		"course-2": {ID: "course-2", Title: "Course Two", Instructor: "B", Price: 7000},
		"course-3": {ID: "course-3", Title: "Course Three", Instructor: "C", Price: 1000},
	}}
}

func testCoupons() *stubCouponRepository {
	return &stubCouponRepository{coupons: map[string]domain.Coupon{
		"SAVE20": {Code: "SAVE20", Type: domain.DiscountTypeFixed, Value: 2000, MinAmount: 10000, Active: true},
		"HALF":   {Code: "HALF", Type: domain.DiscountTypePercentage, Value: 50, MaxDiscount: 5000, Active: true},
		"OLD":    {Code: "OLD", Type: domain.DiscountTypeFixed, Value: 500, Active: false},
	}}
}

func newTestCartService(t *testing.T, repo *memoryCartRepository, orders *stubOrderRepository, charger *stubCharger) CartService {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seq := 0
	service, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Courses:    testCatalog(),
		Coupons:    testCoupons(),
		Orders:     orders,
		Payments:   charger,
		Clock:      func() time.Time { return now },
		Currency:   "usd",
		IDGenerator: func() string {
			seq++
			return "order-" + string(rune('0'+seq))
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func TestCartServiceAddItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, totals, err := service.AddItem(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line item, got %d", len(cart.Items))
	}
	if totals.Subtotal != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", totals.Subtotal)
	}
	if totals.Discount != 5000 {
		t.Fatalf("expected markdown discount 5000, got %d", totals.Discount)
	}
}

func TestCartServiceAddItemUnknownCourse(t *testing.T) {
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	_, _, err := service.AddItem(context.Background(), "user-1", "course-404")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCartServiceRemoveItemAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, _, err := service.RemoveItem(ctx, "user-1", "course-404")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected cart unchanged, got %d items", len(cart.Items))
	}
}

func TestCartServiceApplyFixedCouponTotals(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	// 5000 + 7000 = 12000, above SAVE20's 10000 minimum.
	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, totals, err := service.ApplyCoupon(ctx, "user-1", " save20 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon == nil || cart.Coupon.Code != "SAVE20" {
		t.Fatalf("expected SAVE20 applied, got %+v", cart.Coupon)
	}
	if cart.Coupon.Amount != 2000 {
		t.Fatalf("expected frozen amount 2000, got %d", cart.Coupon.Amount)
	}
	if totals.Total != 10000 {
		t.Fatalf("expected total 10000, got %d", totals.Total)
	}
	if totals.Savings != totals.Discount+2000 {
		t.Fatalf("expected savings to include coupon, got %+v", totals)
	}
}

func TestCartServiceApplyPercentageCouponRespectsCap(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	// 50% of 12000 is 6000, capped at 5000.
	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, totals, err := service.ApplyCoupon(ctx, "user-1", "HALF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon.Amount != 5000 {
		t.Fatalf("expected capped amount 5000, got %d", cart.Coupon.Amount)
	}
	if totals.Total != 7000 {
		t.Fatalf("expected total 7000, got %d", totals.Total)
	}
}

func TestCartServiceApplyCouponBelowMinimumLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := service.ApplyCoupon(ctx, "user-1", "SAVE20")
	if !errors.Is(err, ErrCouponBelowMinimum) {
		t.Fatalf("expected ErrCouponBelowMinimum, got %v", err)
	}

	cart, _, err := service.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("expected no coupon on cart, got %+v", cart.Coupon)
	}
}

func TestCartServiceApplyCouponInactive(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := service.ApplyCoupon(ctx, "user-1", "OLD")
	if !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("expected ErrCouponInactive, got %v", err)
	}
}

func TestCartServiceApplyCouponUnknownCode(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := service.ApplyCoupon(ctx, "user-1", "NOPE")
	if !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestCartServiceFrozenCouponClampsTotalAtZero(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	// Apply SAVE20 against a 12000 subtotal, then shrink the cart to 7000.
	// The frozen 2000 still applies; shrink further below the frozen amount
	// and the total clamps at zero rather than going negative.
	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.ApplyCoupon(ctx, "user-1", "SAVE20"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, totals, err := service.RemoveItem(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon == nil || cart.Coupon.Amount != 2000 {
		t.Fatalf("expected frozen coupon amount 2000, got %+v", cart.Coupon)
	}
	if totals.Total != 5000 {
		t.Fatalf("expected total 5000, got %d", totals.Total)
	}

	if _, _, err := service.RemoveItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, totals, err = service.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.Subtotal != 1000 || totals.CouponDiscount != 2000 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.Total != 0 {
		t.Fatalf("expected total clamped at zero, got %d", totals.Total)
	}
}

func TestCartServiceRemoveCoupon(t *testing.T) {
	ctx := context.Background()
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.ApplyCoupon(ctx, "user-1", "SAVE20"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, totals, err := service.RemoveCoupon(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("expected coupon cleared, got %+v", cart.Coupon)
	}
	if totals.Total != 12000 {
		t.Fatalf("expected total 12000, got %d", totals.Total)
	}
}

func TestCartServiceCreateOrderSnapshotsAndClears(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryCartRepository()
	orders := &stubOrderRepository{}
	charger := &stubCharger{}
	service := newTestCartService(t, repo, orders, charger)

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.AddItem(ctx, "user-1", "course-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := service.ApplyCoupon(ctx, "user-1", "SAVE20"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := service.CreateOrder(ctx, CreateOrderCommand{
		UserID: "user-1",
		Billing: BillingAddress{
			Name: "Pat Doe", Line1: "1 Main St", City: "Springfield",
			PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed order, got %q", order.Status)
	}
	if order.OrderNumber == "" || order.PaymentRef != "pay_test" {
		t.Fatalf("expected order number and payment ref, got %+v", order)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected two snapshotted items, got %d", len(order.Items))
	}
	if order.Totals.Total != 10000 {
		t.Fatalf("expected pre-clear total 10000, got %d", order.Totals.Total)
	}
	if order.Coupon == nil || order.Coupon.Code != "SAVE20" {
		t.Fatalf("expected coupon snapshot, got %+v", order.Coupon)
	}
	if charger.lastReq.Amount != 10000 || charger.lastReq.Currency != "USD" {
		t.Fatalf("unexpected charge request %+v", charger.lastReq)
	}

	cart, totals, err := service.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 0 || cart.Coupon != nil || totals.Total != 0 {
		t.Fatalf("expected cleared cart, got %+v totals %+v", cart, totals)
	}

	if len(orders.inserted) != 1 {
		t.Fatalf("expected one stored order, got %d", len(orders.inserted))
	}
}

func TestCartServiceCreateOrderEmptyCart(t *testing.T) {
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	_, err := service.CreateOrder(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Billing: BillingAddress{
			Name: "Pat Doe", Line1: "1 Main St", City: "Springfield",
			PostalCode: "12345", Country: "US",
		},
	})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
}

func TestCartServiceCreateOrderPaymentFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryCartRepository()
	charger := &stubCharger{err: payments.ErrChargeDeclined}
	service := newTestCartService(t, repo, &stubOrderRepository{}, charger)

	if _, _, err := service.AddItem(ctx, "user-1", "course-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.CreateOrder(ctx, CreateOrderCommand{
		UserID: "user-1",
		Billing: BillingAddress{
			Name: "Pat Doe", Line1: "1 Main St", City: "Springfield",
			PostalCode: "12345", Country: "US",
		},
	})
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	cart, _, err := service.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected cart untouched after failed payment, got %d items", len(cart.Items))
	}
}

func TestCartServiceCreateOrderMissingBilling(t *testing.T) {
	service := newTestCartService(t, newMemoryCartRepository(), &stubOrderRepository{}, &stubCharger{})

	_, err := service.CreateOrder(context.Background(), CreateOrderCommand{
		UserID:  "user-1",
		Billing: BillingAddress{Name: "Pat Doe"},
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

// Runs the service over the disk-backed repository the binary wires in,
// covering both the create path for a user with no stored cart and the
// timestamp-checked replace path for follow-up writes.
func TestCartServicePersistsThroughLocalStore(t *testing.T) {
	ctx := context.Background()

	store, err := kvstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	repo, err := localstoreRepo.NewCartRepository(store)
	if err != nil {
		t.Fatalf("unexpected error constructing repository: %v", err)
	}

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	service, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Courses:    testCatalog(),
		Coupons:    testCoupons(),
		Orders:     &stubOrderRepository{},
		Payments:   &stubCharger{},
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, _, err := service.AddItem(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("first add on a fresh cart: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(cart.Items))
	}

	cart, totals, err := service.AddItem(ctx, "user-1", "course-2")
	if err != nil {
		t.Fatalf("second add on a stored cart: %v", err)
	}
	if len(cart.Items) != 2 || totals.Subtotal != 12000 {
		t.Fatalf("expected two items with subtotal 12000, got %d items subtotal %d", len(cart.Items), totals.Subtotal)
	}

	if _, _, err := service.ApplyCoupon(ctx, "user-1", "SAVE20"); err != nil {
		t.Fatalf("coupon on a stored cart: %v", err)
	}

	stored, err := repo.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error reading stored cart: %v", err)
	}
	if len(stored.Items) != 2 || stored.Coupon == nil || stored.Coupon.Code != "SAVE20" {
		t.Fatalf("expected persisted cart with coupon, got %+v", stored)
	}
}
