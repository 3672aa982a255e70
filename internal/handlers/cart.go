package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/api/internal/platform/auth"
	"github.com/skillforge/api/internal/platform/httpx"
	"github.com/skillforge/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers enforcing session authentication before invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Delete("/items/{courseID}", h.removeItem)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
	r.Post("/checkout", h.checkout)
}

// OrderRoutes wires the /orders endpoints onto the provided router.
func (h *CartHandlers) OrderRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

type cartItemPayload struct {
	CourseID      string    `json:"courseId"`
	Title         string    `json:"title"`
	Instructor    string    `json:"instructor,omitempty"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	Price         int64     `json:"price"`
	OriginalPrice int64     `json:"originalPrice,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

type appliedCouponPayload struct {
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	Value     int64     `json:"value"`
	Amount    int64     `json:"amount"`
	AppliedAt time.Time `json:"appliedAt"`
}

type totalsPayload struct {
	Subtotal       int64 `json:"subtotal"`
	Discount       int64 `json:"discount"`
	CouponDiscount int64 `json:"couponDiscount"`
	Total          int64 `json:"total"`
	Savings        int64 `json:"savings"`
}

type cartPayload struct {
	Items     []cartItemPayload     `json:"items"`
	Coupon    *appliedCouponPayload `json:"coupon,omitempty"`
	Totals    totalsPayload         `json:"totals"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type billingPayload struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type orderPayload struct {
	ID            string                `json:"id"`
	OrderNumber   string                `json:"orderNumber"`
	Status        string                `json:"status"`
	Items         []cartItemPayload     `json:"items"`
	Totals        totalsPayload         `json:"totals"`
	Coupon        *appliedCouponPayload `json:"coupon,omitempty"`
	Billing       billingPayload        `json:"billing"`
	PaymentMethod string                `json:"paymentMethod,omitempty"`
	PaymentRef    string                `json:"paymentRef,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func buildCartPayload(cart services.Cart, totals services.CartTotals) cartPayload {
	payload := cartPayload{
		Items:     make([]cartItemPayload, len(cart.Items)),
		Totals:    buildTotalsPayload(totals),
		UpdatedAt: cart.UpdatedAt,
	}
	for i, item := range cart.Items {
		payload.Items[i] = buildCartItemPayload(item)
	}
	if cart.Coupon != nil {
		payload.Coupon = buildCouponPayload(cart.Coupon)
	}
	return payload
}

func buildCartItemPayload(item services.CartLineItem) cartItemPayload {
	return cartItemPayload{
		CourseID:      item.CourseID,
		Title:         item.Title,
		Instructor:    item.Instructor,
		ThumbnailURL:  item.ThumbnailURL,
		Price:         item.Price,
		OriginalPrice: item.OriginalPrice,
		AddedAt:       item.AddedAt,
	}
}

func buildCouponPayload(coupon *services.AppliedCoupon) *appliedCouponPayload {
	return &appliedCouponPayload{
		Code:      coupon.Code,
		Type:      string(coupon.Type),
		Value:     coupon.Value,
		Amount:    coupon.Amount,
		AppliedAt: coupon.AppliedAt,
	}
}

func buildTotalsPayload(totals services.CartTotals) totalsPayload {
	return totalsPayload{
		Subtotal:       totals.Subtotal,
		Discount:       totals.Discount,
		CouponDiscount: totals.CouponDiscount,
		Total:          totals.Total,
		Savings:        totals.Savings,
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Items:       make([]cartItemPayload, len(order.Items)),
		Totals:      buildTotalsPayload(order.Totals),
		Billing: billingPayload{
			Name:       order.Billing.Name,
			Line1:      order.Billing.Line1,
			Line2:      order.Billing.Line2,
			City:       order.Billing.City,
			State:      order.Billing.State,
			PostalCode: order.Billing.PostalCode,
			Country:    order.Billing.Country,
		},
		PaymentMethod: order.PaymentMethod,
		PaymentRef:    order.PaymentRef,
		CreatedAt:     order.CreatedAt,
	}
	for i, item := range order.Items {
		payload.Items[i] = buildCartItemPayload(item)
	}
	if order.Coupon != nil {
		payload.Coupon = buildCouponPayload(order.Coupon)
	}
	return payload
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, totals, err := h.carts.GetCart(ctx, identity.UserID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart, totals))
}

type addItemRequest struct {
	CourseID string `json:"courseId"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cart, totals, err := h.carts.AddItem(ctx, identity.UserID, req.CourseID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart, totals))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, totals, err := h.carts.RemoveItem(ctx, identity.UserID, chi.URLParam(r, "courseID"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart, totals))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// applyCoupon speaks the simulated-API envelope: coupon failures come back as
// success=false with a message and the cart untouched.
func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cart, totals, err := h.carts.ApplyCoupon(ctx, identity.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCouponNotFound):
			httpx.WriteFailure(w, "That coupon code does not exist")
		case errors.Is(err, services.ErrCouponInactive):
			httpx.WriteFailure(w, "That coupon is no longer active")
		case errors.Is(err, services.ErrCouponBelowMinimum):
			httpx.WriteFailure(w, "Your cart total does not meet the coupon minimum")
		case errors.Is(err, services.ErrCartInvalidInput):
			httpx.WriteFailure(w, "Enter a coupon code")
		default:
			h.writeCartError(w, r, err)
		}
		return
	}
	httpx.WriteResult(w, http.StatusOK, "Coupon applied", buildCartPayload(cart, totals))
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, totals, err := h.carts.RemoveCoupon(ctx, identity.UserID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart, totals))
}

type checkoutRequest struct {
	Billing       billingPayload `json:"billing"`
	PaymentMethod string         `json:"paymentMethod"`
}

// checkout also speaks the envelope; payment declines surface as
// success=false rather than HTTP errors.
func (h *CartHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.carts.CreateOrder(ctx, services.CreateOrderCommand{
		UserID: identity.UserID,
		Billing: services.BillingAddress{
			Name:       req.Billing.Name,
			Line1:      req.Billing.Line1,
			Line2:      req.Billing.Line2,
			City:       req.Billing.City,
			State:      req.Billing.State,
			PostalCode: req.Billing.PostalCode,
			Country:    req.Billing.Country,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCartEmpty):
			httpx.WriteFailure(w, "Your cart is empty")
		case errors.Is(err, services.ErrCartInvalidInput):
			httpx.WriteFailure(w, "Fill in the required billing fields")
		case errors.Is(err, services.ErrPaymentFailed):
			httpx.WriteFailure(w, "Payment could not be completed, please try again")
		default:
			h.writeCartError(w, r, err)
		}
		return
	}
	httpx.WriteResult(w, http.StatusCreated, "Order placed", buildOrderPayload(order))
}

func (h *CartHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orders, err := h.carts.ListOrders(ctx, identity.UserID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	payload := make([]orderPayload, len(orders))
	for i, order := range orders {
		payload[i] = buildOrderPayload(order)
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *CartHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.carts.GetOrder(ctx, identity.UserID, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCourseNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("course_not_found", "course not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart was modified concurrently, retry", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart is unavailable", http.StatusServiceUnavailable))
	}
}
