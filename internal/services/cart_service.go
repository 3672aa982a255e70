package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/payments"
	"github.com/skillforge/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart repository is required")
	errCourseFinderRequired   = errors.New("cart service: course repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartEmpty indicates checkout was attempted on a cart with no items.
var ErrCartEmpty = errors.New("cart service: cart is empty")

// ErrCourseNotFound indicates the referenced course is not in the catalog.
var ErrCourseNotFound = errors.New("cart service: course not found")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("cart service: order not found")

// ErrPaymentFailed indicates the payment provider declined or failed the charge.
var ErrPaymentFailed = errors.New("cart service: payment failed")

// Coupon failures are reported as a single message; the cart is left untouched.
var (
	ErrCouponNotFound     = errors.New("cart service: coupon not found")
	ErrCouponInactive     = errors.New("cart service: coupon is no longer active")
	ErrCouponBelowMinimum = errors.New("cart service: cart subtotal is below the coupon minimum")
)

// PaymentCharger is the slice of the payment manager the cart service needs.
type PaymentCharger interface {
	Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error)
}

// CartServiceDeps wires the repositories and payment dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Courses     repositories.CourseRepository
	Coupons     repositories.CouponRepository
	Orders      repositories.OrderRepository
	Payments    PaymentCharger
	Clock       func() time.Time
	Currency    string
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo     repositories.CartRepository
	courses  repositories.CourseRepository
	coupons  repositories.CouponRepository
	orders   repositories.OrderRepository
	payments PaymentCharger
	newID    func() string
	now      func() time.Time
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Courses == nil {
		return nil, errCourseFinderRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "USD"
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:     deps.Repository,
		courses:  deps.Courses,
		coupons:  deps.Coupons,
		orders:   deps.Orders,
		payments: deps.Payments,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		currency: currency,
		logger:   logger,
	}, nil
}

// ComputeTotals derives display totals from cart state. It is pure and runs on
// every read; totals are never stored back onto the cart. The coupon amount is
// the one frozen at apply time, so a cart mutated afterwards keeps the stale
// discount until the coupon is removed or reapplied, and the total clamps at
// zero when that frozen amount exceeds the subtotal.
func ComputeTotals(cart Cart) CartTotals {
	var totals CartTotals
	for _, item := range cart.Items {
		totals.Subtotal += item.Price
		if item.OriginalPrice > item.Price {
			totals.Discount += item.OriginalPrice - item.Price
		}
	}
	if cart.Coupon != nil {
		totals.CouponDiscount = cart.Coupon.Amount
	}
	totals.Total = totals.Subtotal - totals.CouponDiscount
	if totals.Total < 0 {
		totals.Total = 0
	}
	totals.Savings = totals.Discount + totals.CouponDiscount
	return totals
}

func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, CartTotals, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	return cart, ComputeTotals(cart), nil
}

func (s *cartService) AddItem(ctx context.Context, userID, courseID string) (Cart, CartTotals, error) {
	cid := strings.TrimSpace(courseID)
	if cid == "" {
		return Cart{}, CartTotals{}, ErrCartInvalidInput
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}

	for _, item := range cart.Items {
		if item.CourseID == cid {
			return cart, ComputeTotals(cart), nil
		}
	}

	course, err := s.courses.FindByID(ctx, cid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, CartTotals{}, ErrCourseNotFound
		}
		return Cart{}, CartTotals{}, ErrCartUnavailable
	}

	cart.Items = append(cart.Items, CartLineItem{
		CourseID:      course.ID,
		Title:         course.Title,
		Instructor:    course.Instructor,
		ThumbnailURL:  course.ThumbnailURL,
		Price:         course.Price,
		OriginalPrice: course.OriginalPrice,
		AddedAt:       s.now(),
	})

	saved, err := s.persist(ctx, cart)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	s.logger(ctx, "cart.item_added", map[string]any{
		"userID":   saved.UserID,
		"courseID": course.ID,
		"items":    len(saved.Items),
	})
	return saved, ComputeTotals(saved), nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, courseID string) (Cart, CartTotals, error) {
	cid := strings.TrimSpace(courseID)
	if cid == "" {
		return Cart{}, CartTotals{}, ErrCartInvalidInput
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}

	kept := cart.Items[:0:0]
	for _, item := range cart.Items {
		if item.CourseID != cid {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(cart.Items) {
		return cart, ComputeTotals(cart), nil
	}
	cart.Items = kept

	saved, err := s.persist(ctx, cart)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	return saved, ComputeTotals(saved), nil
}

func (s *cartService) ApplyCoupon(ctx context.Context, userID, code string) (Cart, CartTotals, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Cart{}, CartTotals{}, ErrCartInvalidInput
	}
	if s.coupons == nil {
		return Cart{}, CartTotals{}, ErrCartUnavailable
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, CartTotals{}, ErrCouponNotFound
		}
		return Cart{}, CartTotals{}, ErrCartUnavailable
	}
	if !coupon.Active {
		return Cart{}, CartTotals{}, ErrCouponInactive
	}

	subtotal := ComputeTotals(cart).Subtotal
	if subtotal < coupon.MinAmount {
		return Cart{}, CartTotals{}, ErrCouponBelowMinimum
	}

	// Freeze the discount against the subtotal as it stands right now.
	cart.Coupon = &AppliedCoupon{
		Code:      coupon.Code,
		Type:      coupon.Type,
		Value:     coupon.Value,
		Amount:    resolveDiscount(coupon, subtotal),
		AppliedAt: s.now(),
	}

	saved, err := s.persist(ctx, cart)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	s.logger(ctx, "cart.coupon_applied", map[string]any{
		"userID": saved.UserID,
		"code":   coupon.Code,
		"amount": saved.Coupon.Amount,
	})
	return saved, ComputeTotals(saved), nil
}

func (s *cartService) RemoveCoupon(ctx context.Context, userID string) (Cart, CartTotals, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	if cart.Coupon == nil {
		return cart, ComputeTotals(cart), nil
	}
	cart.Coupon = nil

	saved, err := s.persist(ctx, cart)
	if err != nil {
		return Cart{}, CartTotals{}, err
	}
	return saved, ComputeTotals(saved), nil
}

func (s *cartService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Order{}, ErrCartInvalidInput
	}
	if err := validateBilling(cmd.Billing); err != nil {
		return Order{}, err
	}
	if s.orders == nil || s.payments == nil {
		return Order{}, ErrCartUnavailable
	}

	cart, err := s.loadOrCreate(ctx, uid)
	if err != nil {
		return Order{}, err
	}
	if len(cart.Items) == 0 {
		return Order{}, ErrCartEmpty
	}

	totals := ComputeTotals(cart)
	orderID := s.newID()

	charge, err := s.payments.Charge(ctx, payments.ChargeRequest{
		UserID:   uid,
		OrderID:  orderID,
		Amount:   totals.Total,
		Currency: s.currency,
		Method:   strings.TrimSpace(cmd.PaymentMethod),
	})
	if err != nil {
		s.logger(ctx, "cart.payment_failed", map[string]any{
			"userID":  uid,
			"orderID": orderID,
			"error":   err.Error(),
		})
		return Order{}, ErrPaymentFailed
	}

	now := s.now()
	order := Order{
		ID:            orderID,
		OrderNumber:   "ORD-" + orderID,
		UserID:        uid,
		Status:        domain.OrderStatusCompleted,
		Items:         append([]CartLineItem(nil), cart.Items...),
		Totals:        totals,
		Coupon:        cloneCoupon(cart.Coupon),
		Billing:       cmd.Billing,
		PaymentMethod: strings.TrimSpace(cmd.PaymentMethod),
		PaymentRef:    charge.Reference,
		CreatedAt:     now,
	}
	if charge.Status != payments.StatusSucceeded {
		order.Status = domain.OrderStatusPendingPayment
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if err := s.repo.Delete(ctx, uid); err != nil {
		// The order is recorded; a stale cart is recoverable, losing the
		// order is not.
		s.logger(ctx, "cart.clear_failed", map[string]any{
			"userID":  uid,
			"orderID": orderID,
			"error":   err.Error(),
		})
	}

	s.logger(ctx, "cart.order_created", map[string]any{
		"userID":      uid,
		"orderID":     orderID,
		"orderNumber": order.OrderNumber,
		"total":       totals.Total,
	})
	return order, nil
}

func (s *cartService) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	uid := strings.TrimSpace(userID)
	oid := strings.TrimSpace(orderID)
	if uid == "" || oid == "" {
		return Order{}, ErrCartInvalidInput
	}
	if s.orders == nil {
		return Order{}, ErrCartUnavailable
	}
	order, err := s.orders.FindByID(ctx, uid, oid)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, ErrCartUnavailable
	}
	return order, nil
}

func (s *cartService) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrCartInvalidInput
	}
	if s.orders == nil {
		return nil, ErrCartUnavailable
	}
	orders, err := s.orders.ListByUser(ctx, uid)
	if err != nil {
		return nil, ErrCartUnavailable
	}
	return orders, nil
}

func (s *cartService) loadOrCreate(ctx context.Context, userID string) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	cart, err := s.repo.Get(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			// Zero UpdatedAt marks the cart as never persisted, so the first
			// save is a create rather than an optimistic replace.
			return Cart{UserID: uid}, nil
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart.UserID = uid
	return cart, nil
}

// persist writes the cart back with an optimistic check against the
// UpdatedAt it was loaded with.
func (s *cartService) persist(ctx context.Context, cart Cart) (Cart, error) {
	var expected *time.Time
	if !cart.UpdatedAt.IsZero() {
		stamp := cart.UpdatedAt
		expected = &stamp
	}
	cart.UpdatedAt = s.now()
	saved, err := s.repo.Save(ctx, cart, expected)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		}
	}
	return ErrCartUnavailable
}

// resolveDiscount computes the frozen coupon amount. Percentage coupons take
// their share of the subtotal; both kinds respect the optional cap.
func resolveDiscount(coupon Coupon, subtotal int64) int64 {
	var amount int64
	switch coupon.Type {
	case domain.DiscountTypePercentage:
		amount = subtotal * coupon.Value / 100
	default:
		amount = coupon.Value
	}
	if coupon.MaxDiscount > 0 && amount > coupon.MaxDiscount {
		amount = coupon.MaxDiscount
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

func validateBilling(addr BillingAddress) error {
	required := []struct {
		field, value string
	}{
		{"name", addr.Name},
		{"line1", addr.Line1},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: billing %s is required", ErrCartInvalidInput, f.field)
		}
	}
	return nil
}

func cloneCoupon(coupon *AppliedCoupon) *AppliedCoupon {
	if coupon == nil {
		return nil
	}
	dup := *coupon
	return &dup
}
