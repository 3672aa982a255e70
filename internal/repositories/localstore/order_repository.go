package localstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	domain "github.com/skillforge/api/internal/domain"
	kvstore "github.com/skillforge/api/internal/platform/localstore"
	"github.com/skillforge/api/internal/repositories"
)

const orderKeyPrefix = "order"

// OrderRepository stores immutable order records under "order/<userID>/<orderID>".
type OrderRepository struct {
	store *kvstore.Store
}

// NewOrderRepository constructs a local-store-backed order repository.
func NewOrderRepository(store *kvstore.Store) (*OrderRepository, error) {
	if store == nil {
		return nil, errors.New("order repository requires local store")
	}
	return &OrderRepository{store: store}, nil
}

// Insert writes the order record. Orders are never updated after creation.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewUnavailable("order repository", err)
	}
	uid := strings.TrimSpace(order.UserID)
	oid := strings.TrimSpace(order.ID)
	if uid == "" || oid == "" {
		return repositories.NewConflict("order repository: user id and order id required", nil)
	}

	key := orderKey(uid, oid)
	var existing orderDocument
	if err := r.store.Get(key, &existing); err == nil {
		return repositories.NewConflict(fmt.Sprintf("order repository: order %s already exists", oid), nil)
	}

	doc := orderDocument{
		ID:            oid,
		OrderNumber:   order.OrderNumber,
		UserID:        uid,
		Status:        string(order.Status),
		Items:         lineItemsToDocuments(order.Items),
		Totals:        totalsToDocument(order.Totals),
		Coupon:        couponToDocument(order.Coupon),
		Billing:       addressToDocument(order.Billing),
		PaymentMethod: order.PaymentMethod,
		PaymentRef:    order.PaymentRef,
		CreatedAt:     order.CreatedAt.UTC(),
	}
	if err := r.store.Put(key, doc); err != nil {
		return repositories.NewUnavailable("order repository", err)
	}
	return nil
}

// FindByID loads a single order belonging to the user.
func (r *OrderRepository) FindByID(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, repositories.NewUnavailable("order repository", err)
	}
	uid := strings.TrimSpace(userID)
	oid := strings.TrimSpace(orderID)
	if uid == "" || oid == "" {
		return domain.Order{}, repositories.NewNotFound("order repository: order id required", nil)
	}

	var doc orderDocument
	if err := r.store.Get(orderKey(uid, oid), &doc); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return domain.Order{}, repositories.NewNotFound(fmt.Sprintf("order repository: order %s", oid), err)
		}
		return domain.Order{}, repositories.NewUnavailable("order repository", err)
	}
	return orderFromDocument(doc), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, repositories.NewUnavailable("order repository", err)
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, repositories.NewNotFound("order repository: user id required", nil)
	}

	keys, err := r.store.Keys(orderKeyPrefix + "/" + uid + "/")
	if err != nil {
		return nil, repositories.NewUnavailable("order repository", err)
	}

	orders := make([]domain.Order, 0, len(keys))
	for _, key := range keys {
		var doc orderDocument
		if err := r.store.Get(key, &doc); err != nil {
			// Unparsable records are skipped rather than failing the listing.
			continue
		}
		orders = append(orders, orderFromDocument(doc))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func orderKey(userID, orderID string) string {
	return orderKeyPrefix + "/" + userID + "/" + orderID
}

func totalsToDocument(totals domain.CartTotals) totalsDocument {
	return totalsDocument{
		Subtotal:       totals.Subtotal,
		Discount:       totals.Discount,
		CouponDiscount: totals.CouponDiscount,
		Total:          totals.Total,
		Savings:        totals.Savings,
	}
}

func addressToDocument(address domain.BillingAddress) addressDocument {
	return addressDocument{
		Name:       address.Name,
		Line1:      address.Line1,
		Line2:      address.Line2,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
	}
}

func orderFromDocument(doc orderDocument) domain.Order {
	return domain.Order{
		ID:          doc.ID,
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserID,
		Status:      domain.OrderStatus(doc.Status),
		Items:       lineItemsFromDocuments(doc.Items),
		Totals: domain.CartTotals{
			Subtotal:       doc.Totals.Subtotal,
			Discount:       doc.Totals.Discount,
			CouponDiscount: doc.Totals.CouponDiscount,
			Total:          doc.Totals.Total,
			Savings:        doc.Totals.Savings,
		},
		Coupon: couponFromDocument(doc.Coupon),
		Billing: domain.BillingAddress{
			Name:       doc.Billing.Name,
			Line1:      doc.Billing.Line1,
			Line2:      doc.Billing.Line2,
			City:       doc.Billing.City,
			State:      doc.Billing.State,
			PostalCode: doc.Billing.PostalCode,
			Country:    doc.Billing.Country,
		},
		PaymentMethod: doc.PaymentMethod,
		PaymentRef:    doc.PaymentRef,
		CreatedAt:     doc.CreatedAt,
	}
}
