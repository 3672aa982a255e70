package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/skillforge/api/internal/domain"
	kvstore "github.com/skillforge/api/internal/platform/localstore"
	"github.com/skillforge/api/internal/repositories"
)

const cartKeyPrefix = "cart"

// CartRepository persists cart state under "cart/<userID>" keys.
type CartRepository struct {
	mu    sync.Mutex
	store *kvstore.Store
}

// NewCartRepository constructs a local-store-backed cart repository.
func NewCartRepository(store *kvstore.Store) (*CartRepository, error) {
	if store == nil {
		return nil, errors.New("cart repository requires local store")
	}
	return &CartRepository{store: store}, nil
}

// Get loads the user's cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, repositories.NewUnavailable("cart repository", err)
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, repositories.NewNotFound("cart repository: user id required", nil)
	}

	var doc cartDocument
	if err := r.store.Get(cartKey(uid), &doc); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return domain.Cart{}, repositories.NewNotFound(fmt.Sprintf("cart repository: cart for %s", uid), err)
		}
		return domain.Cart{}, repositories.NewUnavailable("cart repository", err)
	}

	return domain.Cart{
		UserID:    doc.UserID,
		Items:     lineItemsFromDocuments(doc.Items),
		Coupon:    couponFromDocument(doc.Coupon),
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Save replaces the cart wholesale, enforcing the optimistic UpdatedAt check
// when the caller supplies one.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, repositories.NewUnavailable("cart repository", err)
	}
	uid := strings.TrimSpace(cart.UserID)
	if uid == "" {
		return domain.Cart{}, repositories.NewConflict("cart repository: user id required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if expectedUpdatedAt != nil && !expectedUpdatedAt.IsZero() {
		var current cartDocument
		err := r.store.Get(cartKey(uid), &current)
		switch {
		case errors.Is(err, kvstore.ErrKeyNotFound):
			return domain.Cart{}, repositories.NewConflict("cart repository: cart no longer exists", nil)
		case err != nil:
			return domain.Cart{}, repositories.NewUnavailable("cart repository", err)
		case !current.UpdatedAt.Equal(expectedUpdatedAt.UTC()):
			return domain.Cart{}, repositories.NewConflict("cart repository: cart modified concurrently", nil)
		}
	}

	doc := cartDocument{
		UserID:    uid,
		Items:     lineItemsToDocuments(cart.Items),
		Coupon:    couponToDocument(cart.Coupon),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	if err := r.store.Put(cartKey(uid), doc); err != nil {
		return domain.Cart{}, repositories.NewUnavailable("cart repository", err)
	}

	cart.UserID = uid
	cart.UpdatedAt = doc.UpdatedAt
	return cart, nil
}

// Delete removes the user's cart.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewUnavailable("cart repository", err)
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(cartKey(uid)); err != nil {
		return repositories.NewUnavailable("cart repository", err)
	}
	return nil
}

func cartKey(userID string) string {
	return cartKeyPrefix + "/" + userID
}
