package repositories

import (
	"context"
	"time"

	domain "github.com/skillforge/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists the single active cart per user.
type CartRepository interface {
	// Get returns the user's cart or a not-found error.
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// Save replaces the cart wholesale. When expectedUpdatedAt is non-nil the
	// write fails with a conflict error unless the stored cart carries that
	// timestamp.
	Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	// Delete removes the cart; deleting an absent cart is a no-op.
	Delete(ctx context.Context, userID string) error
}

// CourseRepository exposes the published course catalog.
type CourseRepository interface {
	List(ctx context.Context) ([]domain.Course, error)
	FindByID(ctx context.Context, courseID string) (domain.Course, error)
}

// CouponRepository resolves codes against the fixed coupon table.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
}

// OrderRepository stores immutable order records per user.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, userID, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// DraftRepository persists wizard draft snapshots keyed by user and course.
type DraftRepository interface {
	Save(ctx context.Context, userID, courseKey string, draft domain.WizardDraft) error
	// Load returns a not-found error for absent and unparsable drafts alike.
	Load(ctx context.Context, userID, courseKey string) (domain.WizardDraft, error)
	Delete(ctx context.Context, userID, courseKey string) error
}

// PlayerStateRepository persists per-course video bookmark and notes state.
type PlayerStateRepository interface {
	Save(ctx context.Context, userID string, state domain.PlayerState) error
	Load(ctx context.Context, userID, courseID string) (domain.PlayerState, error)
}
