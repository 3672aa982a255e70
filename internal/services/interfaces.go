package services

import (
	"context"
	"time"

	domain "github.com/skillforge/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart             = domain.Cart
	CartLineItem     = domain.CartLineItem
	CartTotals       = domain.CartTotals
	AppliedCoupon    = domain.AppliedCoupon
	Coupon           = domain.Coupon
	BillingAddress   = domain.BillingAddress
	Order            = domain.Order
	OrderStatus      = domain.OrderStatus
	Course           = domain.Course
	CatalogFilter    = domain.CatalogFilter
	CatalogPage      = domain.CatalogPage
	SortOption       = domain.SortOption
	CourseWizardData = domain.CourseWizardData
	CourseSection    = domain.CourseSection
	CourseLecture    = domain.CourseLecture
	WizardStep       = domain.WizardStep
	WizardDraft      = domain.WizardDraft
	PlayerState      = domain.PlayerState
	PlayerNote       = domain.PlayerNote
)

// CartService owns the per-user cart ledger and the orders derived from it.
type CartService interface {
	// GetCart returns the user's cart, lazily creating an empty one, together
	// with totals derived from current cart state.
	GetCart(ctx context.Context, userID string) (Cart, CartTotals, error)
	// AddItem puts a course into the cart. Adding a course that is already
	// present leaves the cart unchanged.
	AddItem(ctx context.Context, userID, courseID string) (Cart, CartTotals, error)
	// RemoveItem takes a course out of the cart; removing an absent course is
	// a no-op.
	RemoveItem(ctx context.Context, userID, courseID string) (Cart, CartTotals, error)
	// ApplyCoupon validates the code against the coupon table and freezes the
	// resolved discount amount on the cart, replacing any prior coupon.
	ApplyCoupon(ctx context.Context, userID, code string) (Cart, CartTotals, error)
	// RemoveCoupon clears the applied coupon, if any.
	RemoveCoupon(ctx context.Context, userID string) (Cart, CartTotals, error)
	// CreateOrder charges the cart total, snapshots the cart into an immutable
	// order and clears the cart.
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
}

// CreateOrderCommand carries the checkout payload for CartService.CreateOrder.
type CreateOrderCommand struct {
	UserID        string
	Billing       BillingAddress
	PaymentMethod string
}

// CatalogService answers filtered, sorted, paginated catalog queries.
type CatalogService interface {
	Search(ctx context.Context, filter CatalogFilter) (CatalogPage, error)
	FindCourse(ctx context.Context, courseID string) (Course, error)
}

// WizardState is the full authoring state returned by every wizard operation.
type WizardState struct {
	Data        CourseWizardData
	Steps       []WizardStep
	CurrentStep int
	Dirty       bool
	SavedAt     time.Time
}

// FieldError is a per-field validation failure surfaced inline, never as an
// operation error.
type FieldError struct {
	Field   string
	Message string
}

// UpdateBasicsCommand carries the wizard's step-one fields.
type UpdateBasicsCommand struct {
	UserID    string
	CourseKey string
	Title     string
	Subtitle  string
	Category  string
	Level     string
	Tags      []string
}

// UpdateLandingPageCommand carries the wizard's step-three fields.
type UpdateLandingPageCommand struct {
	UserID         string
	CourseKey      string
	Description    string
	LearningPoints []string
	Requirements   []string
}

// UpdatePricingCommand carries the wizard's step-four fields.
type UpdatePricingCommand struct {
	UserID        string
	CourseKey     string
	Price         int64
	OriginalPrice int64
}

// MoveLectureCommand relocates a lecture, possibly across sections. Position
// is the 1-based target slot; out-of-range positions clamp to the ends.
type MoveLectureCommand struct {
	UserID        string
	CourseKey     string
	LectureID     string
	FromSectionID string
	ToSectionID   string
	Position      int
}

// CourseExport is a wizard snapshot serialised for download.
type CourseExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// WizardService drives the four-step course authoring flow. Validation
// failures never surface as errors; they land in the step states.
type WizardService interface {
	// StartWizard opens (or resumes) an authoring session, restoring a saved
	// draft when one exists and revalidating every step.
	StartWizard(ctx context.Context, userID, courseKey string) (WizardState, error)
	GetState(ctx context.Context, userID, courseKey string) (WizardState, error)

	UpdateBasics(ctx context.Context, cmd UpdateBasicsCommand) (WizardState, error)
	UpdateLandingPage(ctx context.Context, cmd UpdateLandingPageCommand) (WizardState, error)
	UpdatePricing(ctx context.Context, cmd UpdatePricingCommand) (WizardState, error)

	AddSection(ctx context.Context, userID, courseKey, title string) (WizardState, error)
	DeleteSection(ctx context.Context, userID, courseKey, sectionID string) (WizardState, error)
	ReorderSections(ctx context.Context, userID, courseKey string, orderedIDs []string) (WizardState, error)
	AddLecture(ctx context.Context, userID, courseKey, sectionID, title string) (WizardState, error)
	DeleteLecture(ctx context.Context, userID, courseKey, sectionID, lectureID string) (WizardState, error)
	ReorderLectures(ctx context.Context, userID, courseKey, sectionID string, orderedIDs []string) (WizardState, error)
	MoveLecture(ctx context.Context, cmd MoveLectureCommand) (WizardState, error)

	// GoToStep moves the active step. Forward moves require every step up to
	// the target to validate; backward moves are unconditional.
	GoToStep(ctx context.Context, userID, courseKey string, step int) (WizardState, error)
	// ValidateStep revalidates one step and returns its field errors.
	ValidateStep(ctx context.Context, userID, courseKey string, step int) (WizardState, []FieldError, error)

	SaveDraft(ctx context.Context, userID, courseKey string) (WizardState, error)
	DiscardDraft(ctx context.Context, userID, courseKey string) error
	ExportCourse(ctx context.Context, userID, courseKey string) (CourseExport, error)

	// FlushDirty persists every session with unsaved changes and returns the
	// number of drafts written. The autosave loop calls this on its interval.
	FlushDirty(ctx context.Context) int
}

// PlayerService persists per-course playback state for a user.
type PlayerService interface {
	GetState(ctx context.Context, userID, courseID string) (PlayerState, error)
	SaveBookmark(ctx context.Context, userID, courseID string, atSeconds int) (PlayerState, error)
	AddNote(ctx context.Context, userID, courseID string, atSeconds int, text string) (PlayerState, error)
	DeleteNote(ctx context.Context, userID, courseID, noteID string) (PlayerState, error)
}

// Session is an issued storefront session.
type Session struct {
	Token     string
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// AuthService implements the simulated credential flows backing the
// storefront's login, signup and password-reset forms.
type AuthService interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Signup(ctx context.Context, name, email, password string) (Session, error)
	ForgotPassword(ctx context.Context, email string) error
}
