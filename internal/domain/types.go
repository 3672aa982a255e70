package domain

import (
	"time"
)

// All monetary values are int64 amounts in the smallest currency unit (cents).

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountTypePercentage applies a percentage of the cart subtotal.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed applies a fixed monetary amount.
	DiscountTypeFixed DiscountType = "fixed"
)

// Coupon is a named discount rule from the fixed coupon table.
type Coupon struct {
	Code        string
	Type        DiscountType
	Value       int64 // percent (0-100) for percentage coupons, cents for fixed
	MaxDiscount int64 // 0 means uncapped
	MinAmount   int64 // minimum cart subtotal required at apply time
	Description string
	Active      bool
}

// AppliedCoupon is the coupon snapshot stored on a cart after a successful
// apply. Amount is resolved against the subtotal at apply time and is not
// recomputed when cart contents change afterwards.
type AppliedCoupon struct {
	Code      string
	Type      DiscountType
	Value     int64
	Amount    int64
	AppliedAt time.Time
}

// CartLineItem is one course entry in the cart, unique by course id.
// Title, Instructor and ThumbnailURL are display fields opaque to cart logic.
type CartLineItem struct {
	CourseID      string
	Title         string
	Instructor    string
	ThumbnailURL  string
	Price         int64
	OriginalPrice int64 // 0 when the course is not marked down; otherwise >= Price
	AddedAt       time.Time
}

// Cart aggregates the mutable shopping cart state for a user.
type Cart struct {
	UserID    string
	Items     []CartLineItem
	Coupon    *AppliedCoupon
	UpdatedAt time.Time
}

// CartTotals is derived from cart state on every read, never stored.
type CartTotals struct {
	Subtotal       int64
	Discount       int64 // sum of (OriginalPrice - Price) across marked-down items
	CouponDiscount int64
	Total          int64 // clamped at zero when the frozen coupon exceeds the subtotal
	Savings        int64
}

// BillingAddress captures the address snapshot collected at checkout.
type BillingAddress struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPendingPayment indicates the order awaits payment completion.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusCompleted indicates payment succeeded and enrollment is granted.
	OrderStatusCompleted OrderStatus = "completed"
)

// Order is the immutable record snapshotted from the cart at checkout.
type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	Status        OrderStatus
	Items         []CartLineItem
	Totals        CartTotals
	Coupon        *AppliedCoupon
	Billing       BillingAddress
	PaymentMethod string
	PaymentRef    string
	CreatedAt     time.Time
}

// CourseLevel enumerates the difficulty levels a course can declare.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
	CourseLevelAllLevels    CourseLevel = "all-levels"
)

// CourseCategories is the fixed category enum used by the catalog and the
// authoring wizard.
var CourseCategories = []string{
	"Development",
	"Business",
	"Design",
	"Marketing",
	"Photography",
	"Music",
	"Data Science",
	"Personal Development",
}

// Course is a published catalog entry.
type Course struct {
	ID            string
	Title         string
	Subtitle      string
	Instructor    string
	Description   string
	Category      string
	Level         CourseLevel
	Language      string
	Price         int64
	OriginalPrice int64
	IsFree        bool
	Rating        float64
	RatingCount   int
	DurationHours float64
	Features      []string
	ThumbnailURL  string
}

// SortOption enumerates catalog sort orders.
type SortOption string

const (
	// SortBestMatch preserves the catalog's input order (stable).
	SortBestMatch SortOption = "best-match"
	// SortHighestRated orders by rating descending.
	SortHighestRated SortOption = "highest-rated"
	// SortNewest orders by course id descending, a proxy for creation time.
	SortNewest SortOption = "newest"
	// SortPriceLowHigh orders by price ascending.
	SortPriceLowHigh SortOption = "price-low-high"
	// SortPriceHighLow orders by price descending.
	SortPriceHighLow SortOption = "price-high-low"
)

// DurationBuckets lists the fixed labelled hour ranges offered as filters.
var DurationBuckets = []string{"0-5", "6-10", "11-20", "21-40", "40+"}

// CatalogFilter is the full filter/sort/pagination state for a catalog query.
// Within one dimension selections are ORed; dimensions are ANDed together.
// An empty selection set leaves that dimension unfiltered.
type CatalogFilter struct {
	Query      string
	Categories []string
	Levels     []string
	PriceTiers []string // members of {"free", "paid"}
	MinRating  *float64 // nil = unfiltered
	Durations  []string // members of DurationBuckets
	Languages  []string
	Features   []string
	SortBy     SortOption
	Page       int
	PageSize   int
}

// CatalogPage is one page of filtered and sorted catalog results.
type CatalogPage struct {
	Courses    []Course
	TotalCount int
	Page       int
	PageSize   int
}

// PlayerNote is a timestamped note taken while watching a course.
type PlayerNote struct {
	ID        string
	AtSeconds int
	Text      string
	CreatedAt time.Time
}

// PlayerState holds the per-course video bookmark and notes for a user.
type PlayerState struct {
	CourseID        string
	BookmarkSeconds int
	Notes           []PlayerNote
	UpdatedAt       time.Time
}
