package memory

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/repositories"
)

// CouponRepository resolves codes against the fixed coupon table.
type CouponRepository struct {
	byCode map[string]domain.Coupon
}

// NewCouponRepository builds a repository over the provided coupons, falling
// back to the seeded table when none are given. Codes match case-insensitively.
func NewCouponRepository(coupons []domain.Coupon) *CouponRepository {
	if len(coupons) == 0 {
		coupons = SeedCoupons()
	}
	byCode := make(map[string]domain.Coupon, len(coupons))
	for _, coupon := range coupons {
		code := strings.ToUpper(strings.TrimSpace(coupon.Code))
		if code == "" {
			continue
		}
		coupon.Code = code
		byCode[code] = coupon
	}
	return &CouponRepository{byCode: byCode}
}

// FindByCode looks up a coupon by its normalised code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coupon{}, repositories.NewUnavailable("coupon repository", err)
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	coupon, ok := r.byCode[normalized]
	if !ok {
		return domain.Coupon{}, repositories.NewNotFound(fmt.Sprintf("coupon repository: code %s", normalized), nil)
	}
	return coupon, nil
}
