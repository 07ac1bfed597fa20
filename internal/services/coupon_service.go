package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
)

// Rejection reasons surfaced verbatim to the storefront.
const (
	couponReasonNotFound    = "El cupón ingresado no existe"
	couponReasonInactive    = "El cupón no está activo"
	couponReasonExpired     = "El cupón ha expirado"
	couponReasonMaxUses     = "El cupón alcanzó su límite de usos"
	couponReasonBelowMinFmt = "El pedido debe superar los $%s para usar este cupón"
)

// CouponServiceDeps bundles dependencies required to construct a CouponService implementation.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
}

type couponService struct {
	repo  repositories.CouponRepository
	clock func() time.Time
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, ErrCouponRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &couponService{
		repo:  deps.Coupons,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *couponService) Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
	if s == nil || s.repo == nil {
		return CouponValidationResult{}, ErrCouponRepositoryMissing
	}

	normalized := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if normalized == "" {
		return CouponValidationResult{}, ErrCouponInvalidCode
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			return rejectedCoupon(normalized, couponReasonNotFound), nil
		}
		return CouponValidationResult{}, fmt.Errorf("coupon service: find %s: %w", normalized, err)
	}

	return EvaluateCoupon(coupon, cmd.OrderTotal, s.clock()), nil
}

// EvaluateCoupon applies the eligibility rules to an already-loaded coupon.
// It has no side effects; callers persist usage counts separately.
func EvaluateCoupon(coupon domain.Coupon, orderTotal int64, now time.Time) CouponValidationResult {
	code := strings.ToUpper(strings.TrimSpace(coupon.Code))

	if !coupon.IsActive {
		return rejectedCoupon(code, couponReasonInactive)
	}
	if coupon.ExpiresAt != nil && now.After(coupon.ExpiresAt.UTC()) {
		return rejectedCoupon(code, couponReasonExpired)
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return rejectedCoupon(code, couponReasonMaxUses)
	}
	if coupon.MinOrderValue != nil && orderTotal < *coupon.MinOrderValue {
		return rejectedCoupon(code, fmt.Sprintf(couponReasonBelowMinFmt, formatCentavos(*coupon.MinOrderValue)))
	}

	return CouponValidationResult{
		Code:           code,
		Eligible:       true,
		DiscountAmount: couponDiscount(coupon, orderTotal),
	}
}

func couponDiscount(coupon domain.Coupon, orderTotal int64) int64 {
	var discount int64
	switch coupon.Type {
	case domain.CouponTypePercentage:
		discount = orderTotal * coupon.Value / 100
	case domain.CouponTypeFixed:
		discount = coupon.Value
	}
	if discount < 0 {
		return 0
	}
	if discount > orderTotal {
		return orderTotal
	}
	return discount
}

func rejectedCoupon(code, reason string) CouponValidationResult {
	return CouponValidationResult{Code: code, Reason: reason}
}

// formatCentavos renders a centavo amount as a peso string ("1500" for 150000).
func formatCentavos(amount int64) string {
	pesos := amount / 100
	rest := amount % 100
	if rest == 0 {
		return fmt.Sprintf("%d", pesos)
	}
	return fmt.Sprintf("%d.%02d", pesos, rest)
}
