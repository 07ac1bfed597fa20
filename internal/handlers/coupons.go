package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rastuci/api/internal/platform/httpx"
	"github.com/rastuci/api/internal/services"
)

const (
	maxCouponRequestBody  = 2 * 1024
	couponRateLimit       = 20
	couponRateLimitWindow = time.Minute
)

// CouponHandlers exposes the storefront coupon validation endpoint.
type CouponHandlers struct {
	coupons services.CouponService
	limiter rateLimiter
}

// NewCouponHandlers constructs coupon handlers with a per-client rate limit
// so coupon codes cannot be brute-forced from the storefront.
func NewCouponHandlers(coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{
		coupons: coupons,
		limiter: newSimpleRateLimiter(couponRateLimit, couponRateLimitWindow, nil),
	}
}

// Routes registers coupon endpoints under the provided router.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/validate", h.validate)
}

type validateCouponRequest struct {
	Code       string `json:"code"`
	OrderTotal int64  `json:"orderTotal"`
}

type validateCouponResponse struct {
	Code     string `json:"code"`
	Valid    bool   `json:"valid"`
	Discount int64  `json:"discount"`
	Reason   string `json:"reason,omitempty"`
}

func (h *CouponHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many coupon attempts", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCouponRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req validateCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.coupons.Validate(ctx, services.ValidateCouponCommand{
		Code:       strings.TrimSpace(req.Code),
		OrderTotal: req.OrderTotal,
	})
	if err != nil {
		if errors.Is(err, services.ErrCouponInvalidCode) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "code is required", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to validate coupon", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, validateCouponResponse{
		Code:     result.Code,
		Valid:    result.Eligible,
		Discount: result.DiscountAmount,
		Reason:   result.Reason,
	})
}
