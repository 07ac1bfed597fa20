package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/rastuci/api/internal/domain"
	pfirestore "github.com/rastuci/api/internal/platform/firestore"
)

const couponsCollection = "coupons"

// CouponRepository stores discount codes in the coupons collection.
type CouponRepository struct {
	provider *pfirestore.Provider
	coupons  *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection)
	return &CouponRepository{provider: provider, coupons: base}, nil
}

// FindByCode looks up a coupon by its code, case-insensitively.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, couponNotFound(code)
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}

	iter := client.Collection(couponsCollection).Where("code", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Coupon{}, couponNotFound(code)
	}
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}

	var doc couponDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Coupon{}, fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// IncrementUsage bumps the coupon's usage counter atomically.
func (r *CouponRepository) IncrementUsage(ctx context.Context, couponID string, now time.Time) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return domain.Coupon{}, couponNotFound(couponID)
	}

	at := now.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var updated domain.Coupon
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.coupons.DocumentRef(ctx, couponID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc couponDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode coupon %s: %w", couponID, err)
		}
		doc.UsedCount++
		doc.UpdatedAt = at
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(couponID)
		return nil
	})
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.incrementUsage", err)
	}
	return updated, nil
}

// couponNotFound classifies query misses the same way document misses are
// classified, so services only deal with RepositoryError.
func couponNotFound(code string) error {
	return pfirestore.WrapError("coupons.findByCode", status.Error(codes.NotFound, fmt.Sprintf("coupon %q not found", code)))
}

// Helper structures ---------------------------------------------------------

type couponDocument struct {
	Code          string     `firestore:"code"`
	Type          string     `firestore:"type"`
	Value         int64      `firestore:"value"`
	MinOrderValue *int64     `firestore:"minOrderValue,omitempty"`
	MaxUses       *int       `firestore:"maxUses,omitempty"`
	UsedCount     int        `firestore:"usedCount"`
	ExpiresAt     *time.Time `firestore:"expiresAt,omitempty"`
	IsActive      bool       `firestore:"isActive"`
	CreatedAt     time.Time  `firestore:"createdAt"`
	UpdatedAt     time.Time  `firestore:"updatedAt"`
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:            id,
		Code:          strings.ToUpper(strings.TrimSpace(d.Code)),
		Type:          domain.CouponType(strings.TrimSpace(d.Type)),
		Value:         d.Value,
		MinOrderValue: d.MinOrderValue,
		MaxUses:       d.MaxUses,
		UsedCount:     d.UsedCount,
		ExpiresAt:     d.ExpiresAt,
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
