package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/rastuci/api/internal/platform/firestore"
	"github.com/rastuci/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider      *pfirestore.Provider
	orders        *OrderRepository
	products      *ProductRepository
	inventory     *InventoryRepository
	coupons       *CouponRepository
	sequences      *SequenceRepository
	notifications *NotificationLogRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against the shared
// provider. The health repository is supplied by the caller because its
// dependency checks reach beyond Firestore.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	inventory, err := NewInventoryRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	sequences, err := NewSequenceRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	notifications, err := NewNotificationLogRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	return &Registry{
		provider:      provider,
		orders:        orders,
		products:      products,
		inventory:     inventory,
		coupons:       coupons,
		sequences:      sequences,
		notifications: notifications,
		health:        health,
	}, nil
}

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Products() repositories.ProductRepository { return r.products }

func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }

func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

func (r *Registry) Sequences() repositories.SequenceRepository { return r.sequences }

func (r *Registry) Notifications() repositories.NotificationLogRepository { return r.notifications }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn inside a Firestore transaction. Repository calls made
// with the derived context do not automatically join the transaction; the
// stock ledger manages its own transactional writes.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry: firestore provider not initialised")
	}
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}
