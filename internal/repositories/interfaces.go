package repositories

import (
	"context"
	"time"

	domain "github.com/rastuci/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Coupons() CouponRepository
	Sequences() SequenceRepository
	Notifications() NotificationLogRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order aggregates. Orders are never deleted; their
// lifecycle is soft, driven by the status field.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status        []string
	PaymentMethod string
	DateRange     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// ProductRepository reads catalog entries consulted at checkout time.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	CategoryID    string
	OnlyPublished bool
	Pagination    domain.Pagination
}

// InventoryRepository owns the atomic stock ledger.
type InventoryRepository interface {
	// DebitForPayment subtracts stock for every line of an order inside one
	// all-or-nothing transaction, guarded per line by "stock >= quantity".
	// The payment id is recorded as a processed marker in the same
	// transaction, so a duplicate webhook delivery for the same payment
	// reports AlreadyProcessed instead of debiting twice.
	DebitForPayment(ctx context.Context, req StockDebitRequest) (StockDebitResult, error)
	GetStock(ctx context.Context, productID string, variantID *string) (int, error)
}

// StockDebitLine identifies one product (or variant) quantity to subtract.
type StockDebitLine struct {
	ProductID string
	VariantID *string
	Quantity  int
}

// StockDebitRequest carries the order lines and the payment dedup key.
type StockDebitRequest struct {
	PaymentID string
	OrderID   string
	Lines     []StockDebitLine
	Now       time.Time
}

// StockDebitResult reports the post-debit stock per product. When
// AlreadyProcessed is true no mutation happened in this call.
type StockDebitResult struct {
	AlreadyProcessed bool
	NewStocks        map[string]int
}

// CouponRepository stores discount codes and their usage sequences.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	IncrementUsage(ctx context.Context, couponID string, now time.Time) (domain.Coupon, error)
}

// SequenceRepository provides transaction-safe sequence numbers.
type SequenceRepository interface {
	Next(ctx context.Context, sequenceID string, step int64) (int64, error)
	Configure(ctx context.Context, sequenceID string, cfg SequenceConfig) error
}

// SequenceConfig customises increment behaviour and bounds for a sequence.
type SequenceConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// NotificationLogRepository persists fire-and-forget side effect outcomes so
// failed dispatches remain inspectable.
type NotificationLogRepository interface {
	Append(ctx context.Context, outcome domain.NotificationOutcome) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.NotificationOutcome, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
