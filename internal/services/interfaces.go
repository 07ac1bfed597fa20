package services

import (
	"context"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination             = domain.Pagination
	SortOrder              = domain.SortOrder
	Order                  = domain.Order
	OrderItem              = domain.OrderItem
	OrderStatus            = domain.OrderStatus
	Customer               = domain.Customer
	ShippingAddress        = domain.ShippingAddress
	Coupon                 = domain.Coupon
	CouponValidationResult = domain.CouponValidationResult
	Product                = domain.Product
	ShipmentResult         = domain.ShipmentResult
	NotificationOutcome    = domain.NotificationOutcome
	SystemHealthReport     = domain.SystemHealthReport
)

// CheckoutService validates carts and creates orders, delegating payment
// preference creation to the configured gateway when required.
type CheckoutService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CheckoutResult, error)
}

// CouponService validates discount codes against an order total.
type CouponService interface {
	Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error)
}

// OrderService exposes the admin-facing order surface: listing, lookup,
// lifecycle transitions, and shipment retries.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ChangeStatus(ctx context.Context, cmd ChangeOrderStatusCommand) (Order, error)
	Ship(ctx context.Context, cmd ShipOrderCommand) (Order, error)
}

// PaymentWebhookService reconciles gateway notifications against order state.
type PaymentWebhookService interface {
	ProcessNotification(ctx context.Context, cmd PaymentNotificationCommand) error
}

// CatalogService serves the public product surface.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// NotificationDispatcher queues order event notifications for asynchronous
// delivery. Dispatch failures are recorded, never propagated to callers.
type NotificationDispatcher interface {
	DispatchOrderEvent(ctx context.Context, event OrderEventNotification)
}

// NotificationPublisher accepts serialized notification jobs for delivery.
type NotificationPublisher interface {
	PublishNotificationJob(ctx context.Context, job NotificationJob) error
}

// SystemService aggregates utility endpoints (health checks, sequences).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	NextSequenceValue(ctx context.Context, cmd SequenceCommand) (int64, error)
}

// ErrorTranslator converts repository or platform errors into domain-aware sentinel errors.
type ErrorTranslator interface {
	Translate(err error) error
}

// DomainError represents a structured error with stable codes for transport across layers.
type DomainError interface {
	error
	Code() string
	SafeMessage() string
}

// Command and DTO definitions ------------------------------------------------

// CheckoutItem is one cart line as submitted by the storefront.
type CheckoutItem struct {
	ProductID string
	VariantID *string
	Name      string
	Quantity  int
	UnitPrice int64
	Size      string
	Color     string
}

type CreateOrderCommand struct {
	Items          []CheckoutItem
	Customer       Customer
	Shipping       ShippingAddress
	ShippingMethod string
	ShippingAgency *string
	PaymentMethod  string
	CouponCode     *string
	ShippingCost   int64
	DeclaredTotal  int64
	Notes          string
	Metadata       map[string]any
}

// CheckoutResult reports the created order plus, for gateway payments, the
// redirect the storefront must send the buyer to.
type CheckoutResult struct {
	Order       Order
	RedirectURL string
	SandboxURL  string
}

type ValidateCouponCommand struct {
	Code       string
	OrderTotal int64
}

type OrderListFilter = repositories.OrderListFilter

type ChangeOrderStatusCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	ActorID      string
	Reason       string
}

type ShipOrderCommand struct {
	OrderID string
	ActorID string
}

// PaymentNotificationCommand is the decoded gateway webhook body.
type PaymentNotificationCommand struct {
	Action    string
	PaymentID string
	RequestID string
}

type ProductListFilter struct {
	CategoryID    string
	OnlyPublished bool
	Pagination    Pagination
}

// OrderEventNotification describes an order event worth telling the customer
// or the shop operators about.
type OrderEventNotification struct {
	OrderID     string
	OrderNumber string
	Event       string
	Email       string
	Total       int64
	OccurredAt  time.Time
}

// NotificationJob is the wire payload published to the notification topic.
type NotificationJob struct {
	Kind        string         `json:"kind"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	Event       string         `json:"event"`
	Email       string         `json:"email,omitempty"`
	Total       int64          `json:"total"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type SequenceCommand struct {
	SequenceID string
	Step      int64
}
