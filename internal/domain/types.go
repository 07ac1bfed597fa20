package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// Customer captures the denormalized buyer snapshot taken at checkout time.
// It is never re-derived from a live customer record after the order exists.
type Customer struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// ShippingAddress stores the structured destination fields for courier shipments.
// Fields may be empty when the order was placed with only a free-text address;
// resolution of the missing pieces happens in the shipping layer.
type ShippingAddress struct {
	Street       string
	Number       string
	Floor        string
	Apartment    string
	City         string
	Province     string
	ProvinceCode string
	PostalCode   string
}

// ShippingMethod identifies the fulfilment channel chosen at checkout.
type ShippingMethod string

const (
	// ShippingMethodPickup indicates in-store collection; no courier shipment is created.
	ShippingMethodPickup ShippingMethod = "pickup"
	// ShippingMethodCorreoArgentino indicates home delivery through Correo Argentino.
	ShippingMethodCorreoArgentino ShippingMethod = "correo_argentino"
	// ShippingMethodCorreoAgency indicates delivery to a Correo Argentino branch office.
	ShippingMethodCorreoAgency ShippingMethod = "correo_agencia"
)

// PaymentMethod identifies how the buyer chose to pay for the order.
type PaymentMethod string

const (
	// PaymentMethodMercadoPago routes the buyer through a MercadoPago checkout preference.
	PaymentMethodMercadoPago PaymentMethod = "mercadopago"
	// PaymentMethodBankTransfer expects an offline bank transfer confirmed manually.
	PaymentMethodBankTransfer PaymentMethod = "transferencia"
	// PaymentMethodCash expects payment on pickup or delivery.
	PaymentMethodCash PaymentMethod = "efectivo"
)

// Order captures the order aggregate shared across handlers, services and repositories.
// Monetary amounts are stored in centavos.
type Order struct {
	ID             string
	OrderNumber    string
	Status         OrderStatus
	Total          int64
	ShippingCost   int64
	Discount       int64
	CouponCode     *string
	Customer       Customer
	Shipping       ShippingAddress
	ShippingMethod ShippingMethod
	ShippingAgency *string
	PaymentMethod  PaymentMethod
	TrackingNumber *string
	Payment        PaymentRef
	Items          []OrderItem
	StockDebited   bool
	Notes          *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	DeliveredAt    *time.Time
}

// PaymentRef stores gateway correlation identifiers for an order.
type PaymentRef struct {
	PaymentID    *string
	PreferenceID *string
	Status       *string
	StatusDetail *string
}

// OrderItem mirrors a product line at the time of checkout. Items are created
// atomically with their order and are immutable thereafter.
type OrderItem struct {
	ProductID string
	VariantID *string
	Name      string
	Quantity  int
	UnitPrice int64
	Size      *string
	Color     *string
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status        *OrderStatus
	PaymentMethod *PaymentMethod
	CreatedAt     *RangeQuery[time.Time]
}

// CouponType distinguishes percentage discounts from fixed-amount discounts.
type CouponType string

const (
	// CouponTypePercentage discounts a percentage of the order subtotal.
	CouponTypePercentage CouponType = "percentage"
	// CouponTypeFixed discounts a fixed amount in centavos.
	CouponTypeFixed CouponType = "fixed"
)

// Coupon describes a discount code evaluated during checkout. Validity is a
// pure function of these fields plus the candidate order total and the clock.
type Coupon struct {
	ID            string
	Code          string
	Type          CouponType
	Value         int64
	MinOrderValue *int64
	MaxUses       *int
	UsedCount     int
	ExpiresAt     *time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CouponValidationResult is returned when a coupon is evaluated against an order total.
type CouponValidationResult struct {
	Code           string
	Eligible       bool
	Reason         string
	DiscountAmount int64
}

// Product stores the catalog entry consulted during checkout and stock debits.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       int64
	Stock       int
	CategoryID  string
	Variants    []ProductVariant
	ImagePaths  []string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductVariant tracks per-size/color stock within a product.
type ProductVariant struct {
	ID    string
	Size  string
	Color string
	Stock int
}

// StockMovement captures a single atomic stock mutation for audit purposes.
type StockMovement struct {
	ProductID  string
	VariantID  *string
	OrderRef   string
	Delta      int
	NewStock   int
	Reason     string
	OccurredAt time.Time
}

// ShipmentRequest is the courier-ready payload derived from an order by the
// shipping layer after address resolution.
type ShipmentRequest struct {
	OrderID       string
	Recipient     string
	Email         string
	Phone         string
	StreetName    string
	StreetNumber  string
	Floor         string
	Apartment     string
	City          string
	ProvinceCode  string
	PostalCode    string
	AgencyID      *string
	WeightGrams   int
	HeightCm      int
	WidthCm       int
	LengthCm      int
	DeclaredValue int64
}

// ShipmentResult reports the outcome of a courier import attempt.
type ShipmentResult struct {
	Skipped        bool
	TrackingNumber string
}

// NotificationKind enumerates the outbound customer notification channels.
type NotificationKind string

const (
	// NotificationKindEmail dispatches a transactional email.
	NotificationKindEmail NotificationKind = "email"
	// NotificationKindPush dispatches a web push notification.
	NotificationKindPush NotificationKind = "push"
)

// NotificationOutcome records a fire-and-forget side effect result so failed
// dispatches can be inspected later instead of vanishing.
type NotificationOutcome struct {
	Kind       NotificationKind
	OrderRef   string
	Event      string
	Success    bool
	Error      string
	OccurredAt time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
