package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/rastuci/api/internal/domain"
	pfirestore "github.com/rastuci/api/internal/platform/firestore"
	"github.com/rastuci/api/internal/platform/pagination"
	"github.com/rastuci/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists order aggregates in the orders collection.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)
	return &OrderRepository{provider: provider, orders: base}, nil
}

// Insert creates a new order document, failing if the id already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order insert: id is required")
	}
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order update: id is required")
	}
	if _, err := r.orders.Set(ctx, order.ID, newOrderDocument(order)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: id is required")
	}
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns a page of orders, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize, pagination.DefaultPageSize, pagination.DefaultMaxPageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if len(filter.Status) == 1 {
		query = query.Where("status", "==", strings.TrimSpace(filter.Status[0]))
	} else if len(filter.Status) > 1 {
		statuses := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				statuses = append(statuses, trimmed)
			}
		}
		query = query.Where("status", "in", statuses)
	}
	if method := strings.TrimSpace(filter.PaymentMethod); method != "" {
		query = query.Where("paymentMethod", "==", method)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var cursor orderPageToken
		if err := pagination.DecodeToken(token, &cursor); err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		query = query.StartAfter(cursor.CreatedAt, cursor.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := pagination.EncodeToken(orderPageToken{ID: last.ID, CreatedAt: last.CreatedAt.UTC()})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type orderDocument struct {
	OrderNumber    string              `firestore:"orderNumber"`
	Status         string              `firestore:"status"`
	Total          int64               `firestore:"total"`
	ShippingCost   int64               `firestore:"shippingCost"`
	Discount       int64               `firestore:"discount,omitempty"`
	CouponCode     *string             `firestore:"couponCode,omitempty"`
	Customer       customerDocument    `firestore:"customer"`
	Shipping       shippingDocument    `firestore:"shipping"`
	ShippingMethod string              `firestore:"shippingMethod"`
	ShippingAgency *string             `firestore:"shippingAgency,omitempty"`
	PaymentMethod  string              `firestore:"paymentMethod"`
	TrackingNumber *string             `firestore:"trackingNumber,omitempty"`
	Payment        paymentRefDocument  `firestore:"payment"`
	Items          []orderItemDocument `firestore:"items"`
	StockDebited   bool                `firestore:"stockDebited"`
	Notes          *string             `firestore:"notes,omitempty"`
	Metadata       map[string]any      `firestore:"metadata,omitempty"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	UpdatedAt      time.Time           `firestore:"updatedAt"`
	PaidAt         *time.Time          `firestore:"paidAt,omitempty"`
	DeliveredAt    *time.Time          `firestore:"deliveredAt,omitempty"`
}

type customerDocument struct {
	Name       string `firestore:"name"`
	Email      string `firestore:"email"`
	Phone      string `firestore:"phone,omitempty"`
	Address    string `firestore:"address,omitempty"`
	City       string `firestore:"city,omitempty"`
	Province   string `firestore:"province,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
}

type shippingDocument struct {
	Street       string `firestore:"street,omitempty"`
	Number       string `firestore:"number,omitempty"`
	Floor        string `firestore:"floor,omitempty"`
	Apartment    string `firestore:"apartment,omitempty"`
	City         string `firestore:"city,omitempty"`
	Province     string `firestore:"province,omitempty"`
	ProvinceCode string `firestore:"provinceCode,omitempty"`
	PostalCode   string `firestore:"postalCode,omitempty"`
}

type paymentRefDocument struct {
	PaymentID    *string `firestore:"mpPaymentId,omitempty"`
	PreferenceID *string `firestore:"mpPreferenceId,omitempty"`
	Status       *string `firestore:"mpStatus,omitempty"`
	StatusDetail *string `firestore:"mpStatusDetail,omitempty"`
}

type orderItemDocument struct {
	ProductRef string  `firestore:"productRef"`
	VariantID  *string `firestore:"variantId,omitempty"`
	Name       string  `firestore:"name,omitempty"`
	Quantity   int     `firestore:"quantity"`
	UnitPrice  int64   `firestore:"price"`
	Size       *string `firestore:"size,omitempty"`
	Color      *string `firestore:"color,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ProductRef: strings.TrimSpace(item.ProductID),
			VariantID:  item.VariantID,
			Name:       strings.TrimSpace(item.Name),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Size:       item.Size,
			Color:      item.Color,
		}
	}
	return orderDocument{
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		Status:      string(order.Status),
		Total:       order.Total,
		ShippingCost: order.ShippingCost,
		Discount:    order.Discount,
		CouponCode:  order.CouponCode,
		Customer: customerDocument{
			Name:       strings.TrimSpace(order.Customer.Name),
			Email:      strings.TrimSpace(order.Customer.Email),
			Phone:      strings.TrimSpace(order.Customer.Phone),
			Address:    strings.TrimSpace(order.Customer.Address),
			City:       strings.TrimSpace(order.Customer.City),
			Province:   strings.TrimSpace(order.Customer.Province),
			PostalCode: strings.TrimSpace(order.Customer.PostalCode),
		},
		Shipping: shippingDocument{
			Street:       strings.TrimSpace(order.Shipping.Street),
			Number:       strings.TrimSpace(order.Shipping.Number),
			Floor:        strings.TrimSpace(order.Shipping.Floor),
			Apartment:    strings.TrimSpace(order.Shipping.Apartment),
			City:         strings.TrimSpace(order.Shipping.City),
			Province:     strings.TrimSpace(order.Shipping.Province),
			ProvinceCode: strings.TrimSpace(order.Shipping.ProvinceCode),
			PostalCode:   strings.TrimSpace(order.Shipping.PostalCode),
		},
		ShippingMethod: string(order.ShippingMethod),
		ShippingAgency: order.ShippingAgency,
		PaymentMethod:  string(order.PaymentMethod),
		TrackingNumber: order.TrackingNumber,
		Payment: paymentRefDocument{
			PaymentID:    order.Payment.PaymentID,
			PreferenceID: order.Payment.PreferenceID,
			Status:       order.Payment.Status,
			StatusDetail: order.Payment.StatusDetail,
		},
		Items:        items,
		StockDebited: order.StockDebited,
		Notes:        order.Notes,
		Metadata:     order.Metadata,
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
		PaidAt:       order.PaidAt,
		DeliveredAt:  order.DeliveredAt,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductRef),
			VariantID: item.VariantID,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		}
	}
	return domain.Order{
		ID:           id,
		OrderNumber:  strings.TrimSpace(d.OrderNumber),
		Status:       domain.OrderStatus(strings.TrimSpace(d.Status)),
		Total:        d.Total,
		ShippingCost: d.ShippingCost,
		Discount:     d.Discount,
		CouponCode:   d.CouponCode,
		Customer: domain.Customer{
			Name:       d.Customer.Name,
			Email:      d.Customer.Email,
			Phone:      d.Customer.Phone,
			Address:    d.Customer.Address,
			City:       d.Customer.City,
			Province:   d.Customer.Province,
			PostalCode: d.Customer.PostalCode,
		},
		Shipping: domain.ShippingAddress{
			Street:       d.Shipping.Street,
			Number:       d.Shipping.Number,
			Floor:        d.Shipping.Floor,
			Apartment:    d.Shipping.Apartment,
			City:         d.Shipping.City,
			Province:     d.Shipping.Province,
			ProvinceCode: d.Shipping.ProvinceCode,
			PostalCode:   d.Shipping.PostalCode,
		},
		ShippingMethod: domain.ShippingMethod(strings.TrimSpace(d.ShippingMethod)),
		ShippingAgency: d.ShippingAgency,
		PaymentMethod:  domain.PaymentMethod(strings.TrimSpace(d.PaymentMethod)),
		TrackingNumber: d.TrackingNumber,
		Payment: domain.PaymentRef{
			PaymentID:    d.Payment.PaymentID,
			PreferenceID: d.Payment.PreferenceID,
			Status:       d.Payment.Status,
			StatusDetail: d.Payment.StatusDetail,
		},
		Items:        items,
		StockDebited: d.StockDebited,
		Notes:        d.Notes,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		PaidAt:       d.PaidAt,
		DeliveredAt:  d.DeliveredAt,
	}
}

type orderPageToken struct {
	ID        string
	CreatedAt time.Time
}
