package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/platform/auth"
	"github.com/rastuci/api/internal/platform/httpx"
	"github.com/rastuci/api/internal/services"
)

const (
	defaultOrderPageSize   = 20
	maxOrderPageSize       = 100
	maxOrderStatusBodySize = 4 * 1024
	adminRole              = "admin"
)

// OrderHandlers exposes the back-office order endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints. All of them require the admin role.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(adminRole))
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/status", h.changeStatus)
	r.Post("/{orderID}/ship", h.shipOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	statusFilters := parseFilterValues(query["status"])

	var dateRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.To = &ts
	}

	pageSize := defaultOrderPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultOrderPageSize
		case size > maxOrderPageSize:
			pageSize = maxOrderPageSize
		default:
			pageSize = size
		}
	}

	filter := services.OrderListFilter{
		Status:        statusFilters,
		PaymentMethod: strings.TrimSpace(query.Get("payment_method")),
		DateRange:     dateRange,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *OrderHandlers) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxOrderStatusBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	var req changeStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.ChangeStatus(ctx, services.ChangeOrderStatusCommand{
		OrderID:      orderID,
		TargetStatus: domain.OrderStatus(req.Status),
		ActorID:      actorFromContext(ctx),
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) shipOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Ship(ctx, services.ShipOrderCommand{
		OrderID: orderID,
		ActorID: actorFromContext(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
}

type orderSummaryPayload struct {
	ID             string `json:"id"`
	OrderNumber    string `json:"orderNumber"`
	Status         string `json:"status"`
	CustomerName   string `json:"customerName,omitempty"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
	ShippingMethod string `json:"shippingMethod,omitempty"`
	Total          int64  `json:"total"`
	CreatedAt      string `json:"createdAt"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID             string               `json:"id"`
	OrderNumber    string               `json:"orderNumber"`
	Status         string               `json:"status"`
	Total          int64                `json:"total"`
	ShippingCost   int64                `json:"shippingCost"`
	Discount       int64                `json:"discount,omitempty"`
	CouponCode     *string              `json:"couponCode,omitempty"`
	Customer       orderCustomerPayload `json:"customer"`
	Shipping       orderShippingPayload `json:"shipping"`
	ShippingMethod string               `json:"shippingMethod,omitempty"`
	ShippingAgency *string              `json:"shippingAgency,omitempty"`
	PaymentMethod  string               `json:"paymentMethod,omitempty"`
	TrackingNumber *string              `json:"trackingNumber,omitempty"`
	Payment        *orderGatewayPayload `json:"payment,omitempty"`
	Items          []orderItemPayload   `json:"items"`
	StockDebited   bool                 `json:"stockDebited,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
	Metadata       map[string]any       `json:"metadata,omitempty"`
	CreatedAt      string               `json:"createdAt"`
	UpdatedAt      string               `json:"updatedAt,omitempty"`
	PaidAt         string               `json:"paidAt,omitempty"`
	DeliveredAt    string               `json:"deliveredAt,omitempty"`
}

type orderCustomerPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type orderShippingPayload struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Floor        string `json:"floor,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

type orderGatewayPayload struct {
	PaymentID    *string `json:"paymentId,omitempty"`
	PreferenceID *string `json:"preferenceId,omitempty"`
	Status       *string `json:"status,omitempty"`
	StatusDetail *string `json:"statusDetail,omitempty"`
}

type orderItemPayload struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"price"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:             strings.TrimSpace(order.ID),
		OrderNumber:    strings.TrimSpace(order.OrderNumber),
		Status:         strings.TrimSpace(string(order.Status)),
		CustomerName:   strings.TrimSpace(order.Customer.Name),
		PaymentMethod:  strings.TrimSpace(string(order.PaymentMethod)),
		ShippingMethod: strings.TrimSpace(string(order.ShippingMethod)),
		Total:          order.Total,
		CreatedAt:      formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:             strings.TrimSpace(order.ID),
		OrderNumber:    strings.TrimSpace(order.OrderNumber),
		Status:         strings.TrimSpace(string(order.Status)),
		Total:          order.Total,
		ShippingCost:   order.ShippingCost,
		Discount:       order.Discount,
		CouponCode:     order.CouponCode,
		ShippingMethod: strings.TrimSpace(string(order.ShippingMethod)),
		ShippingAgency: order.ShippingAgency,
		PaymentMethod:  strings.TrimSpace(string(order.PaymentMethod)),
		TrackingNumber: order.TrackingNumber,
		StockDebited:   order.StockDebited,
		Notes:          order.Notes,
		Metadata:       order.Metadata,
		CreatedAt:      formatTime(order.CreatedAt),
		UpdatedAt:      formatTime(order.UpdatedAt),
		PaidAt:         formatTime(pointerTime(order.PaidAt)),
		DeliveredAt:    formatTime(pointerTime(order.DeliveredAt)),
		Customer: orderCustomerPayload{
			Name:       strings.TrimSpace(order.Customer.Name),
			Email:      strings.TrimSpace(order.Customer.Email),
			Phone:      strings.TrimSpace(order.Customer.Phone),
			Address:    strings.TrimSpace(order.Customer.Address),
			City:       strings.TrimSpace(order.Customer.City),
			Province:   strings.TrimSpace(order.Customer.Province),
			PostalCode: strings.TrimSpace(order.Customer.PostalCode),
		},
		Shipping: orderShippingPayload{
			Street:       strings.TrimSpace(order.Shipping.Street),
			Number:       strings.TrimSpace(order.Shipping.Number),
			Floor:        strings.TrimSpace(order.Shipping.Floor),
			Apartment:    strings.TrimSpace(order.Shipping.Apartment),
			City:         strings.TrimSpace(order.Shipping.City),
			Province:     strings.TrimSpace(order.Shipping.Province),
			ProvinceCode: strings.TrimSpace(order.Shipping.ProvinceCode),
			PostalCode:   strings.TrimSpace(order.Shipping.PostalCode),
		},
		Items: make([]orderItemPayload, 0, len(order.Items)),
	}

	if order.Payment.PaymentID != nil || order.Payment.PreferenceID != nil || order.Payment.Status != nil {
		payload.Payment = &orderGatewayPayload{
			PaymentID:    order.Payment.PaymentID,
			PreferenceID: order.Payment.PreferenceID,
			Status:       order.Payment.Status,
			StatusDetail: order.Payment.StatusDetail,
		}
	}

	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: strings.TrimSpace(item.ProductID),
			VariantID: item.VariantID,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotShippable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_shippable", "order is not ready for shipment", http.StatusConflict))
	case errors.Is(err, services.ErrOrderAlreadyShipped):
		httpx.WriteError(ctx, w, httpx.NewError("order_already_shipped", "order already has a tracking number", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func actorFromContext(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return strings.TrimSpace(identity.UID)
}

func parseFilterValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			value := strings.ToUpper(strings.TrimSpace(part))
			if value == "" {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			result = append(result, value)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func parseTimeParam(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func pointerTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
