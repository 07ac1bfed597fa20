package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rastuci/api/internal/platform/httpx"
	"github.com/rastuci/api/internal/services"
)

const maxCheckoutRequestBody = 32 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

// CheckoutHandlers exposes the storefront checkout endpoint.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
}

type checkoutItemPayload struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"price"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

type checkoutCustomerPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type checkoutShippingPayload struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Floor        string `json:"floor,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

type checkoutOrderData struct {
	Total int64 `json:"total"`
}

type checkoutRequest struct {
	Items          []checkoutItemPayload    `json:"items"`
	Customer       checkoutCustomerPayload  `json:"customer"`
	Shipping       *checkoutShippingPayload `json:"shipping,omitempty"`
	ShippingMethod string                   `json:"shippingMethod"`
	ShippingAgency *string                  `json:"shippingAgency,omitempty"`
	ShippingCost   int64                    `json:"shippingCost"`
	PaymentMethod  string                   `json:"paymentMethod"`
	CouponCode     *string                  `json:"couponCode,omitempty"`
	OrderData      *checkoutOrderData       `json:"orderData,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	Metadata       map[string]any           `json:"metadata,omitempty"`
}

type checkoutResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	Status        string `json:"status"`
	PaymentMethod string `json:"paymentMethod"`
	Total         int64  `json:"total"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	SandboxURL    string `json:"sandboxUrl,omitempty"`
}

func (h *CheckoutHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		Items:          make([]services.CheckoutItem, 0, len(req.Items)),
		ShippingMethod: strings.TrimSpace(req.ShippingMethod),
		ShippingAgency: req.ShippingAgency,
		ShippingCost:   req.ShippingCost,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		CouponCode:     req.CouponCode,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
		Customer: services.Customer{
			Name:       req.Customer.Name,
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			Address:    req.Customer.Address,
			City:       req.Customer.City,
			Province:   req.Customer.Province,
			PostalCode: req.Customer.PostalCode,
		},
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.CheckoutItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	if req.Shipping != nil {
		cmd.Shipping = services.ShippingAddress{
			Street:       req.Shipping.Street,
			Number:       req.Shipping.Number,
			Floor:        req.Shipping.Floor,
			Apartment:    req.Shipping.Apartment,
			City:         req.Shipping.City,
			Province:     req.Shipping.Province,
			ProvinceCode: req.Shipping.ProvinceCode,
			PostalCode:   req.Shipping.PostalCode,
		}
	}
	if req.OrderData != nil {
		cmd.DeclaredTotal = req.OrderData.Total
	}

	result, err := h.checkout.CreateOrder(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	resp := checkoutResponse{
		Success:       true,
		OrderID:       result.Order.ID,
		OrderNumber:   result.Order.OrderNumber,
		Status:        string(result.Order.Status),
		PaymentMethod: string(result.Order.PaymentMethod),
		Total:         result.Order.Total,
		RedirectURL:   result.RedirectURL,
		SandboxURL:    result.SandboxURL,
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var domainErr services.DomainError
	switch {
	case errors.As(err, &domainErr):
		// carries the buyer-facing Spanish message verbatim
		httpx.WriteError(ctx, w, httpx.NewError(domainErr.Code(), domainErr.SafeMessage(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "no se pudo iniciar el pago", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxCheckoutRequestBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
