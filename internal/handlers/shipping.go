package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/platform/httpx"
	"github.com/rastuci/api/internal/shipping"
)

const maxShippingRequestBody = 8 * 1024

// ShippingHandlers exposes courier quotes and branch listings to the storefront.
type ShippingHandlers struct {
	shipping shipping.Service
}

// NewShippingHandlers constructs the shipping handlers.
func NewShippingHandlers(svc shipping.Service) *ShippingHandlers {
	return &ShippingHandlers{shipping: svc}
}

// Routes registers shipping endpoints under the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/rates", h.quoteRates)
	r.Get("/agencies", h.listAgencies)
}

type shippingRatesRequest struct {
	PostalCode string `json:"postalCode"`
	Items      []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type shippingRatePayload struct {
	DeliveredType   string  `json:"deliveredType"`
	ProductName     string  `json:"productName"`
	Price           float64 `json:"price"`
	DeliveryTimeMin string  `json:"deliveryTimeMin,omitempty"`
	DeliveryTimeMax string  `json:"deliveryTimeMax,omitempty"`
}

func (h *ShippingHandlers) quoteRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxShippingRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req shippingRatesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	postalCode := strings.TrimSpace(req.PostalCode)
	if postalCode == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "postalCode is required", http.StatusBadRequest))
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  quantity,
		})
	}

	rates, err := h.shipping.QuoteRates(ctx, postalCode, items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to quote shipping rates", http.StatusBadGateway))
		return
	}

	payload := make([]shippingRatePayload, 0, len(rates))
	for _, rate := range rates {
		payload = append(payload, shippingRatePayload{
			DeliveredType:   rate.DeliveredType,
			ProductName:     rate.ProductName,
			Price:           rate.Price,
			DeliveryTimeMin: rate.DeliveryTimeMin,
			DeliveryTimeMax: rate.DeliveryTimeMax,
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"rates": payload})
}

type shippingAgencyPayload struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	City         string `json:"city,omitempty"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

func (h *ShippingHandlers) listAgencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	provinceCode := strings.TrimSpace(r.URL.Query().Get("province"))
	if provinceCode == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "province is required", http.StatusBadRequest))
		return
	}

	agencies, err := h.shipping.ListAgencies(ctx, provinceCode)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to list agencies", http.StatusBadGateway))
		return
	}

	payload := make([]shippingAgencyPayload, 0, len(agencies))
	for _, agency := range agencies {
		payload = append(payload, shippingAgencyPayload{
			Code:         agency.Code,
			Name:         agency.Name,
			Street:       agency.Street,
			Number:       agency.Number,
			City:         agency.City,
			ProvinceCode: agency.ProvinceCode,
			PostalCode:   agency.PostalCode,
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"agencies": payload})
}
