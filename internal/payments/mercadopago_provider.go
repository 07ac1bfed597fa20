package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

// MercadoPagoLogger defines the logging contract for gateway operations.
type MercadoPagoLogger func(ctx context.Context, event string, fields map[string]any)

type mercadoPagoPaymentAPI interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

type mercadoPagoPreferenceAPI interface {
	Create(ctx context.Context, req preference.Request) (*preference.Response, error)
}

type mercadoPagoClients struct {
	payments    mercadoPagoPaymentAPI
	preferences mercadoPagoPreferenceAPI
}

// MercadoPagoProviderConfig configures the MercadoPagoProvider.
type MercadoPagoProviderConfig struct {
	AccessToken string
	Currency    string
	Logger      MercadoPagoLogger
	Clock       func() time.Time
	Clients     *mercadoPagoClients
}

// MercadoPagoProvider implements the Provider interface against the
// MercadoPago REST API.
type MercadoPagoProvider struct {
	api      mercadoPagoClients
	currency string
	clock    func() time.Time
	logger   MercadoPagoLogger
}

// NewMercadoPagoProvider constructs a MercadoPago Provider using the given configuration.
func NewMercadoPagoProvider(cfg MercadoPagoProviderConfig) (*MercadoPagoProvider, error) {
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" && cfg.Clients == nil {
		return nil, errors.New("mercadopago: access token is required")
	}

	var clients mercadoPagoClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sdkCfg, err := config.New(accessToken)
		if err != nil {
			return nil, fmt.Errorf("mercadopago: build sdk config: %w", err)
		}
		clients = mercadoPagoClients{
			payments:    payment.NewClient(sdkCfg),
			preferences: preference.NewClient(sdkCfg),
		}
	}

	if clients.payments == nil || clients.preferences == nil {
		return nil, errors.New("mercadopago: incomplete client configuration")
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "ARS"
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &MercadoPagoProvider{
		api:      clients,
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreatePreference creates a MercadoPago checkout preference for an order.
// The order id travels as the external reference so the webhook can correlate
// the payment back to the order.
func (p *MercadoPagoProvider) CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error) {
	if p == nil {
		return Preference{}, errors.New("mercadopago: provider is nil")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return Preference{}, errors.New("mercadopago: order id is required")
	}

	items := make([]preference.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, preference.ItemRequest{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Quantity:    quantity,
			UnitPrice:   centavosToAmount(item.UnitAmount),
			CurrencyID:  strings.ToUpper(defaultString(item.Currency, p.currency)),
		})
	}
	if len(items) == 0 {
		return Preference{}, errors.New("mercadopago: at least one line item is required")
	}

	request := preference.Request{
		Items:             items,
		ExternalReference: orderID,
	}
	if url := strings.TrimSpace(req.NotificationURL); url != "" {
		request.NotificationURL = url
	}
	if req.SuccessURL != "" || req.PendingURL != "" || req.FailureURL != "" {
		request.BackURLs = &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Pending: req.PendingURL,
			Failure: req.FailureURL,
		}
	}
	if email := strings.TrimSpace(req.PayerEmail); email != "" {
		request.Payer = &preference.PayerRequest{
			Name:  strings.TrimSpace(req.PayerName),
			Email: email,
		}
	}

	resp, err := p.api.preferences.Create(ctx, request)
	if err != nil {
		return Preference{}, fmt.Errorf("mercadopago: create preference: %w", err)
	}

	p.logger(ctx, "payments.mercadopago.preference.created", map[string]any{
		"preferenceId": resp.ID,
		"orderId":      orderID,
	})

	return Preference{
		ID:          resp.ID,
		RedirectURL: resp.InitPoint,
		SandboxURL:  resp.SandboxInitPoint,
	}, nil
}

// GetPayment retrieves a payment by its gateway id for reconciliation.
func (p *MercadoPagoProvider) GetPayment(ctx context.Context, paymentID string) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("mercadopago: provider is nil")
	}
	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("mercadopago: invalid payment id %q: %w", paymentID, err)
	}

	resp, err := p.api.payments.Get(ctx, id)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("mercadopago: get payment %d: %w", id, err)
	}
	if resp == nil {
		return PaymentDetails{}, ErrPaymentNotFound
	}

	p.logger(ctx, "payments.mercadopago.payment.fetched", map[string]any{
		"paymentId":         resp.ID,
		"status":            resp.Status,
		"externalReference": resp.ExternalReference,
	})

	return mercadoPagoPaymentDetails(resp), nil
}

func mercadoPagoPaymentDetails(resp *payment.Response) PaymentDetails {
	if resp == nil {
		return PaymentDetails{}
	}

	var approvedAt *time.Time
	if !resp.DateApproved.IsZero() {
		t := resp.DateApproved.UTC()
		approvedAt = &t
	}

	raw := map[string]any{}
	if data, err := json.Marshal(resp); err == nil {
		_ = json.Unmarshal(data, &raw)
	} else {
		raw["payment"] = resp
	}

	return PaymentDetails{
		ID:                strconv.Itoa(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Amount:            amountToCentavos(resp.TransactionAmount),
		Currency:          strings.ToUpper(resp.CurrencyID),
		ApprovedAt:        approvedAt,
		Raw:               raw,
	}
}

func centavosToAmount(cents int64) float64 {
	return float64(cents) / 100
}

func amountToCentavos(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
