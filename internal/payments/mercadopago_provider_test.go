package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

type stubPaymentAPI struct {
	getFn func(ctx context.Context, id int) (*payment.Response, error)
}

func (s *stubPaymentAPI) Get(ctx context.Context, id int) (*payment.Response, error) {
	return s.getFn(ctx, id)
}

type stubPreferenceAPI struct {
	createFn func(ctx context.Context, req preference.Request) (*preference.Response, error)
}

func (s *stubPreferenceAPI) Create(ctx context.Context, req preference.Request) (*preference.Response, error) {
	return s.createFn(ctx, req)
}

func newTestProvider(t *testing.T, payments mercadoPagoPaymentAPI, preferences mercadoPagoPreferenceAPI) *MercadoPagoProvider {
	t.Helper()
	provider, err := NewMercadoPagoProvider(MercadoPagoProviderConfig{
		Clients: &mercadoPagoClients{payments: payments, preferences: preferences},
		Clock:   func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewMercadoPagoProvider: %v", err)
	}
	return provider
}

func TestNewMercadoPagoProviderRequiresAccessToken(t *testing.T) {
	if _, err := NewMercadoPagoProvider(MercadoPagoProviderConfig{}); err == nil {
		t.Fatal("expected error without access token or clients")
	}
}

func TestCreatePreferenceBuildsRequest(t *testing.T) {
	var captured preference.Request
	preferences := &stubPreferenceAPI{
		createFn: func(_ context.Context, req preference.Request) (*preference.Response, error) {
			captured = req
			return &preference.Response{ID: "pref-1", InitPoint: "https://mp.example/init"}, nil
		},
	}
	provider := newTestProvider(t, &stubPaymentAPI{}, preferences)

	pref, err := provider.CreatePreference(context.Background(), PreferenceRequest{
		OrderID:         "order-1",
		PayerEmail:      "ana@example.com",
		PayerName:       "Ana",
		NotificationURL: "https://shop.example/api/v1/webhooks/mercadopago",
		SuccessURL:      "https://shop.example/gracias",
		Items: []PreferenceLineItem{
			{ID: "prod-1", Title: "Remera", Quantity: 2, UnitAmount: 10000},
		},
	})
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.ID != "pref-1" || pref.RedirectURL != "https://mp.example/init" {
		t.Fatalf("unexpected preference %+v", pref)
	}
	if captured.ExternalReference != "order-1" {
		t.Fatalf("external reference = %q, want order-1", captured.ExternalReference)
	}
	if len(captured.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(captured.Items))
	}
	if captured.Items[0].UnitPrice != 100 {
		t.Fatalf("unit price = %v, want 100", captured.Items[0].UnitPrice)
	}
	if captured.Items[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", captured.Items[0].Quantity)
	}
	if captured.BackURLs == nil || captured.BackURLs.Success != "https://shop.example/gracias" {
		t.Fatalf("back urls not propagated: %+v", captured.BackURLs)
	}
	if captured.Payer == nil || captured.Payer.Email != "ana@example.com" {
		t.Fatalf("payer not propagated: %+v", captured.Payer)
	}
}

func TestCreatePreferenceRejectsEmptyCart(t *testing.T) {
	provider := newTestProvider(t, &stubPaymentAPI{}, &stubPreferenceAPI{})
	if _, err := provider.CreatePreference(context.Background(), PreferenceRequest{OrderID: "order-1"}); err == nil {
		t.Fatal("expected error for empty items")
	}
}

func TestGetPaymentNormalisesResponse(t *testing.T) {
	approved := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	payments := &stubPaymentAPI{
		getFn: func(_ context.Context, id int) (*payment.Response, error) {
			if id != 123456 {
				return nil, errors.New("unexpected id")
			}
			return &payment.Response{
				ID:                123456,
				Status:            "approved",
				StatusDetail:      "accredited",
				ExternalReference: "order-1",
				TransactionAmount: 200.50,
				CurrencyID:        "ars",
				DateApproved:      approved,
			}, nil
		},
	}
	provider := newTestProvider(t, payments, &stubPreferenceAPI{})

	details, err := provider.GetPayment(context.Background(), "123456")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if details.ID != "123456" {
		t.Fatalf("id = %q", details.ID)
	}
	if details.Status != "approved" || details.StatusDetail != "accredited" {
		t.Fatalf("status = %q/%q", details.Status, details.StatusDetail)
	}
	if details.ExternalReference != "order-1" {
		t.Fatalf("external reference = %q", details.ExternalReference)
	}
	if details.Amount != 20050 {
		t.Fatalf("amount = %d centavos, want 20050", details.Amount)
	}
	if details.Currency != "ARS" {
		t.Fatalf("currency = %q", details.Currency)
	}
	if details.ApprovedAt == nil || !details.ApprovedAt.Equal(approved) {
		t.Fatalf("approvedAt = %v", details.ApprovedAt)
	}
}

func TestGetPaymentRejectsMalformedID(t *testing.T) {
	provider := newTestProvider(t, &stubPaymentAPI{}, &stubPreferenceAPI{})
	if _, err := provider.GetPayment(context.Background(), "not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric payment id")
	}
}
