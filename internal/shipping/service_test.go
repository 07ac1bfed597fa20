package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/rastuci/api/internal/domain"
)

type stubCourierClient struct {
	importFn   func(ctx context.Context, req ShipmentImport) (ShipmentImportResponse, error)
	ratesFn    func(ctx context.Context, req RatesRequest) ([]Rate, error)
	agenciesFn func(ctx context.Context, provinceCode string) ([]Agency, error)
	trackingFn func(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)
	imports    int
}

func (s *stubCourierClient) ImportShipment(ctx context.Context, req ShipmentImport) (ShipmentImportResponse, error) {
	s.imports++
	if s.importFn == nil {
		return ShipmentImportResponse{TrackingNumber: "CA000000001AR"}, nil
	}
	return s.importFn(ctx, req)
}

func (s *stubCourierClient) GetRates(ctx context.Context, req RatesRequest) ([]Rate, error) {
	if s.ratesFn == nil {
		return nil, nil
	}
	return s.ratesFn(ctx, req)
}

func (s *stubCourierClient) GetAgencies(ctx context.Context, provinceCode string) ([]Agency, error) {
	if s.agenciesFn == nil {
		return nil, nil
	}
	return s.agenciesFn(ctx, provinceCode)
}

func (s *stubCourierClient) GetTracking(ctx context.Context, trackingNumber string) ([]TrackingEvent, error) {
	if s.trackingFn == nil {
		return nil, nil
	}
	return s.trackingFn(ctx, trackingNumber)
}

func newTestService(t *testing.T, client CourierClient) Service {
	t.Helper()
	svc, err := NewService(ServiceDeps{
		Client:           client,
		SenderName:       "Rastuci",
		SenderEmail:      "envios@rastuci.example",
		OriginPostalCode: "1414",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func deliveryOrder() domain.Order {
	return domain.Order{
		ID:             "order-1",
		OrderNumber:    "RAS-2024-000001",
		Total:          20000,
		ShippingMethod: domain.ShippingMethodCorreoArgentino,
		Customer: domain.Customer{
			Name:    "Ana García",
			Email:   "ana@example.com",
			Phone:   "+54 11 5555-0001",
			Address: "Av. Corrientes 1234, CABA",
		},
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Quantity: 2, UnitPrice: 10000},
		},
	}
}

func TestCreateShipmentSkipsPickupMethod(t *testing.T) {
	client := &stubCourierClient{}
	svc := newTestService(t, client)

	order := deliveryOrder()
	order.ShippingMethod = domain.ShippingMethodPickup

	result, err := svc.CreateShipment(context.Background(), order)
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected pickup order to be skipped")
	}
	if client.imports != 0 {
		t.Fatalf("courier called %d times for pickup order", client.imports)
	}
}

func TestCreateShipmentSkipsPickupAgencySentinel(t *testing.T) {
	client := &stubCourierClient{}
	svc := newTestService(t, client)

	order := deliveryOrder()
	agency := "pickup"
	order.ShippingAgency = &agency

	result, err := svc.CreateShipment(context.Background(), order)
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if !result.Skipped || client.imports != 0 {
		t.Fatal("expected agency sentinel to suppress courier call")
	}
}

func TestCreateShipmentBuildsImportRequest(t *testing.T) {
	var captured ShipmentImport
	client := &stubCourierClient{
		importFn: func(_ context.Context, req ShipmentImport) (ShipmentImportResponse, error) {
			captured = req
			return ShipmentImportResponse{TrackingNumber: "CA123456789AR"}, nil
		},
	}
	svc := newTestService(t, client)

	result, err := svc.CreateShipment(context.Background(), deliveryOrder())
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if result.Skipped {
		t.Fatal("delivery order must not be skipped")
	}
	if result.TrackingNumber != "CA123456789AR" {
		t.Fatalf("tracking = %q", result.TrackingNumber)
	}
	if captured.ShippingData.StreetName != "Av. Corrientes" || captured.ShippingData.StreetNumber != "1234" {
		t.Fatalf("resolved street = %+v", captured.ShippingData)
	}
	if captured.ShippingData.ProvinceCode != "C" {
		t.Fatalf("province = %q, want C", captured.ShippingData.ProvinceCode)
	}
	if captured.DeliveredType != homeDeliveryType {
		t.Fatalf("deliveredType = %q", captured.DeliveredType)
	}
	if captured.DeclaredValue != 200 {
		t.Fatalf("declaredValue = %v, want 200", captured.DeclaredValue)
	}
	if captured.Dimensions.WeightGrams != 600 {
		t.Fatalf("weight = %d, want 600 for 2 items", captured.Dimensions.WeightGrams)
	}
}

func TestCreateShipmentAgencyDelivery(t *testing.T) {
	var captured ShipmentImport
	client := &stubCourierClient{
		importFn: func(_ context.Context, req ShipmentImport) (ShipmentImportResponse, error) {
			captured = req
			return ShipmentImportResponse{TrackingNumber: "CA1AR"}, nil
		},
	}
	svc := newTestService(t, client)

	order := deliveryOrder()
	agency := "AG035"
	order.ShippingAgency = &agency
	order.ShippingMethod = domain.ShippingMethodCorreoAgency

	if _, err := svc.CreateShipment(context.Background(), order); err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if captured.DeliveredType != agencyDeliveryType {
		t.Fatalf("deliveredType = %q, want %q", captured.DeliveredType, agencyDeliveryType)
	}
	if captured.AgencyCode == nil || *captured.AgencyCode != "AG035" {
		t.Fatalf("agency = %v", captured.AgencyCode)
	}
}

func TestCreateShipmentCourierFailureIsReturnedNotPanicked(t *testing.T) {
	client := &stubCourierClient{
		importFn: func(context.Context, ShipmentImport) (ShipmentImportResponse, error) {
			return ShipmentImportResponse{}, ErrCorreoUnavailable
		},
	}
	svc := newTestService(t, client)

	_, err := svc.CreateShipment(context.Background(), deliveryOrder())
	if !errors.Is(err, ErrShipmentFailed) {
		t.Fatalf("err = %v, want ErrShipmentFailed", err)
	}
}

func TestEstimateWeightGrams(t *testing.T) {
	cases := []struct {
		items []domain.OrderItem
		want  int
	}{
		{items: nil, want: 500},
		{items: []domain.OrderItem{{Quantity: 1}}, want: 500},
		{items: []domain.OrderItem{{Quantity: 2}}, want: 600},
		{items: []domain.OrderItem{{Quantity: 2}, {Quantity: 3}}, want: 1500},
	}
	for _, tc := range cases {
		if got := estimateWeightGrams(tc.items); got != tc.want {
			t.Fatalf("estimateWeightGrams(%+v) = %d, want %d", tc.items, got, tc.want)
		}
	}
}

func TestQuoteRatesUsesParcelHeuristic(t *testing.T) {
	var captured RatesRequest
	client := &stubCourierClient{
		ratesFn: func(_ context.Context, req RatesRequest) ([]Rate, error) {
			captured = req
			return []Rate{{DeliveredType: "D", Price: 2500}}, nil
		},
	}
	svc := newTestService(t, client)

	rates, err := svc.QuoteRates(context.Background(), "5000", []domain.OrderItem{{Quantity: 3}})
	if err != nil {
		t.Fatalf("QuoteRates: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("rates = %d", len(rates))
	}
	if captured.PostalCodeOrigin != "1414" || captured.PostalCodeDestination != "5000" {
		t.Fatalf("postal codes = %q -> %q", captured.PostalCodeOrigin, captured.PostalCodeDestination)
	}
	if captured.Dimensions.WeightGrams != 900 {
		t.Fatalf("weight = %d, want 900", captured.Dimensions.WeightGrams)
	}
}
