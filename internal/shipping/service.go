package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rastuci/api/internal/domain"
)

const (
	// pickupSentinel marks in-store collection. It can appear either as the
	// shipping method or, from older checkout clients, as the agency id.
	pickupSentinel = "pickup"

	minShipmentWeightGrams  = 500
	perItemWeightGrams      = 300
	placeholderBoxHeightCm  = 10
	placeholderBoxWidthCm   = 30
	placeholderBoxLengthCm  = 40
	homeDeliveryType        = "D"
	agencyDeliveryType      = "S"
	defaultCourierProduct   = "CP"
	defaultOriginPostalCode = "1000"
)

var (
	// ErrShipmentInvalidOrder indicates the order lacks the data required to build a shipment.
	ErrShipmentInvalidOrder = errors.New("shipping: invalid order")
	// ErrShipmentFailed indicates the courier rejected or could not process the import.
	ErrShipmentFailed = errors.New("shipping: shipment import failed")
)

// CourierClient abstracts the MiCorreo API for the shipment service.
type CourierClient interface {
	GetRates(ctx context.Context, req RatesRequest) ([]Rate, error)
	GetAgencies(ctx context.Context, provinceCode string) ([]Agency, error)
	ImportShipment(ctx context.Context, req ShipmentImport) (ShipmentImportResponse, error)
	GetTracking(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)
}

// Service derives courier shipments from orders.
type Service interface {
	CreateShipment(ctx context.Context, order domain.Order) (domain.ShipmentResult, error)
	QuoteRates(ctx context.Context, destinationPostalCode string, items []domain.OrderItem) ([]Rate, error)
	ListAgencies(ctx context.Context, provinceCode string) ([]Agency, error)
	Tracking(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)
}

// ServiceDeps wires the dependencies required by the shipment service.
type ServiceDeps struct {
	Client           CourierClient
	SenderName       string
	SenderEmail      string
	SenderPhone      string
	OriginPostalCode string
	Logger           func(ctx context.Context, event string, fields map[string]any)
	Clock            func() time.Time
}

type service struct {
	client           CourierClient
	senderName       string
	senderEmail      string
	senderPhone      string
	originPostalCode string
	logger           func(ctx context.Context, event string, fields map[string]any)
	now              func() time.Time
}

// NewService constructs a shipment Service validating required dependencies.
func NewService(deps ServiceDeps) (Service, error) {
	if deps.Client == nil {
		return nil, errors.New("shipping service: courier client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	origin := strings.TrimSpace(deps.OriginPostalCode)
	if origin == "" {
		origin = defaultOriginPostalCode
	}
	return &service{
		client:           deps.Client,
		senderName:       strings.TrimSpace(deps.SenderName),
		senderEmail:      strings.TrimSpace(deps.SenderEmail),
		senderPhone:      strings.TrimSpace(deps.SenderPhone),
		originPostalCode: origin,
		logger:           logger,
		now: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// IsPickup reports whether the order is collected in store and therefore must
// never generate a courier shipment.
func IsPickup(order domain.Order) bool {
	if strings.EqualFold(strings.TrimSpace(string(order.ShippingMethod)), pickupSentinel) {
		return true
	}
	if order.ShippingAgency != nil && strings.EqualFold(strings.TrimSpace(*order.ShippingAgency), pickupSentinel) {
		return true
	}
	return false
}

// estimateWeightGrams is a crude linear stand-in for a measured parcel weight.
func estimateWeightGrams(items []domain.OrderItem) int {
	count := 0
	for _, item := range items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	weight := count * perItemWeightGrams
	if weight < minShipmentWeightGrams {
		weight = minShipmentWeightGrams
	}
	return weight
}

// CreateShipment resolves the destination address and registers the shipment
// with the courier. Pickup orders short-circuit to a skipped result. Courier
// failures are logged and returned as errors so the caller can decide to keep
// going; they never panic the reconciliation flow.
func (s *service) CreateShipment(ctx context.Context, order domain.Order) (domain.ShipmentResult, error) {
	if s == nil || s.client == nil {
		return domain.ShipmentResult{}, ErrShipmentFailed
	}
	if IsPickup(order) {
		s.logger(ctx, "shipping.shipment.skipped_pickup", map[string]any{
			"orderId": order.ID,
		})
		return domain.ShipmentResult{Skipped: true}, nil
	}
	if strings.TrimSpace(order.ID) == "" || strings.TrimSpace(order.Customer.Name) == "" {
		return domain.ShipmentResult{}, ErrShipmentInvalidOrder
	}

	resolved := ResolveAddress(order)
	if resolved.StreetName == "" {
		s.logger(ctx, "shipping.shipment.unresolvable_address", map[string]any{
			"orderId": order.ID,
		})
		return domain.ShipmentResult{}, ErrShipmentInvalidOrder
	}

	deliveredType := homeDeliveryType
	var agencyCode *string
	if order.ShippingAgency != nil && strings.TrimSpace(*order.ShippingAgency) != "" {
		code := strings.TrimSpace(*order.ShippingAgency)
		agencyCode = &code
		deliveredType = agencyDeliveryType
	}

	importReq := ShipmentImport{
		ExtOrderID:  order.ID,
		OrderNumber: order.OrderNumber,
		Sender: Sender{
			Name:  s.senderName,
			Email: s.senderEmail,
			Phone: s.senderPhone,
		},
		Recipient: Recipient{
			Name:  strings.TrimSpace(order.Customer.Name),
			Email: strings.TrimSpace(order.Customer.Email),
			Phone: strings.TrimSpace(order.Customer.Phone),
		},
		ShippingData: Address{
			StreetName:   resolved.StreetName,
			StreetNumber: resolved.StreetNumber,
			Floor:        resolved.Floor,
			Apartment:    resolved.Apartment,
			City:         resolved.City,
			ProvinceCode: resolved.ProvinceCode,
			PostalCode:   resolved.PostalCode,
		},
		AgencyCode:    agencyCode,
		DeliveredType: deliveredType,
		ProductType:   defaultCourierProduct,
		DeclaredValue: float64(order.Total) / 100,
		Dimensions: Dimensions{
			WeightGrams: estimateWeightGrams(order.Items),
			HeightCm:    placeholderBoxHeightCm,
			WidthCm:     placeholderBoxWidthCm,
			LengthCm:    placeholderBoxLengthCm,
		},
	}

	resp, err := s.client.ImportShipment(ctx, importReq)
	if err != nil {
		s.logger(ctx, "shipping.shipment.import_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.ShipmentResult{}, fmt.Errorf("%w: %v", ErrShipmentFailed, err)
	}

	s.logger(ctx, "shipping.shipment.created", map[string]any{
		"orderId":  order.ID,
		"tracking": resp.TrackingNumber,
	})
	return domain.ShipmentResult{TrackingNumber: resp.TrackingNumber}, nil
}

// QuoteRates prices delivery for a destination using the same parcel
// heuristic applied at import time, so quotes match the shipped parcel.
func (s *service) QuoteRates(ctx context.Context, destinationPostalCode string, items []domain.OrderItem) ([]Rate, error) {
	destination := strings.TrimSpace(destinationPostalCode)
	if destination == "" {
		return nil, errors.New("shipping service: destination postal code is required")
	}
	return s.client.GetRates(ctx, RatesRequest{
		PostalCodeOrigin:      s.originPostalCode,
		PostalCodeDestination: destination,
		DeliveredType:         homeDeliveryType,
		Dimensions: Dimensions{
			WeightGrams: estimateWeightGrams(items),
			HeightCm:    placeholderBoxHeightCm,
			WidthCm:     placeholderBoxWidthCm,
			LengthCm:    placeholderBoxLengthCm,
		},
	})
}

// ListAgencies lists courier branch offices for a province.
func (s *service) ListAgencies(ctx context.Context, provinceCode string) ([]Agency, error) {
	code := strings.ToUpper(strings.TrimSpace(provinceCode))
	if code == "" {
		return nil, errors.New("shipping service: province code is required")
	}
	return s.client.GetAgencies(ctx, code)
}

// Tracking returns the courier scan history for a tracking number.
func (s *service) Tracking(ctx context.Context, trackingNumber string) ([]TrackingEvent, error) {
	return s.client.GetTracking(ctx, trackingNumber)
}
