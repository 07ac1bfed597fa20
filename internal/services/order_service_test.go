package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/shipping"
)

type stubShippingService struct {
	result      domain.ShipmentResult
	createErr   error
	createCalls []string
}

func (s *stubShippingService) CreateShipment(ctx context.Context, order domain.Order) (domain.ShipmentResult, error) {
	s.createCalls = append(s.createCalls, order.ID)
	if s.createErr != nil {
		return domain.ShipmentResult{}, s.createErr
	}
	return s.result, nil
}

func (s *stubShippingService) QuoteRates(ctx context.Context, destinationPostalCode string, items []domain.OrderItem) ([]shipping.Rate, error) {
	return nil, nil
}

func (s *stubShippingService) ListAgencies(ctx context.Context, provinceCode string) ([]shipping.Agency, error) {
	return nil, nil
}

func (s *stubShippingService) Tracking(ctx context.Context, trackingNumber string) ([]shipping.TrackingEvent, error) {
	return nil, nil
}

func newTestOrderService(t *testing.T, orders *stubOrderRepository, courier shipping.Service) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orders,
		Shipping: courier,
		Clock: func() time.Time {
			return time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func seedOrder(repo *stubOrderRepository, order domain.Order) {
	if repo.orders == nil {
		repo.orders = map[string]domain.Order{}
	}
	repo.orders[order.ID] = order
}

func TestOrderServiceChangeStatusForward(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusPendingPayment})
	svc := newTestOrderService(t, orders, &stubShippingService{})

	updated, err := svc.ChangeStatus(context.Background(), ChangeOrderStatusCommand{
		OrderID:      "ord_1",
		TargetStatus: "processed",
		ActorID:      "admin_1",
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != domain.OrderStatusProcessed {
		t.Fatalf("expected PROCESSED, got %s", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Fatalf("expected PaidAt to be set")
	}
	if len(orders.updated) != 1 {
		t.Fatalf("expected 1 update, got %d", len(orders.updated))
	}
}

func TestOrderServiceChangeStatusHold(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusPending})
	svc := newTestOrderService(t, orders, &stubShippingService{})

	updated, err := svc.ChangeStatus(context.Background(), ChangeOrderStatusCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusCancelled,
	})
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", updated.Status)
	}
}

func TestOrderServiceChangeStatusRejectsIllegalHop(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusPending})
	svc := newTestOrderService(t, orders, &stubShippingService{})

	_, err := svc.ChangeStatus(context.Background(), ChangeOrderStatusCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusDelivered,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
	if len(orders.updated) != 0 {
		t.Fatalf("rejected transition must not persist")
	}
}

func TestOrderServiceChangeStatusUnknownStatus(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusPending})
	svc := newTestOrderService(t, orders, &stubShippingService{})

	_, err := svc.ChangeStatus(context.Background(), ChangeOrderStatusCommand{
		OrderID:      "ord_1",
		TargetStatus: "ENVIADO",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceShip(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusProcessed, ShippingMethod: domain.ShippingMethodCorreoArgentino})
	courier := &stubShippingService{result: domain.ShipmentResult{TrackingNumber: "CA123456789AR"}}
	svc := newTestOrderService(t, orders, courier)

	updated, err := svc.Ship(context.Background(), ShipOrderCommand{OrderID: "ord_1", ActorID: "admin_1"})
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if updated.TrackingNumber == nil || *updated.TrackingNumber != "CA123456789AR" {
		t.Fatalf("expected tracking number persisted, got %+v", updated.TrackingNumber)
	}
	if len(orders.updated) != 1 {
		t.Fatalf("expected 1 update, got %d", len(orders.updated))
	}
}

func TestOrderServiceShipRejectsUnpaid(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusPendingPayment})
	courier := &stubShippingService{}
	svc := newTestOrderService(t, orders, courier)

	_, err := svc.Ship(context.Background(), ShipOrderCommand{OrderID: "ord_1"})
	if !errors.Is(err, ErrOrderNotShippable) {
		t.Fatalf("expected ErrOrderNotShippable, got %v", err)
	}
	if len(courier.createCalls) != 0 {
		t.Fatalf("unpaid order must not reach the courier")
	}
}

func TestOrderServiceShipRejectsAlreadyShipped(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusProcessed, TrackingNumber: strPtr("CA000000001AR")})
	svc := newTestOrderService(t, orders, &stubShippingService{})

	_, err := svc.Ship(context.Background(), ShipOrderCommand{OrderID: "ord_1"})
	if !errors.Is(err, ErrOrderAlreadyShipped) {
		t.Fatalf("expected ErrOrderAlreadyShipped, got %v", err)
	}
}

func TestOrderServiceShipSkippedLeavesOrderUntouched(t *testing.T) {
	orders := &stubOrderRepository{}
	seedOrder(orders, domain.Order{ID: "ord_1", Status: domain.OrderStatusProcessed, ShippingMethod: domain.ShippingMethodPickup})
	courier := &stubShippingService{result: domain.ShipmentResult{Skipped: true}}
	svc := newTestOrderService(t, orders, courier)

	updated, err := svc.Ship(context.Background(), ShipOrderCommand{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if updated.TrackingNumber != nil {
		t.Fatalf("skipped shipment must not assign tracking")
	}
	if len(orders.updated) != 0 {
		t.Fatalf("skipped shipment must not persist changes")
	}
}

func TestOrderServiceGetOrderNotFound(t *testing.T) {
	orders := &stubOrderRepository{}
	svc := newTestOrderService(t, orders, &stubShippingService{})

	_, err := svc.GetOrder(context.Background(), "ord_missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
