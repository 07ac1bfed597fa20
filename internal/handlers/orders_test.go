package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/services"
)

type stubOrderService struct {
	page       domain.CursorPage[services.Order]
	order      services.Order
	err        error
	statusCmds []services.ChangeOrderStatusCommand
	shipCmds   []services.ShipOrderCommand
	filters    []services.OrderListFilter
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return domain.CursorPage[services.Order]{}, s.err
	}
	return s.page, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) ChangeStatus(ctx context.Context, cmd services.ChangeOrderStatusCommand) (services.Order, error) {
	s.statusCmds = append(s.statusCmds, cmd)
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) Ship(ctx context.Context, cmd services.ShipOrderCommand) (services.Order, error) {
	s.shipCmds = append(s.shipCmds, cmd)
	if s.err != nil {
		return services.Order{}, s.err
	}
	return s.order, nil
}

func newOrdersRouter(svc services.OrderService) chi.Router {
	handlers := NewOrderHandlers(nil, svc)
	router := chi.NewRouter()
	router.Route("/orders", handlers.Routes)
	return router
}

func sampleOrder() services.Order {
	return services.Order{
		ID:          "ord_1",
		OrderNumber: "RAS-2026-000001",
		Status:      domain.OrderStatusProcessed,
		Total:       120000,
		Customer:    domain.Customer{Name: "Juana Perez", Email: "juana@example.com"},
		CreatedAt:   time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC),
	}
}

func TestOrderHandlersList(t *testing.T) {
	svc := &stubOrderService{
		page: domain.CursorPage[services.Order]{
			Items:         []services.Order{sampleOrder()},
			NextPageToken: "tok",
		},
	}
	router := newOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=processed,delivered&page_size=10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].OrderNumber != "RAS-2026-000001" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
	if body.NextPageToken != "tok" {
		t.Fatalf("expected page token, got %q", body.NextPageToken)
	}

	if len(svc.filters) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(svc.filters))
	}
	filter := svc.filters[0]
	if len(filter.Status) != 2 || filter.Status[0] != "PROCESSED" || filter.Status[1] != "DELIVERED" {
		t.Fatalf("expected uppercased status filters, got %v", filter.Status)
	}
	if filter.Pagination.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", filter.Pagination.PageSize)
	}
}

func TestOrderHandlersChangeStatus(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	router := newOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/status", strings.NewReader(`{"status": "PROCESSED", "reason": "pago confirmado"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.statusCmds) != 1 {
		t.Fatalf("expected 1 status command, got %d", len(svc.statusCmds))
	}
	cmd := svc.statusCmds[0]
	if cmd.OrderID != "ord_1" || cmd.TargetStatus != domain.OrderStatus("PROCESSED") {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if cmd.Reason != "pago confirmado" {
		t.Fatalf("expected reason, got %q", cmd.Reason)
	}
}

func TestOrderHandlersChangeStatusRequiresStatus(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder()}
	router := newOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/status", strings.NewReader(`{"reason": "sin estado"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if len(svc.statusCmds) != 0 {
		t.Fatalf("service must not be called without a status")
	}
}

func TestOrderHandlersShip(t *testing.T) {
	shipped := sampleOrder()
	tracking := "CA123456789AR"
	shipped.TrackingNumber = &tracking
	svc := &stubOrderService{order: shipped}
	router := newOrdersRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/ship", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Order.TrackingNumber == nil || *body.Order.TrackingNumber != tracking {
		t.Fatalf("expected tracking number in response, got %+v", body.Order.TrackingNumber)
	}
	if len(svc.shipCmds) != 1 || svc.shipCmds[0].OrderID != "ord_1" {
		t.Fatalf("unexpected ship commands %+v", svc.shipCmds)
	}
}

func TestOrderHandlersErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		path   string
		method string
		body   string
		status int
	}{
		{"not found", services.ErrOrderNotFound, "/orders/ord_missing", http.MethodGet, "", http.StatusNotFound},
		{"invalid transition", services.ErrOrderInvalidState, "/orders/ord_1/status", http.MethodPost, `{"status": "DELIVERED"}`, http.StatusConflict},
		{"not shippable", services.ErrOrderNotShippable, "/orders/ord_1/ship", http.MethodPost, "", http.StatusConflict},
		{"already shipped", services.ErrOrderAlreadyShipped, "/orders/ord_1/ship", http.MethodPost, "", http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{err: tc.err}
			router := newOrdersRouter(svc)

			var reader *strings.Reader
			if tc.body != "" {
				reader = strings.NewReader(tc.body)
			} else {
				reader = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, reader)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

var _ services.OrderService = (*stubOrderService)(nil)
