package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
	"github.com/rastuci/api/internal/shipping"
)

const defaultOrderPageSize = 50

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderNotShippable indicates the order does not qualify for courier shipment.
	ErrOrderNotShippable = errors.New("order: not shippable")
	// ErrOrderAlreadyShipped indicates the order already carries a tracking number.
	ErrOrderAlreadyShipped = errors.New("order: already shipped")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Shipping shipping.Service
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	shipping shipping.Service
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		shipping: deps.Shipping,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	if s == nil || s.orders == nil {
		return domain.CursorPage[Order]{}, ErrOrderNotFound
	}
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = defaultOrderPageSize
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateError(err)
	}
	return page, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderNotFound
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateError(err)
	}
	return order, nil
}

// ChangeStatus applies an operator-requested lifecycle transition. Forward
// hops and holds are both honoured; anything else is rejected.
func (s *orderService) ChangeStatus(ctx context.Context, cmd ChangeOrderStatusCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderNotFound
	}
	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(cmd.TargetStatus))))
	if !domain.IsValidOrderStatus(target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.TargetStatus)
	}

	order, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	if !domain.CanTransition(order.Status, target) && !domain.CanHold(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, target)
	}

	now := s.now()
	previous := order.Status
	order.Status = target
	order.UpdatedAt = now
	switch target {
	case domain.OrderStatusProcessed:
		if order.PaidAt == nil {
			order.PaidAt = &now
		}
	case domain.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.translateError(err)
	}
	s.logger(ctx, "orders.status.changed", map[string]any{
		"orderId": order.ID,
		"from":    string(previous),
		"to":      string(target),
		"actorId": cmd.ActorID,
		"reason":  cmd.Reason,
	})
	return order, nil
}

// Ship retries courier shipment creation for a paid order that has no
// tracking number yet.
func (s *orderService) Ship(ctx context.Context, cmd ShipOrderCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderNotFound
	}
	if s.shipping == nil {
		return Order{}, errors.New("order service: shipping service is not configured")
	}

	order, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !domain.IsPaid(order.Status) {
		return Order{}, fmt.Errorf("%w: order %s is %s", ErrOrderNotShippable, order.ID, order.Status)
	}
	if order.TrackingNumber != nil && strings.TrimSpace(*order.TrackingNumber) != "" {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderAlreadyShipped, *order.TrackingNumber)
	}

	result, err := s.shipping.CreateShipment(ctx, order)
	if err != nil {
		return Order{}, err
	}
	if result.Skipped {
		return order, nil
	}

	tracking := strings.TrimSpace(result.TrackingNumber)
	order.TrackingNumber = &tracking
	order.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.translateError(err)
	}
	s.logger(ctx, "orders.shipment.created", map[string]any{
		"orderId":        order.ID,
		"trackingNumber": tracking,
		"actorId":        cmd.ActorID,
	})
	return order, nil
}

func (s *orderService) translateError(err error) error {
	if err == nil {
		return nil
	}
	if repoErr, ok := err.(repositories.RepositoryError); ok {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderInvalidState, err)
		}
	}
	return err
}
