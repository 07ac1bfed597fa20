package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/payments"
	"github.com/rastuci/api/internal/repositories"
	"github.com/rastuci/api/internal/shipping"
)

const (
	webhookActionPaymentCreated = "payment.created"
	webhookActionPaymentUpdated = "payment.updated"
)

var (
	// ErrWebhookInvalidNotification signals a notification the reconciler cannot act on.
	ErrWebhookInvalidNotification = errors.New("webhook: invalid notification")
	// ErrWebhookPaymentUnavailable indicates the payment could not be fetched from the gateway.
	ErrWebhookPaymentUnavailable = errors.New("webhook: payment unavailable")
	// ErrWebhookOrderNotFound indicates the payment references an unknown order.
	ErrWebhookOrderNotFound = errors.New("webhook: order not found")
)

// canonicalToOrderStatus translates mapper output into lifecycle targets. The
// mapper's paid marker becomes the order-level PROCESSED state.
var canonicalToOrderStatus = map[payments.CanonicalStatus]domain.OrderStatus{
	payments.CanonicalCompleted:      domain.OrderStatusProcessed,
	payments.CanonicalPending:        domain.OrderStatusPending,
	payments.CanonicalPendingPayment: domain.OrderStatusPendingPayment,
	payments.CanonicalPendingReview:  domain.OrderStatusPendingReview,
	payments.CanonicalProcessing:     domain.OrderStatusProcessing,
	payments.CanonicalFailed:         domain.OrderStatusFailed,
	payments.CanonicalCancelled:      domain.OrderStatusCancelled,
	payments.CanonicalRefunded:       domain.OrderStatusRefunded,
	payments.CanonicalChargedBack:    domain.OrderStatusChargedBack,
}

// PaymentWebhookServiceDeps bundles the reconciliation pipeline collaborators.
type PaymentWebhookServiceDeps struct {
	Orders        repositories.OrderRepository
	Inventory     repositories.InventoryRepository
	Payments      payments.Provider
	Shipping      shipping.Service
	Notifications NotificationDispatcher
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type paymentWebhookService struct {
	orders        repositories.OrderRepository
	inventory     repositories.InventoryRepository
	payments      payments.Provider
	shipping      shipping.Service
	notifications NotificationDispatcher
	now           func() time.Time
	logger        func(context.Context, string, map[string]any)
}

// NewPaymentWebhookService wires the gateway reconciliation pipeline.
func NewPaymentWebhookService(deps PaymentWebhookServiceDeps) (PaymentWebhookService, error) {
	if deps.Orders == nil {
		return nil, errors.New("webhook service: order repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("webhook service: inventory repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("webhook service: payment provider is required")
	}
	if deps.Shipping == nil {
		return nil, errors.New("webhook service: shipping service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentWebhookService{
		orders:        deps.Orders,
		inventory:     deps.Inventory,
		payments:      deps.Payments,
		shipping:      deps.Shipping,
		notifications: deps.Notifications,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// ProcessNotification reconciles one gateway notification against order
// state. Each downstream step is fault-isolated: a stock or courier failure
// is recorded and logged without undoing the payment outcome.
func (s *paymentWebhookService) ProcessNotification(ctx context.Context, cmd PaymentNotificationCommand) error {
	if s == nil || s.orders == nil {
		return ErrWebhookInvalidNotification
	}

	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	if action != webhookActionPaymentCreated && action != webhookActionPaymentUpdated {
		return fmt.Errorf("%w: unsupported action %q", ErrWebhookInvalidNotification, cmd.Action)
	}
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if paymentID == "" {
		return fmt.Errorf("%w: payment id is required", ErrWebhookInvalidNotification)
	}

	details, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger(ctx, "webhook.payment.fetch_failed", map[string]any{
			"paymentId": paymentID,
			"error":     err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrWebhookPaymentUnavailable, err)
	}

	orderID := strings.TrimSpace(details.ExternalReference)
	if orderID == "" {
		s.logger(ctx, "webhook.payment.missing_reference", map[string]any{
			"paymentId": paymentID,
			"status":    details.Status,
		})
		return fmt.Errorf("%w: payment %s carries no external reference", ErrWebhookInvalidNotification, paymentID)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			s.logger(ctx, "webhook.order.not_found", map[string]any{
				"paymentId": paymentID,
				"orderId":   orderID,
			})
			return fmt.Errorf("%w: %s", ErrWebhookOrderNotFound, orderID)
		}
		return fmt.Errorf("webhook: load order %s: %w", orderID, err)
	}

	canonical := payments.MapPaymentStatus(details.Status, details.StatusDetail)
	target := canonicalToOrderStatus[canonical]

	now := s.now()
	order.Payment.PaymentID = &paymentID
	gatewayStatus := strings.TrimSpace(details.Status)
	order.Payment.Status = &gatewayStatus
	if detail := strings.TrimSpace(details.StatusDetail); detail != "" {
		order.Payment.StatusDetail = &detail
	}

	previous := order.Status
	becamePaid := s.applyTransition(ctx, &order, target, now)

	order.UpdatedAt = now
	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("webhook: persist order %s: %w", order.ID, err)
	}
	s.logger(ctx, "webhook.order.reconciled", map[string]any{
		"paymentId": paymentID,
		"orderId":   order.ID,
		"canonical": string(canonical),
		"from":      string(previous),
		"to":        string(order.Status),
	})

	if becamePaid {
		s.settlePaidOrder(ctx, &order, paymentID, now)
		s.dispatchNotification(ctx, order, "order.paid", now)
	}

	return nil
}

// applyTransition advances the order toward target one legal hop at a time,
// or parks it in a holding state. Invalid requests are logged and skipped so
// the rest of the pipeline still runs. Reports whether the order became paid.
func (s *paymentWebhookService) applyTransition(ctx context.Context, order *domain.Order, target domain.OrderStatus, now time.Time) bool {
	if target == "" || order.Status == target {
		return false
	}

	wasPaid := domain.IsPaid(order.Status)

	switch {
	case domain.CanHold(order.Status, target):
		order.Status = target
	case forwardReachable(order.Status, target):
		// Take every intermediate hop so no state is skipped.
		for order.Status != target {
			order.Status = nextForwardStatus(order.Status)
		}
	default:
		// Backward or unreachable targets never mutate the order.
		s.logger(ctx, "webhook.transition.skipped", map[string]any{
			"orderId": order.ID,
			"current": string(order.Status),
			"target":  string(target),
		})
		return false
	}

	becamePaid := !wasPaid && domain.IsPaid(order.Status)
	if becamePaid && order.PaidAt == nil {
		order.PaidAt = &now
	}
	return becamePaid
}

// nextForwardStatus returns the next hop on the forward chain, or "" at the
// end of the chain and for holding states.
func nextForwardStatus(status domain.OrderStatus) domain.OrderStatus {
	switch status {
	case domain.OrderStatusPending:
		return domain.OrderStatusPendingPayment
	case domain.OrderStatusPendingPayment:
		return domain.OrderStatusProcessed
	case domain.OrderStatusProcessed:
		return domain.OrderStatusDelivered
	default:
		return ""
	}
}

// forwardReachable reports whether target lies strictly ahead of from on the
// forward chain.
func forwardReachable(from, target domain.OrderStatus) bool {
	for current := from; ; {
		next := nextForwardStatus(current)
		if next == "" || !domain.CanTransition(current, next) {
			return false
		}
		if next == target {
			return true
		}
		current = next
	}
}

// settlePaidOrder runs the paid-order side effects: stock debit and courier
// shipment. Pickup orders need neither. Failures are recorded on the order,
// never propagated.
func (s *paymentWebhookService) settlePaidOrder(ctx context.Context, order *domain.Order, paymentID string, now time.Time) {
	if shipping.IsPickup(*order) {
		return
	}
	s.debitStock(ctx, order, paymentID, now)
	s.createShipment(ctx, order, now)
}

func (s *paymentWebhookService) debitStock(ctx context.Context, order *domain.Order, paymentID string, now time.Time) {
	if order.StockDebited {
		return
	}

	lines := make([]repositories.StockDebitLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, repositories.StockDebitLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	result, err := s.inventory.DebitForPayment(ctx, repositories.StockDebitRequest{
		PaymentID: paymentID,
		OrderID:   order.ID,
		Lines:     lines,
		Now:       now,
	})
	if err != nil {
		s.logger(ctx, "webhook.stock.debit_failed", map[string]any{
			"orderId":   order.ID,
			"paymentId": paymentID,
			"error":     err.Error(),
		})
		if order.Metadata == nil {
			order.Metadata = map[string]any{}
		}
		order.Metadata["stockError"] = err.Error()
		if updateErr := s.orders.Update(ctx, *order); updateErr != nil {
			s.logger(ctx, "webhook.stock.record_failed", map[string]any{
				"orderId": order.ID,
				"error":   updateErr.Error(),
			})
		}
		return
	}

	order.StockDebited = true
	order.UpdatedAt = now
	if err := s.orders.Update(ctx, *order); err != nil {
		s.logger(ctx, "webhook.stock.record_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
	if result.AlreadyProcessed {
		s.logger(ctx, "webhook.stock.already_processed", map[string]any{
			"orderId":   order.ID,
			"paymentId": paymentID,
		})
	}
}

func (s *paymentWebhookService) createShipment(ctx context.Context, order *domain.Order, now time.Time) {
	if order.TrackingNumber != nil && strings.TrimSpace(*order.TrackingNumber) != "" {
		return
	}

	result, err := s.shipping.CreateShipment(ctx, *order)
	if err != nil {
		// The order stays paid without tracking; operators retry via the
		// admin ship endpoint.
		s.logger(ctx, "webhook.shipment.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return
	}
	if result.Skipped {
		return
	}

	tracking := strings.TrimSpace(result.TrackingNumber)
	order.TrackingNumber = &tracking
	order.UpdatedAt = now
	if err := s.orders.Update(ctx, *order); err != nil {
		s.logger(ctx, "webhook.shipment.record_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *paymentWebhookService) dispatchNotification(ctx context.Context, order domain.Order, event string, now time.Time) {
	if s.notifications == nil {
		return
	}
	s.notifications.DispatchOrderEvent(ctx, OrderEventNotification{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Event:       event,
		Email:       order.Customer.Email,
		Total:       order.Total,
		OccurredAt:  now,
	})
}
