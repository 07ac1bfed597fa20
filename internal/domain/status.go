package domain

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was created and no payment has been confirmed yet.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPendingPayment indicates the gateway is waiting for the buyer to pay (ticket, transfer).
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	// OrderStatusPendingReview indicates the gateway flagged the payment for manual review.
	OrderStatusPendingReview OrderStatus = "PENDING_REVIEW"
	// OrderStatusProcessing indicates the gateway is still processing the payment.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusProcessed indicates payment was confirmed and fulfilment has started.
	OrderStatusProcessed OrderStatus = "PROCESSED"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusFailed indicates the payment was rejected.
	OrderStatusFailed OrderStatus = "FAILED"
	// OrderStatusCancelled indicates the payment or order was cancelled.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRefunded indicates the payment was returned to the buyer.
	OrderStatusRefunded OrderStatus = "REFUNDED"
	// OrderStatusChargedBack indicates the buyer disputed the charge with their card issuer.
	OrderStatusChargedBack OrderStatus = "CHARGED_BACK"
)

// orderStatuses lists every persisted status value.
var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:        {},
	OrderStatusPendingPayment: {},
	OrderStatusPendingReview:  {},
	OrderStatusProcessing:     {},
	OrderStatusProcessed:      {},
	OrderStatusDelivered:      {},
	OrderStatusFailed:         {},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
	OrderStatusChargedBack:    {},
}

// IsValidOrderStatus reports whether the value is a known status.
func IsValidOrderStatus(status OrderStatus) bool {
	_, ok := orderStatuses[status]
	return ok
}

// forwardTransitions is the forward-only lifecycle chain. An order advances
// one hop at a time; skipping a hop would imply side effects (shipment,
// stock debit) that never happened.
var forwardTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusPendingPayment,
	OrderStatusPendingPayment: OrderStatusProcessed,
	OrderStatusProcessed:      OrderStatusDelivered,
}

// holdingStatuses are the payment-failure and review branches. They are
// reachable only from the pre-paid states and behave as terminal holds.
var holdingStatuses = map[OrderStatus]struct{}{
	OrderStatusPendingReview: {},
	OrderStatusProcessing:    {},
	OrderStatusFailed:        {},
	OrderStatusCancelled:     {},
	OrderStatusRefunded:      {},
	OrderStatusChargedBack:   {},
}

// CanTransition reports whether the forward lifecycle chain permits moving
// from one status to another. Identity and backward moves are always false.
func CanTransition(from, to OrderStatus) bool {
	next, ok := forwardTransitions[from]
	return ok && next == to
}

// CanHold reports whether an order may branch into a holding status. Holds
// apply only while payment is unresolved; a processed or delivered order
// never re-enters a payment branch.
func CanHold(from, to OrderStatus) bool {
	if _, ok := holdingStatuses[to]; !ok {
		return false
	}
	return from == OrderStatusPending || from == OrderStatusPendingPayment
}

// IsPaid reports whether the status implies a confirmed payment.
func IsPaid(status OrderStatus) bool {
	return status == OrderStatusProcessed || status == OrderStatusDelivered
}
