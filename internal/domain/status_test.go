package domain

import "testing"

func allOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPendingPayment,
		OrderStatusPendingReview,
		OrderStatusProcessing,
		OrderStatusProcessed,
		OrderStatusDelivered,
		OrderStatusFailed,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusChargedBack,
	}
}

func TestCanTransitionForwardChainOnly(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusPendingPayment}:   true,
		{OrderStatusPendingPayment, OrderStatusProcessed}: true,
		{OrderStatusProcessed, OrderStatusDelivered}:      true,
	}
	for _, from := range allOrderStatuses() {
		for _, to := range allOrderStatuses() {
			want := allowed[[2]OrderStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionRejectsIdentity(t *testing.T) {
	for _, status := range allOrderStatuses() {
		if CanTransition(status, status) {
			t.Fatalf("identity transition %s allowed", status)
		}
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	if CanTransition(OrderStatusPending, OrderStatusProcessed) {
		t.Fatal("PENDING to PROCESSED must not skip PENDING_PAYMENT")
	}
	if CanTransition(OrderStatusPending, OrderStatusDelivered) {
		t.Fatal("PENDING to DELIVERED must not be allowed")
	}
	if CanTransition(OrderStatusPendingPayment, OrderStatusDelivered) {
		t.Fatal("PENDING_PAYMENT to DELIVERED must not skip PROCESSED")
	}
}

func TestCanTransitionDeliveredIsTerminal(t *testing.T) {
	for _, to := range allOrderStatuses() {
		if CanTransition(OrderStatusDelivered, to) {
			t.Fatalf("DELIVERED must be terminal, got transition to %s", to)
		}
	}
}

func TestCanHoldOnlyFromUnpaidStates(t *testing.T) {
	holds := []OrderStatus{
		OrderStatusPendingReview,
		OrderStatusProcessing,
		OrderStatusFailed,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusChargedBack,
	}
	for _, hold := range holds {
		if !CanHold(OrderStatusPending, hold) {
			t.Fatalf("expected hold %s reachable from PENDING", hold)
		}
		if !CanHold(OrderStatusPendingPayment, hold) {
			t.Fatalf("expected hold %s reachable from PENDING_PAYMENT", hold)
		}
		if CanHold(OrderStatusProcessed, hold) {
			t.Fatalf("hold %s must not be reachable from PROCESSED", hold)
		}
		if CanHold(OrderStatusDelivered, hold) {
			t.Fatalf("hold %s must not be reachable from DELIVERED", hold)
		}
	}
	if CanHold(OrderStatusPending, OrderStatusProcessed) {
		t.Fatal("PROCESSED is not a holding status")
	}
	if CanHold(OrderStatusPendingPayment, OrderStatusDelivered) {
		t.Fatal("DELIVERED is not a holding status")
	}
}

func TestIsPaid(t *testing.T) {
	for _, status := range allOrderStatuses() {
		want := status == OrderStatusProcessed || status == OrderStatusDelivered
		if got := IsPaid(status); got != want {
			t.Fatalf("IsPaid(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, status := range allOrderStatuses() {
		if !IsValidOrderStatus(status) {
			t.Fatalf("expected %s to be valid", status)
		}
	}
	if IsValidOrderStatus("SHIPPED") {
		t.Fatal("unknown status accepted")
	}
}
