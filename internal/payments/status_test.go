package payments

import "testing"

func TestMapPaymentStatus(t *testing.T) {
	cases := []struct {
		name   string
		status string
		detail string
		want   CanonicalStatus
	}{
		{name: "approved", status: "approved", detail: "accredited", want: CanonicalCompleted},
		{name: "approved empty detail", status: "approved", detail: "", want: CanonicalCompleted},
		{name: "pending waiting payment", status: "pending", detail: "pending_waiting_payment", want: CanonicalPendingPayment},
		{name: "pending waiting transfer", status: "pending", detail: "pending_waiting_transfer", want: CanonicalPendingPayment},
		{name: "pending review manual", status: "pending", detail: "pending_review_manual", want: CanonicalPendingReview},
		{name: "pending waiting remedy", status: "pending", detail: "pending_waiting_for_remedy", want: CanonicalPendingReview},
		{name: "pending unknown detail", status: "pending", detail: "pending_contingency", want: CanonicalPending},
		{name: "pending empty detail", status: "pending", detail: "", want: CanonicalPending},
		{name: "in process", status: "in_process", detail: "pending_review_manual", want: CanonicalProcessing},
		{name: "rejected", status: "rejected", detail: "cc_rejected_insufficient_amount", want: CanonicalFailed},
		{name: "cancelled", status: "cancelled", detail: "expired", want: CanonicalCancelled},
		{name: "refunded", status: "refunded", detail: "", want: CanonicalRefunded},
		{name: "charged back", status: "charged_back", detail: "", want: CanonicalChargedBack},
		{name: "unknown status fails open", status: "authorized", detail: "", want: CanonicalPending},
		{name: "empty status fails open", status: "", detail: "", want: CanonicalPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapPaymentStatus(tc.status, tc.detail); got != tc.want {
				t.Fatalf("MapPaymentStatus(%q, %q) = %s, want %s", tc.status, tc.detail, got, tc.want)
			}
		})
	}
}

func TestMapPaymentStatusIsDeterministic(t *testing.T) {
	first := MapPaymentStatus("pending", "pending_waiting_payment")
	second := MapPaymentStatus("pending", "pending_waiting_payment")
	if first != second {
		t.Fatalf("expected identical outputs, got %s and %s", first, second)
	}
}
