package payments

// CanonicalStatus is the internal order-facing status derived from gateway
// status strings. The gateway vocabulary never leaks past this mapping.
type CanonicalStatus string

const (
	// CanonicalCompleted indicates the payment was approved and captured.
	CanonicalCompleted CanonicalStatus = "COMPLETED"
	// CanonicalPending indicates the gateway reported a pending state with no actionable detail.
	CanonicalPending CanonicalStatus = "PENDING"
	// CanonicalPendingPayment indicates the buyer still has to pay (ticket or bank transfer).
	CanonicalPendingPayment CanonicalStatus = "PENDING_PAYMENT"
	// CanonicalPendingReview indicates the gateway is reviewing the payment manually.
	CanonicalPendingReview CanonicalStatus = "PENDING_REVIEW"
	// CanonicalProcessing indicates the gateway is still processing the payment.
	CanonicalProcessing CanonicalStatus = "PROCESSING"
	// CanonicalFailed indicates the payment was rejected.
	CanonicalFailed CanonicalStatus = "FAILED"
	// CanonicalCancelled indicates the payment was cancelled before completion.
	CanonicalCancelled CanonicalStatus = "CANCELLED"
	// CanonicalRefunded indicates the payment was returned to the buyer.
	CanonicalRefunded CanonicalStatus = "REFUNDED"
	// CanonicalChargedBack indicates the buyer disputed the charge.
	CanonicalChargedBack CanonicalStatus = "CHARGED_BACK"
)

// MapPaymentStatus translates a gateway (status, statusDetail) pair into the
// canonical status. The function is pure and total: unrecognised inputs map
// to CanonicalPending so an odd gateway payload parks the order for later
// reconciliation instead of dropping it.
func MapPaymentStatus(status, statusDetail string) CanonicalStatus {
	switch status {
	case "approved":
		return CanonicalCompleted
	case "pending":
		switch statusDetail {
		case "pending_waiting_payment", "pending_waiting_transfer":
			return CanonicalPendingPayment
		case "pending_review_manual", "pending_waiting_for_remedy":
			return CanonicalPendingReview
		default:
			return CanonicalPending
		}
	case "in_process":
		return CanonicalProcessing
	case "rejected":
		return CanonicalFailed
	case "cancelled":
		return CanonicalCancelled
	case "refunded":
		return CanonicalRefunded
	case "charged_back":
		return CanonicalChargedBack
	default:
		return CanonicalPending
	}
}
