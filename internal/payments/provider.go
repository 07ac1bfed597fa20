package payments

import (
	"context"
	"errors"
	"time"
)

// ErrPaymentNotFound is returned when the gateway has no record of the payment id.
var ErrPaymentNotFound = errors.New("payments: payment not found")

// PreferenceLineItem describes a single line item to include in a checkout preference.
type PreferenceLineItem struct {
	ID          string
	Title       string
	Description string
	Quantity    int
	UnitAmount  int64
	Currency    string
}

// PreferenceRequest captures the payload required to create a checkout preference.
type PreferenceRequest struct {
	OrderID         string
	PayerEmail      string
	PayerName       string
	SuccessURL      string
	PendingURL      string
	FailureURL      string
	NotificationURL string
	Items           []PreferenceLineItem
}

// Preference represents the gateway checkout session returned to the client.
type Preference struct {
	ID          string
	RedirectURL string
	SandboxURL  string
}

// PaymentDetails normalises gateway payment fields for reconciliation and storage.
// Amount is expressed in centavos.
type PaymentDetails struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Amount            int64
	Currency          string
	ApprovedAt        *time.Time
	Raw               map[string]any
}

// Provider defines the contract for payment gateway adapters.
type Provider interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
	GetPayment(ctx context.Context, paymentID string) (PaymentDetails, error)
}
