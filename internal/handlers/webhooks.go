package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rastuci/api/internal/platform/requestctx"
	"github.com/rastuci/api/internal/services"
)

const maxWebhookRequestBody = 16 * 1024

// WebhookHandlers receives payment gateway notifications.
type WebhookHandlers struct {
	webhooks services.PaymentWebhookService
}

// NewWebhookHandlers constructs the webhook handlers.
func NewWebhookHandlers(webhooks services.PaymentWebhookService) *WebhookHandlers {
	return &WebhookHandlers{webhooks: webhooks}
}

// Routes registers webhook endpoints under the provided router. Signature
// verification runs as group middleware, before these handlers.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/mercadopago", h.mercadoPago)
}

type mercadoPagoNotification struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// mercadoPago acknowledges every semantically broken notification with 200:
// a non-2xx answer makes the gateway retry a payload that will never parse,
// and eventually disable the webhook.
func (h *WebhookHandlers) mercadoPago(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	if h.webhooks == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var notification mercadoPagoNotification
	body, err := readLimitedBody(r, maxWebhookRequestBody)
	if err == nil {
		if parseErr := json.Unmarshal(body, &notification); parseErr != nil {
			logger.Warn("webhook payload parse failed", zap.Error(parseErr))
		}
	}

	action := strings.TrimSpace(notification.Action)
	paymentID := strings.TrimSpace(notification.Data.ID)

	// Some gateway topics arrive as query parameters only.
	if paymentID == "" {
		paymentID = strings.TrimSpace(r.URL.Query().Get("data.id"))
	}
	if paymentID == "" {
		paymentID = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if action == "" && strings.TrimSpace(r.URL.Query().Get("type")) == "payment" {
		action = "payment.updated"
	}

	if err := h.webhooks.ProcessNotification(ctx, services.PaymentNotificationCommand{
		Action:    action,
		PaymentID: paymentID,
		RequestID: strings.TrimSpace(r.Header.Get("x-request-id")),
	}); err != nil {
		logger.Warn("webhook notification not processed",
			zap.String("action", action),
			zap.String("paymentId", paymentID),
			zap.Error(err),
		)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"received": true})
}
