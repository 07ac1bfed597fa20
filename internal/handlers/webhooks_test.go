package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/rastuci/api/internal/services"
)

type stubWebhookService struct {
	err  error
	cmds []services.PaymentNotificationCommand
}

func (s *stubWebhookService) ProcessNotification(ctx context.Context, cmd services.PaymentNotificationCommand) error {
	s.cmds = append(s.cmds, cmd)
	return s.err
}

func newWebhookRouter(svc services.PaymentWebhookService) chi.Router {
	handlers := NewWebhookHandlers(svc)
	router := chi.NewRouter()
	router.Route("/webhooks", handlers.Routes)
	return router
}

func assertWebhookAck(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !body["received"] {
		t.Fatalf("expected received ack, got %s", rr.Body.String())
	}
}

func TestWebhookHandlersMercadoPago(t *testing.T) {
	svc := &stubWebhookService{}
	router := newWebhookRouter(svc)

	payload := `{"action": "payment.updated", "type": "payment", "data": {"id": "98765"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader(payload))
	req.Header.Set("x-request-id", "req-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assertWebhookAck(t, rr)

	if len(svc.cmds) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.cmds))
	}
	cmd := svc.cmds[0]
	if cmd.Action != "payment.updated" || cmd.PaymentID != "98765" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if cmd.RequestID != "req-1" {
		t.Fatalf("expected request id, got %q", cmd.RequestID)
	}
}

func TestWebhookHandlersMercadoPagoQueryFallback(t *testing.T) {
	svc := &stubWebhookService{}
	router := newWebhookRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago?data.id=98765&type=payment", strings.NewReader(""))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assertWebhookAck(t, rr)

	if len(svc.cmds) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.cmds))
	}
	cmd := svc.cmds[0]
	if cmd.Action != "payment.updated" || cmd.PaymentID != "98765" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestWebhookHandlersMercadoPagoServiceErrorStillAcks(t *testing.T) {
	svc := &stubWebhookService{err: services.ErrWebhookOrderNotFound}
	router := newWebhookRouter(svc)

	payload := `{"action": "payment.updated", "data": {"id": "98765"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assertWebhookAck(t, rr)
}

func TestWebhookHandlersMercadoPagoMalformedBodyStillAcks(t *testing.T) {
	svc := &stubWebhookService{err: services.ErrWebhookInvalidNotification}
	router := newWebhookRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assertWebhookAck(t, rr)

	if len(svc.cmds) != 1 {
		t.Fatalf("expected the notification to reach the service, got %d calls", len(svc.cmds))
	}
	if svc.cmds[0].PaymentID != "" || svc.cmds[0].Action != "" {
		t.Fatalf("expected empty command for malformed body, got %+v", svc.cmds[0])
	}
}

func TestWebhookHandlersMercadoPagoWithoutService(t *testing.T) {
	router := newWebhookRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

var _ services.PaymentWebhookService = (*stubWebhookService)(nil)
