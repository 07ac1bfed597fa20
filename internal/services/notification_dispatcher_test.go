package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
)

type stubNotificationPublisher struct {
	jobs []NotificationJob
	errs map[string]error
}

func (s *stubNotificationPublisher) PublishNotificationJob(ctx context.Context, job NotificationJob) error {
	s.jobs = append(s.jobs, job)
	return s.errs[job.Kind]
}

type stubNotificationLog struct {
	outcomes  []domain.NotificationOutcome
	appendErr error
}

func (s *stubNotificationLog) Append(ctx context.Context, outcome domain.NotificationOutcome) error {
	s.outcomes = append(s.outcomes, outcome)
	return s.appendErr
}

func (s *stubNotificationLog) ListByOrder(ctx context.Context, orderID string) ([]domain.NotificationOutcome, error) {
	return s.outcomes, nil
}

func paidOrderEvent() OrderEventNotification {
	return OrderEventNotification{
		OrderID:     "ord_1",
		OrderNumber: "RAS-2026-000001",
		Event:       "order.paid",
		Email:       "juana@example.com",
		Total:       120000,
		OccurredAt:  time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC),
	}
}

func newTestDispatcher(t *testing.T, publisher *stubNotificationPublisher, log repositories.NotificationLogRepository) NotificationDispatcher {
	t.Helper()
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Publisher: publisher,
		Log:       log,
		Clock: func() time.Time {
			return time.Date(2026, 3, 6, 15, 0, 1, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}
	return dispatcher
}

func TestDispatcherQueuesEmailAndPush(t *testing.T) {
	publisher := &stubNotificationPublisher{}
	log := &stubNotificationLog{}
	dispatcher := newTestDispatcher(t, publisher, log)

	dispatcher.DispatchOrderEvent(context.Background(), paidOrderEvent())

	if len(publisher.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(publisher.jobs))
	}
	if publisher.jobs[0].Kind != "email" || publisher.jobs[1].Kind != "push" {
		t.Fatalf("unexpected job kinds %s, %s", publisher.jobs[0].Kind, publisher.jobs[1].Kind)
	}
	if publisher.jobs[0].OrderNumber != "RAS-2026-000001" {
		t.Fatalf("unexpected order number %s", publisher.jobs[0].OrderNumber)
	}

	if len(log.outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(log.outcomes))
	}
	for _, outcome := range log.outcomes {
		if !outcome.Success || outcome.Error != "" {
			t.Fatalf("expected success outcome, got %+v", outcome)
		}
	}
}

func TestDispatcherSkipsEmailWithoutAddress(t *testing.T) {
	publisher := &stubNotificationPublisher{}
	dispatcher := newTestDispatcher(t, publisher, &stubNotificationLog{})

	event := paidOrderEvent()
	event.Email = "  "
	dispatcher.DispatchOrderEvent(context.Background(), event)

	if len(publisher.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(publisher.jobs))
	}
	if publisher.jobs[0].Kind != "push" {
		t.Fatalf("expected push job, got %s", publisher.jobs[0].Kind)
	}
}

func TestDispatcherRecordsPublishFailure(t *testing.T) {
	publisher := &stubNotificationPublisher{errs: map[string]error{
		"email": errors.New("topic unavailable"),
	}}
	log := &stubNotificationLog{}
	dispatcher := newTestDispatcher(t, publisher, log)

	dispatcher.DispatchOrderEvent(context.Background(), paidOrderEvent())

	// push was still attempted after the email failure
	if len(publisher.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(publisher.jobs))
	}
	if len(log.outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(log.outcomes))
	}
	emailOutcome := log.outcomes[0]
	if emailOutcome.Success || emailOutcome.Error == "" {
		t.Fatalf("expected failed email outcome, got %+v", emailOutcome)
	}
	if log.outcomes[1].Kind != domain.NotificationKindPush || !log.outcomes[1].Success {
		t.Fatalf("expected successful push outcome, got %+v", log.outcomes[1])
	}
}

func TestDispatcherWithoutLog(t *testing.T) {
	publisher := &stubNotificationPublisher{}
	dispatcher := newTestDispatcher(t, publisher, nil)

	dispatcher.DispatchOrderEvent(context.Background(), paidOrderEvent())

	if len(publisher.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(publisher.jobs))
	}
}
