package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
)

// NotificationDispatcherDeps wires the fire-and-forget notification pipeline.
type NotificationDispatcherDeps struct {
	Publisher NotificationPublisher
	Log       repositories.NotificationLogRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type notificationDispatcher struct {
	publisher NotificationPublisher
	log       repositories.NotificationLogRepository
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewNotificationDispatcher constructs a dispatcher that queues an email and a
// push job per order event and records each publish outcome.
func NewNotificationDispatcher(deps NotificationDispatcherDeps) (NotificationDispatcher, error) {
	if deps.Publisher == nil {
		return nil, errors.New("notification dispatcher: publisher is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationDispatcher{
		publisher: deps.Publisher,
		log:       deps.Log,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// DispatchOrderEvent queues one job per channel. Publish failures are logged
// and recorded; they never reach the caller.
func (d *notificationDispatcher) DispatchOrderEvent(ctx context.Context, event OrderEventNotification) {
	if d == nil || d.publisher == nil {
		return
	}

	kinds := []domain.NotificationKind{domain.NotificationKindEmail, domain.NotificationKindPush}
	for _, kind := range kinds {
		if kind == domain.NotificationKindEmail && strings.TrimSpace(event.Email) == "" {
			continue
		}

		occurredAt := event.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = d.now()
		}

		err := d.publisher.PublishNotificationJob(ctx, NotificationJob{
			Kind:        string(kind),
			OrderID:     event.OrderID,
			OrderNumber: event.OrderNumber,
			Event:       event.Event,
			Email:       event.Email,
			Total:       event.Total,
			OccurredAt:  occurredAt,
		})

		outcome := domain.NotificationOutcome{
			Kind:       kind,
			OrderRef:   event.OrderID,
			Event:      event.Event,
			Success:    err == nil,
			OccurredAt: d.now(),
		}
		if err != nil {
			message := err.Error()
			outcome.Error = message
			d.logger(ctx, "notifications.publish_failed", map[string]any{
				"orderId": event.OrderID,
				"kind":    string(kind),
				"event":   event.Event,
				"error":   message,
			})
		}

		if d.log != nil {
			if logErr := d.log.Append(ctx, outcome); logErr != nil {
				d.logger(ctx, "notifications.outcome_record_failed", map[string]any{
					"orderId": event.OrderID,
					"kind":    string(kind),
					"error":   logErr.Error(),
				})
			}
		}
	}
}
