package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/rastuci/api/internal/domain"
	pfirestore "github.com/rastuci/api/internal/platform/firestore"
)

const notificationOutcomesCollection = "notificationOutcomes"

// NotificationLogRepository records fire-and-forget side effect outcomes.
type NotificationLogRepository struct {
	provider *pfirestore.Provider
}

// NewNotificationLogRepository constructs a Firestore-backed notification outcome log.
func NewNotificationLogRepository(provider *pfirestore.Provider) (*NotificationLogRepository, error) {
	if provider == nil {
		return nil, errors.New("notification log repository requires firestore provider")
	}
	return &NotificationLogRepository{provider: provider}, nil
}

// Append stores one dispatch outcome under an auto-generated id.
func (r *NotificationLogRepository) Append(ctx context.Context, outcome domain.NotificationOutcome) error {
	if r == nil || r.provider == nil {
		return errors.New("notification log repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("notifications.append", err)
	}
	doc := notificationOutcomeDocument{
		Kind:       string(outcome.Kind),
		OrderRef:   strings.TrimSpace(outcome.OrderRef),
		Event:      strings.TrimSpace(outcome.Event),
		Success:    outcome.Success,
		Error:      outcome.Error,
		OccurredAt: outcome.OccurredAt.UTC(),
	}
	if doc.OccurredAt.IsZero() {
		doc.OccurredAt = time.Now().UTC()
	}
	if _, _, err := client.Collection(notificationOutcomesCollection).Add(ctx, doc); err != nil {
		return pfirestore.WrapError("notifications.append", err)
	}
	return nil
}

// ListByOrder returns the dispatch history for an order, oldest first.
func (r *NotificationLogRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.NotificationOutcome, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("notification log repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("notification log: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("notifications.list", err)
	}

	iter := client.Collection(notificationOutcomesCollection).
		Where("orderRef", "==", orderID).
		OrderBy("occurredAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var outcomes []domain.NotificationOutcome
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("notifications.list", err)
		}
		var doc notificationOutcomeDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode notification outcome %s: %w", snap.Ref.ID, err)
		}
		outcomes = append(outcomes, domain.NotificationOutcome{
			Kind:       domain.NotificationKind(doc.Kind),
			OrderRef:   doc.OrderRef,
			Event:      doc.Event,
			Success:    doc.Success,
			Error:      doc.Error,
			OccurredAt: doc.OccurredAt,
		})
	}
	return outcomes, nil
}

type notificationOutcomeDocument struct {
	Kind       string    `firestore:"kind"`
	OrderRef   string    `firestore:"orderRef"`
	Event      string    `firestore:"event"`
	Success    bool      `firestore:"success"`
	Error      string    `firestore:"error,omitempty"`
	OccurredAt time.Time `firestore:"occurredAt"`
}
