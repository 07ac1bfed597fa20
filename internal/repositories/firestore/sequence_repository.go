package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/rastuci/api/internal/platform/firestore"
	"github.com/rastuci/api/internal/repositories"
)

const sequencesCollection = "sequences"

type sequenceDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	MaxValue     *int64    `firestore:"maxValue,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// SequenceRepository implements repositories.SequenceRepository backed by Firestore transactions.
type SequenceRepository struct {
	provider *pfirestore.Provider
	sequences *pfirestore.BaseRepository[sequenceDocument]
}

// NewSequenceRepository constructs a Firestore-backed sequence repository.
func NewSequenceRepository(provider *pfirestore.Provider) (*SequenceRepository, error) {
	if provider == nil {
		return nil, errors.New("sequence repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[sequenceDocument](provider, sequencesCollection)
	return &SequenceRepository{
		provider: provider,
		sequences: base,
	}, nil
}

// Next atomically increments the sequence identified by sequenceID and returns the next value.
func (r *SequenceRepository) Next(ctx context.Context, sequenceID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("sequence repository not initialised")
	}
	id := strings.TrimSpace(sequenceID)
	if id == "" {
		return 0, repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, "sequence id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}

	now := time.Now().UTC()
	var nextValue int64

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.sequences.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			increment := step
			if increment <= 0 {
				increment = 1
			}
			doc := sequenceDocument{
				CurrentValue: increment,
				Step:         increment,
				UpdatedAt:    now,
			}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			nextValue = doc.CurrentValue
			return nil
		case codes.OK:
			// proceed
		default:
			return err
		}

		var doc sequenceDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore sequences decode %s: %w", id, err)
		}

		increment := step
		if increment <= 0 {
			if doc.Step > 0 {
				increment = doc.Step
			} else {
				increment = 1
			}
		}

		newValue := doc.CurrentValue + increment
		if doc.MaxValue != nil && newValue > *doc.MaxValue {
			return repositories.NewSequenceError(repositories.SequenceErrorExhausted, fmt.Sprintf("sequence %s exceeded max value %d", id, *doc.MaxValue), nil)
		}

		doc.CurrentValue = newValue
		doc.Step = increment
		doc.UpdatedAt = now

		if err := tx.Set(ref, doc, firestore.MergeAll); err != nil {
			return err
		}
		nextValue = newValue
		return nil
	})
	if err != nil {
		var seqErr *repositories.SequenceError
		if errors.As(err, &seqErr) {
			return 0, seqErr
		}
		return 0, pfirestore.WrapError("sequences.next", err)
	}
	return nextValue, nil
}

// Configure updates optional settings for the sequence such as step size, max value, or initial value.
func (r *SequenceRepository) Configure(ctx context.Context, sequenceID string, cfg repositories.SequenceConfig) error {
	if r == nil || r.provider == nil {
		return errors.New("sequence repository not initialised")
	}
	id := strings.TrimSpace(sequenceID)
	if id == "" {
		return repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, "sequence id is required", nil)
	}

	payload := make(map[string]any)
	now := time.Now().UTC()
	payload["updatedAt"] = now
	if cfg.Step > 0 {
		payload["step"] = cfg.Step
	}
	if cfg.MaxValue != nil {
		payload["maxValue"] = *cfg.MaxValue
	}
	if cfg.InitialValue != nil {
		payload["currentValue"] = *cfg.InitialValue
	}

	ref, err := r.sequences.DocumentRef(ctx, id)
	if err != nil {
		return err
	}

	_, err = ref.Set(ctx, payload, firestore.MergeAll)
	if err != nil {
		return pfirestore.WrapError("sequences.configure", err)
	}
	return nil
}
