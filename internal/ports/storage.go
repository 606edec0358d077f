package ports

import (
	"context"

	"github.com/alejandrodnm/swipebot/internal/domain"
)

// PredictionStorage persists confirmed predictions and per-market positions.
// Every call is independently retriable.
type PredictionStorage interface {
	ApplySchema(ctx context.Context) error

	// HasPrediction reports whether the prediction was already persisted.
	HasPrediction(ctx context.Context, key domain.PredictionKey) (bool, error)
	CreatePredictionRecord(ctx context.Context, rec domain.PredictionRecord) error

	// GetPosition returns a zero position (not an error) when none exists.
	GetPosition(ctx context.Context, user, marketID string) (domain.Position, error)
	UpsertPosition(ctx context.Context, pos domain.Position) error
	ListPositions(ctx context.Context, user string) ([]domain.Position, error)

	Close() error
}

// SubmissionJournal keeps a durable trail of submissions so batches stuck
// without a terminal status can be reconciled by hand.
type SubmissionJournal interface {
	RecordSubmission(ctx context.Context, entry domain.SubmissionEntry) error
	MarkNeedsReconciliation(ctx context.Context, batchID string) error
	ListUnresolvedSubmissions(ctx context.Context, user string) ([]domain.SubmissionEntry, error)
}
