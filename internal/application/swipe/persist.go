package swipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SyncReport counts what happened to each intent of a confirmed batch.
type SyncReport struct {
	Persisted int
	Skipped   int // already persisted under the same receipt
	Failed    int
}

// PersistenceSync commits the intents of a confirmed batch to storage.
// Each intent is isolated: a failure is logged and the next one still runs.
type PersistenceSync struct {
	validator *MarketValidator
	store     ports.PredictionStorage
	clock     Clock
}

// NewPersistenceSync creates a syncer writing to store.
func NewPersistenceSync(validator *MarketValidator, store ports.PredictionStorage, clock Clock) *PersistenceSync {
	if clock == nil {
		clock = RealClock()
	}
	return &PersistenceSync{validator: validator, store: store, clock: clock}
}

// Sync persists every intent of b under receiptID.
func (p *PersistenceSync) Sync(ctx context.Context, user, receiptID string, b *domain.Batch) SyncReport {
	ctx, span := tracer.Start(ctx, "swipe.persist")
	defer span.End()
	span.SetAttributes(
		attribute.String("swipe.batch_id", b.ID),
		attribute.String("swipe.receipt", receiptID),
	)

	var report SyncReport
	for leg, in := range b.Intents() {
		skipped, err := p.syncOne(ctx, user, receiptID, b.ID, leg, in)
		switch {
		case err != nil:
			report.Failed++
			slog.Error("swipe: prediction not persisted",
				"reconciliation_gap", true,
				"user", user,
				"batch", b.ID,
				"receipt", receiptID,
				"market", in.MarketID,
				"side", in.Side,
				"stake", in.Stake.String(),
				"err", err,
			)
		case skipped:
			report.Skipped++
			slog.Debug("swipe: prediction already persisted", "receipt", receiptID, "market", in.MarketID, "leg", leg)
		default:
			report.Persisted++
		}
	}

	span.SetAttributes(
		attribute.Int("swipe.persisted", report.Persisted),
		attribute.Int("swipe.failed", report.Failed),
	)
	slog.Info("swipe: batch persisted",
		"user", user,
		"batch", b.ID,
		"receipt", receiptID,
		"persisted", report.Persisted,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

// syncOne writes one leg. The idempotency key is (user, market, receipt) plus
// leg: a batch can hold the same market twice, and a replayed receipt must
// not duplicate either leg.
func (p *PersistenceSync) syncOne(ctx context.Context, user, receiptID, batchID string, leg int, in domain.Intent) (skipped bool, err error) {
	if err := p.validator.Exists(ctx, in.MarketID); err != nil {
		return false, fmt.Errorf("revalidate: %w", err)
	}

	key := domain.PredictionKey{User: user, MarketID: in.MarketID, ReceiptID: receiptID, Leg: leg}
	exists, err := p.store.HasPrediction(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return true, nil
	}

	rec := domain.PredictionRecord{
		ID:        uuid.NewString(),
		Key:       key,
		BatchID:   batchID,
		IntentID:  in.ID,
		Side:      in.Side,
		Stake:     in.Stake,
		CreatedAt: p.clock.Now().UTC(),
	}
	if err := p.store.CreatePredictionRecord(ctx, rec); err != nil {
		return false, fmt.Errorf("create prediction: %w", err)
	}

	pos, err := p.store.GetPosition(ctx, user, in.MarketID)
	if err != nil {
		return false, fmt.Errorf("read position: %w", err)
	}
	pos.User, pos.MarketID = user, in.MarketID
	if err := p.store.UpsertPosition(ctx, pos.Apply(in.Side, in.Stake)); err != nil {
		return false, fmt.Errorf("write position: %w", err)
	}
	return false, nil
}
