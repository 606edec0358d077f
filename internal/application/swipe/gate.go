package swipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SubmissionGate serializes submissions for one user: at most one
// non-terminal SubmissionRecord exists at any time.
type SubmissionGate struct {
	user      string
	submitter ports.Submitter
	journal   ports.SubmissionJournal
	clock     Clock
	cooldown  time.Duration
	onRelease func()

	inFlight atomic.Bool
	current  atomic.Pointer[domain.SubmissionRecord]
	batch    atomic.Pointer[domain.Batch]
}

func newSubmissionGate(user string, submitter ports.Submitter, journal ports.SubmissionJournal, clock Clock, cooldown time.Duration, onRelease func()) *SubmissionGate {
	return &SubmissionGate{
		user:      user,
		submitter: submitter,
		journal:   journal,
		clock:     clock,
		cooldown:  cooldown,
		onRelease: onRelease,
	}
}

// TrySubmit takes the in-flight slot and sends the batch's calls in append
// order. Returns domain.ErrAlreadyInFlight without side effects if another
// submission is still non-terminal.
//
// If the submitter fails synchronously the record is resolved as Errored, the
// slot is freed immediately and the error is returned with the record.
func (g *SubmissionGate) TrySubmit(ctx context.Context, b *domain.Batch) (*domain.SubmissionRecord, <-chan domain.StatusEvent, error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, nil, fmt.Errorf("swipe.TrySubmit: batch %s: %w", b.ID, domain.ErrAlreadyInFlight)
	}

	ctx, span := tracer.Start(ctx, "swipe.submit", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("swipe.user", g.user),
		attribute.String("swipe.batch_id", b.ID),
		attribute.Int("swipe.calls", b.Len()),
	)

	rec := domain.NewSubmissionRecord(b.ID, g.user)
	g.batch.Store(b)
	g.current.Store(rec)
	g.record(ctx, rec, b.Len())

	events, err := g.submitter.Submit(ctx, g.user, b.Calls())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		rec.Resolve(domain.SubmissionErrored, "", err.Error())
		g.record(ctx, rec, b.Len())
		rec.MarkReleased()
		g.clear(rec)
		return rec, nil, fmt.Errorf("swipe.TrySubmit: submit batch %s: %w", b.ID, err)
	}

	slog.Info("swipe: batch submitted",
		"user", g.user,
		"batch", b.ID,
		"calls", b.Len(),
		"stake", b.TotalStake().StringFixed(2),
	)
	return rec, events, nil
}

// Release frees the slot held by rec after the cooldown. Safe to call any
// number of times; only the first call for a record has an effect.
func (g *SubmissionGate) Release(rec *domain.SubmissionRecord) {
	if !rec.MarkReleased() {
		return
	}
	if g.cooldown <= 0 {
		g.clear(rec)
		return
	}
	g.clock.AfterFunc(g.cooldown, func() { g.clear(rec) })
}

// InFlight reports whether a submission currently holds the slot.
func (g *SubmissionGate) InFlight() bool {
	return g.inFlight.Load()
}

// Current returns the record holding the slot, or nil.
func (g *SubmissionGate) Current() *domain.SubmissionRecord {
	return g.current.Load()
}

// InFlightBatch returns the batch still waiting for a terminal status, or nil.
func (g *SubmissionGate) InFlightBatch() *domain.Batch {
	rec, b := g.current.Load(), g.batch.Load()
	if rec == nil || b == nil || b.ID != rec.BatchID || rec.State().Terminal() {
		return nil
	}
	return b
}

func (g *SubmissionGate) clear(rec *domain.SubmissionRecord) {
	if !g.current.CompareAndSwap(rec, nil) {
		return
	}
	g.batch.Store(nil)
	g.inFlight.Store(false)
	slog.Debug("swipe: submission slot released", "user", g.user, "batch", rec.BatchID)
	if g.onRelease != nil {
		g.onRelease()
	}
}

func (g *SubmissionGate) record(ctx context.Context, rec *domain.SubmissionRecord, calls int) {
	if g.journal == nil {
		return
	}
	entry := rec.Snapshot()
	entry.Calls = calls
	if err := g.journal.RecordSubmission(ctx, entry); err != nil {
		slog.Warn("swipe: error journaling submission", "batch", rec.BatchID, "err", err)
	}
}
