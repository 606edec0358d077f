package swipe

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
)

// LifecycleMonitor drives a SubmissionRecord from Pending to a terminal state
// using the events of the submission boundary.
//
// Duplicate confirmations are dropped by receipt, events after a terminal
// state are ignored, and the gate is released exactly once per record.
type LifecycleMonitor struct {
	user       string
	processed  *domain.ProcessedReceipts
	persist    *PersistenceSync
	gate       *SubmissionGate
	journal    ports.SubmissionJournal
	notifier   ports.BatchNotifier
	clock      Clock
	staleAfter time.Duration
}

func newLifecycleMonitor(user string, processed *domain.ProcessedReceipts, persist *PersistenceSync, gate *SubmissionGate, journal ports.SubmissionJournal, notifier ports.BatchNotifier, clock Clock, staleAfter time.Duration) *LifecycleMonitor {
	return &LifecycleMonitor{
		user:       user,
		processed:  processed,
		persist:    persist,
		gate:       gate,
		journal:    journal,
		notifier:   notifier,
		clock:      clock,
		staleAfter: staleAfter,
	}
}

// Watch consumes events until the stream is closed or ctx is done. There is
// no local timeout on the terminal event.
func (m *LifecycleMonitor) Watch(ctx context.Context, rec *domain.SubmissionRecord, b *domain.Batch, events <-chan domain.StatusEvent) {
	if d := m.staleAfter; d > 0 {
		watchdog := m.clock.AfterFunc(d, func() { m.flagStale(rec) })
		defer watchdog.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			if !rec.State().Terminal() {
				slog.Warn("swipe: stopped watching non-terminal submission",
					"user", m.user, "batch", rec.BatchID, "err", ctx.Err())
			}
			return
		case ev, ok := <-events:
			if !ok {
				if !rec.State().Terminal() {
					slog.Error("swipe: status stream closed before terminal state",
						"user", m.user, "batch", rec.BatchID)
					m.flagStale(rec)
				}
				return
			}
			m.Handle(ctx, rec, b, ev)
		}
	}
}

// Handle applies one status event to the record.
func (m *LifecycleMonitor) Handle(ctx context.Context, rec *domain.SubmissionRecord, b *domain.Batch, ev domain.StatusEvent) {
	switch ev.Kind {
	case domain.StatusPending:
		slog.Debug("swipe: submission pending", "user", m.user, "batch", rec.BatchID)

	case domain.StatusConfirmed:
		if ev.ReceiptID == "" {
			slog.Warn("swipe: confirmation without receipt ignored", "user", m.user, "batch", rec.BatchID)
			return
		}
		if m.processed.Has(ev.ReceiptID) {
			slog.Debug("swipe: duplicate confirmation ignored", "batch", rec.BatchID, "receipt", ev.ReceiptID)
			return
		}
		if !rec.Resolve(domain.SubmissionConfirmed, ev.ReceiptID, "") {
			slog.Warn("swipe: confirmation after terminal state ignored",
				"batch", rec.BatchID, "state", rec.State(), "receipt", ev.ReceiptID)
			return
		}
		m.processed.Add(ev.ReceiptID)
		m.gate.record(ctx, rec, b.Len())

		slog.Info("swipe: batch confirmed", "user", m.user, "batch", rec.BatchID, "receipt", ev.ReceiptID)
		m.persist.Sync(ctx, m.user, ev.ReceiptID, b)
		m.notifier.OnBatchResolved(m.user, rec.BatchID, domain.OutcomeConfirmed, "")
		m.gate.Release(rec)

	case domain.StatusReverted, domain.StatusErrored:
		state, outcome := domain.SubmissionReverted, domain.OutcomeReverted
		if ev.Kind == domain.StatusErrored {
			state, outcome = domain.SubmissionErrored, domain.OutcomeErrored
		}
		if !rec.Resolve(state, ev.ReceiptID, ev.Reason) {
			slog.Debug("swipe: failure after terminal state ignored", "batch", rec.BatchID, "kind", ev.Kind)
			return
		}
		m.gate.record(ctx, rec, b.Len())

		for _, in := range b.Intents() {
			slog.Warn("swipe: intent dropped",
				"user", m.user,
				"batch", rec.BatchID,
				"intent", in.ID,
				"market", in.MarketID,
				"reason", string(state),
			)
		}
		slog.Warn("swipe: batch failed",
			"user", m.user,
			"batch", rec.BatchID,
			"state", state,
			"reason", ev.Reason,
			"intents", b.Len(),
		)
		m.notifier.OnBatchResolved(m.user, rec.BatchID, outcome, ev.Reason)
		m.gate.Release(rec)

	default:
		slog.Warn("swipe: unknown status event", "batch", rec.BatchID, "kind", ev.Kind)
	}
}

func (m *LifecycleMonitor) flagStale(rec *domain.SubmissionRecord) {
	if rec.State().Terminal() {
		return
	}
	slog.Warn("swipe: submission has no terminal status, needs reconciliation",
		"user", m.user, "batch", rec.BatchID, "since", rec.SubmittedAt)
	if m.journal == nil {
		return
	}
	if err := m.journal.MarkNeedsReconciliation(context.Background(), rec.BatchID); err != nil {
		slog.Warn("swipe: error flagging submission", "batch", rec.BatchID, "err", err)
	}
}
