package swipe

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
)

// FlushReason says which trigger froze a batch.
type FlushReason string

const (
	FlushSize       FlushReason = "size"
	FlushInactivity FlushReason = "inactivity"
	FlushManual     FlushReason = "manual"
	FlushRelease    FlushReason = "release"
)

// BatchAccumulator owns the single pending batch of a user session.
//
// pending never holds more than MaxBatchSize intents. Intents that do not fit
// (only possible after a re-queue) wait in overflow, in order, and seed the
// next batch. The inactivity timer is tagged with a generation so a timer
// that fires after being re-armed is a no-op.
//
// onFlush runs with the accumulator locked, so handoffs reach it in freeze
// order. It must not call back into the accumulator.
type BatchAccumulator struct {
	user    string
	cfg     Config
	clock   Clock
	onFlush func(b *domain.Batch, reason FlushReason)

	mu       sync.Mutex
	pending  *domain.Batch
	overflow []domain.Intent
	timer    Timer
	gen      uint64
	closed   bool
}

func newBatchAccumulator(user string, cfg Config, clock Clock, onFlush func(*domain.Batch, FlushReason)) *BatchAccumulator {
	return &BatchAccumulator{
		user:    user,
		cfg:     cfg,
		clock:   clock,
		onFlush: onFlush,
		pending: domain.NewBatch(user),
	}
}

// Append queues an intent and re-arms the inactivity timer. If the pending
// batch reaches MaxBatchSize it is flushed before Append returns.
// Returns the number of intents waiting after the append (before any flush).
func (a *BatchAccumulator) Append(in domain.Intent) (int, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, domain.ErrSessionClosed
	}

	if len(a.overflow) > 0 || a.pending.Len() >= a.cfg.MaxBatchSize {
		a.overflow = append(a.overflow, in)
	} else if err := a.pending.Append(in); err != nil {
		if !errors.Is(err, domain.ErrBatchFrozen) {
			a.mu.Unlock()
			return 0, err
		}
		// Already handed off: start a fresh batch transparently.
		a.pending = domain.NewBatch(a.user)
		_ = a.pending.Append(in)
	}
	queued := a.pending.Len() + len(a.overflow)
	a.armLocked()

	if a.pending.Len() >= a.cfg.MaxBatchSize {
		a.flushLocked(FlushSize)
	}
	a.mu.Unlock()
	return queued, nil
}

// Flush freezes and hands off the pending batch now. No-op when empty.
func (a *BatchAccumulator) Flush() {
	a.flushIf(FlushManual, func() bool { return true })
}

// Kick flushes the pending batch if it is full. Called when the gate frees up.
func (a *BatchAccumulator) Kick() {
	a.flushIf(FlushRelease, func() bool { return a.pending.Len() >= a.cfg.MaxBatchSize })
}

func (a *BatchAccumulator) flushIf(reason FlushReason, cond func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !cond() {
		return
	}
	a.flushLocked(reason)
}

// Requeue puts intents from a rejected handoff back in front of anything
// queued since. Re-queueing never triggers a flush by itself; it re-arms the
// inactivity timer and waits for the next trigger.
func (a *BatchAccumulator) Requeue(intents []domain.Intent) {
	a.RequeueFrom(func() []domain.Intent { return intents })
}

// RequeueFrom is Requeue with the intents collected while the accumulator is
// locked, so no flush can slip in between collecting and re-queueing.
func (a *BatchAccumulator) RequeueFrom(collect func() []domain.Intent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	intents := collect()
	if len(intents) == 0 {
		return
	}
	if a.closed {
		for _, in := range intents {
			slog.Warn("swipe: intent dropped, session closed during requeue",
				"user", a.user, "intent", in.ID, "market", in.MarketID)
		}
		return
	}

	all := make([]domain.Intent, 0, len(intents)+a.pending.Len()+len(a.overflow))
	all = append(all, intents...)
	all = append(all, a.pending.Intents()...)
	all = append(all, a.overflow...)

	a.pending = domain.NewBatch(a.user)
	a.overflow = nil
	a.fillLocked(all)
	a.armLocked()

	slog.Debug("swipe: intents requeued",
		"user", a.user,
		"requeued", len(intents),
		"pending", a.pending.Len(),
		"overflow", len(a.overflow),
	)
}

// PendingStake is the stake of every intent not yet handed off.
func (a *BatchAccumulator) PendingStake() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.pending.TotalStake()
	for _, in := range a.overflow {
		total = total.Add(in.Stake)
	}
	return total
}

// PendingIntents returns a copy of every intent not yet handed off, in order.
func (a *BatchAccumulator) PendingIntents() []domain.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append(a.pending.Intents(), a.overflow...)
}

// Pending returns how many intents are waiting.
func (a *BatchAccumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending.Len() + len(a.overflow)
}

// Close stops the timer and returns the intents that were never handed off.
func (a *BatchAccumulator) Close() []domain.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.stopTimerLocked()
	left := append(a.pending.Intents(), a.overflow...)
	a.pending = domain.NewBatch(a.user)
	a.overflow = nil
	return left
}

func (a *BatchAccumulator) flushLocked(reason FlushReason) {
	if ready := a.takeLocked(); ready != nil {
		a.onFlush(ready, reason)
	}
}

// takeLocked freezes the pending batch and replaces it with a fresh one
// seeded from overflow. Returns nil if there was nothing to flush or another
// trigger already froze it.
func (a *BatchAccumulator) takeLocked() *domain.Batch {
	b := a.pending
	if b.Len() == 0 || !b.Freeze() {
		return nil
	}
	a.stopTimerLocked()

	a.pending = domain.NewBatch(a.user)
	carry := a.overflow
	a.overflow = nil
	a.fillLocked(carry)
	if a.pending.Len() > 0 {
		a.armLocked()
	}
	return b
}

func (a *BatchAccumulator) fillLocked(intents []domain.Intent) {
	for _, in := range intents {
		if a.pending.Len() < a.cfg.MaxBatchSize {
			_ = a.pending.Append(in)
			continue
		}
		a.overflow = append(a.overflow, in)
	}
}

func (a *BatchAccumulator) armLocked() {
	a.stopTimerLocked()
	a.gen++
	gen := a.gen
	a.timer = a.clock.AfterFunc(a.cfg.InactivityTimeout, func() { a.expire(gen) })
}

func (a *BatchAccumulator) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
}

// expire runs on the timer goroutine.
func (a *BatchAccumulator) expire(gen uint64) {
	a.mu.Lock()
	if a.closed || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.flushLocked(FlushInactivity)
	a.mu.Unlock()
}
