package swipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is the explicit per-user context of the swipe pipeline. It owns the
// pending batch, the submission gate and the processed receipts; nothing is
// shared with other users' sessions.
type Session struct {
	user   string
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	validator *MarketValidator
	calls     ports.CallBuilder
	allowance ports.AllowanceChecker
	notifier  ports.BatchNotifier
	clock     Clock

	acc       *BatchAccumulator
	gate      *SubmissionGate
	monitor   *LifecycleMonitor
	processed *domain.ProcessedReceipts

	// Frozen batches wait here in freeze order; one drain goroutine at a
	// time submits them, so batch N always reaches the gate before N+1.
	mu       sync.Mutex
	queue    []*domain.Batch
	active   *domain.Batch
	draining bool
	closed   bool

	wg sync.WaitGroup
}

// NewSession wires a session for user. ctx bounds the session's background
// work (timers, status streams); cancel it or call Close to stop.
func NewSession(ctx context.Context, user string, deps Deps, cfg Config) *Session {
	cfg = cfg.withDefaults()
	clock := deps.Clock
	if clock == nil {
		clock = RealClock()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		user:      user,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		validator: NewMarketValidator(deps.Markets),
		calls:     deps.Calls,
		allowance: deps.Allowance,
		notifier:  notifier,
		clock:     clock,
		processed: domain.NewProcessedReceipts(),
	}

	s.acc = newBatchAccumulator(user, cfg, clock, s.handoff)
	s.gate = newSubmissionGate(user, deps.Submitter, deps.Journal, clock, cfg.ReleaseCooldown, s.acc.Kick)
	persist := NewPersistenceSync(s.validator, deps.Storage, clock)
	s.monitor = newLifecycleMonitor(user, s.processed, persist, s.gate, deps.Journal, notifier, clock, cfg.StaleAfter)
	return s
}

// User returns the session owner.
func (s *Session) User() string { return s.user }

// Swipe validates the market, builds the call, checks the allowance covers
// everything not yet terminal plus this intent and queues it.
//
// Validation and allowance errors are returned synchronously and the intent
// never enters a batch.
func (s *Session) Swipe(ctx context.Context, marketID string, side domain.Side, stake decimal.Decimal) (domain.Intent, error) {
	if side != domain.SideYes && side != domain.SideNo {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: unknown side %q", side)
	}
	if !stake.IsPositive() {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: stake %s: %w", stake, domain.ErrInvalidStake)
	}

	target, err := s.validator.Validate(ctx, marketID)
	if err != nil {
		return domain.Intent{}, err
	}

	call, err := s.calls.Build(target, side, stake)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: build call: %w", err)
	}

	in := domain.Intent{
		ID:        uuid.NewString(),
		MarketID:  target.MarketID,
		Question:  target.Question,
		Side:      side,
		Stake:     stake,
		Call:      call,
		CreatedAt: s.clock.Now().UTC(),
	}

	required := append(s.committed(), in)
	ok, err := s.allowance.IsSufficient(ctx, s.user, required)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: check allowance: %w", err)
	}
	if !ok {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: need %s: %w",
			domain.SumStake(required).StringFixed(2), domain.ErrInsufficientAllowance)
	}

	queued, err := s.acc.Append(in)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("swipe.Swipe: %w", err)
	}

	slog.Debug("swipe: intent queued",
		"user", s.user,
		"market", in.MarketID,
		"side", side,
		"stake", stake.String(),
		"queued", queued,
	)
	s.notifier.OnBatchQueued(s.user, queued)
	return in, nil
}

// committed returns every intent that may still spend collateral: the one in
// flight, those flushed but not yet submitted and those still pending.
func (s *Session) committed() []domain.Intent {
	var out []domain.Intent
	inFlight := s.gate.InFlightBatch()
	if inFlight != nil {
		out = inFlight.Intents()
	}
	s.mu.Lock()
	// active is still set for a moment after the gate accepts it.
	if s.active != nil && (inFlight == nil || s.active.ID != inFlight.ID) {
		out = append(out, s.active.Intents()...)
	}
	for _, b := range s.queue {
		out = append(out, b.Intents()...)
	}
	s.mu.Unlock()
	return append(out, s.acc.PendingIntents()...)
}

// Flush hands off the pending batch without waiting for size or inactivity.
func (s *Session) Flush() {
	s.acc.Flush()
}

// Pending returns the number of intents not yet handed off.
func (s *Session) Pending() int {
	return s.acc.Pending()
}

// InFlight reports whether a submission is waiting for a terminal status.
func (s *Session) InFlight() bool {
	return s.gate.InFlight()
}

// ProcessedReceipts returns how many receipts were reconciled in this session.
func (s *Session) ProcessedReceipts() int {
	return s.processed.Len()
}

// Close drops what was never handed off (logging each intent), waits for
// in-flight work until ctx is done, then stops the session.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, in := range s.acc.Close() {
		s.drop(in, "session closed before flush")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("swipe.Close: %s: %w", s.user, ctx.Err())
	}
	s.cancel()
	return err
}

// handoff is called by the accumulator, with its lock held, for each frozen
// batch. It only queues the batch and makes sure a drain goroutine runs.
func (s *Session) handoff(b *domain.Batch, reason FlushReason) {
	slog.Info("swipe: batch flushed",
		"user", s.user,
		"batch", b.ID,
		"intents", b.Len(),
		"trigger", reason,
	)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, in := range b.Intents() {
			s.drop(in, "session closed before submission")
		}
		return
	}
	s.queue = append(s.queue, b)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.drain()
}

// drain submits queued batches one at a time, oldest first.
func (s *Session) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.active = nil
			s.draining = false
			s.mu.Unlock()
			return
		}
		b := s.queue[0]
		s.queue = s.queue[1:]
		s.active = b
		s.mu.Unlock()

		s.submit(s.ctx, b)
	}
}

// requeue sends a batch rejected by the gate, and every batch queued behind
// it, back to the accumulator in flush order.
func (s *Session) requeue(rejected *domain.Batch) {
	batches := 1
	s.acc.RequeueFrom(func() []domain.Intent {
		s.mu.Lock()
		defer s.mu.Unlock()
		intents := rejected.Intents()
		for _, b := range s.queue {
			intents = append(intents, b.Intents()...)
		}
		batches += len(s.queue)
		s.queue = nil
		s.active = nil
		return intents
	})
	slog.Info("swipe: submission in flight, requeueing batches",
		"user", s.user, "batch", rejected.ID, "batches", batches)
}

// submit re-validates, checks allowance and takes the gate. On contention
// the intents go back to the accumulator. The status stream is watched on
// its own goroutine so the next queued batch is not held up.
func (s *Session) submit(ctx context.Context, b *domain.Batch) {
	intents := b.Intents()
	ids := make([]string, len(intents))
	for i, in := range intents {
		ids[i] = in.MarketID
	}
	checks := s.validator.ValidateMany(ctx, ids)

	kept := make([]domain.Intent, 0, len(intents))
	for i, in := range intents {
		err := checks[i].Err
		switch {
		case errors.Is(err, domain.ErrInvalidMarket):
			s.drop(in, err.Error())
			continue
		case err != nil:
			slog.Warn("swipe: market lookup failed at flush, keeping intent",
				"market", in.MarketID, "err", err)
		}
		kept = append(kept, in)
	}
	if len(kept) == 0 {
		s.notifier.OnBatchResolved(s.user, b.ID, domain.OutcomeEmpty, "no valid intents")
		return
	}

	ready := b
	if len(kept) != b.Len() {
		ready = domain.NewFrozenBatch(b.ID, s.user, kept)
	}

	ok, err := s.allowance.IsSufficient(ctx, s.user, ready.Intents())
	if err != nil || !ok {
		reason := domain.ErrInsufficientAllowance.Error()
		if err != nil {
			reason = fmt.Sprintf("allowance check failed: %v", err)
		}
		for _, in := range ready.Intents() {
			s.drop(in, reason)
		}
		s.notifier.OnBatchResolved(s.user, ready.ID, domain.OutcomeBlocked, reason)
		return
	}

	rec, events, err := s.gate.TrySubmit(ctx, ready)
	if errors.Is(err, domain.ErrAlreadyInFlight) {
		s.requeue(ready)
		return
	}
	if err != nil {
		for _, in := range ready.Intents() {
			s.drop(in, err.Error())
		}
		s.notifier.OnBatchResolved(s.user, ready.ID, domain.OutcomeErrored, err.Error())
		return
	}

	s.notifier.OnBatchFlushed(s.user, ready.ID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitor.Watch(ctx, rec, ready, events)
	}()
}

func (s *Session) drop(in domain.Intent, reason string) {
	slog.Warn("swipe: intent dropped",
		"user", s.user,
		"intent", in.ID,
		"market", in.MarketID,
		"side", in.Side,
		"stake", in.Stake.String(),
		"reason", reason,
	)
	s.notifier.OnIntentDropped(s.user, in, reason)
}
