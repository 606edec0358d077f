package swipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock and runs due timers in deadline order, outside the lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	var keep []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// fakeMarkets is an in-memory market store.
type fakeMarkets struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	failing map[string]error
	lookups map[string]int
	held    map[string]chan struct{}
}

func newFakeMarkets(ids ...string) *fakeMarkets {
	fm := &fakeMarkets{
		markets: make(map[string]domain.Market),
		failing: make(map[string]error),
		lookups: make(map[string]int),
		held:    make(map[string]chan struct{}),
	}
	for _, id := range ids {
		fm.markets[id] = liveMarket(id)
	}
	return fm
}

func liveMarket(id string) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    "Will " + id + " happen?",
		MarketMaker: "0x00000000000000000000000000000000000000aa",
		Active:      true,
	}
}

func (f *fakeMarkets) set(m domain.Market) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[m.ConditionID] = m
}

func (f *fakeMarkets) resolve(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.markets[id]
	m.Resolved = true
	f.markets[id] = m
}

func (f *fakeMarkets) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[id] = err
}

// hold blocks every later lookup of id until the returned func is called.
func (f *fakeMarkets) hold(id string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.held[id] = ch
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.held, id)
		f.mu.Unlock()
		close(ch)
	}
}

func (f *fakeMarkets) GetMarket(_ context.Context, id string) (domain.Market, error) {
	f.mu.Lock()
	f.lookups[id]++
	ch := f.held[id]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[id]; ok {
		return domain.Market{}, err
	}
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrMarketNotFound)
	}
	return m, nil
}

func (f *fakeMarkets) lookupCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[id]
}

func (f *fakeMarkets) ListActiveMarkets(context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Market
	for _, m := range f.markets {
		if m.IsLive() {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCalls struct{}

func (fakeCalls) Build(target domain.SettlementTarget, side domain.Side, stake decimal.Decimal) (domain.CallDescriptor, error) {
	return domain.CallDescriptor{
		To:   target.Contract,
		Data: []byte(fmt.Sprintf("%s:%s:%s", target.MarketID, side, stake)),
	}, nil
}

// submission is one call to fakeSubmitter.Submit.
type submission struct {
	calls  []domain.CallDescriptor
	events chan domain.StatusEvent
}

func (s *submission) confirm(receipt string) {
	s.events <- domain.StatusEvent{Kind: domain.StatusConfirmed, ReceiptID: receipt}
}

func (s *submission) revert(reason string) {
	s.events <- domain.StatusEvent{Kind: domain.StatusReverted, Reason: reason}
}

type fakeSubmitter struct {
	mu          sync.Mutex
	submissions []*submission
	err         error
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, calls []domain.CallDescriptor) (<-chan domain.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &submission{calls: calls, events: make(chan domain.StatusEvent, 8)}
	f.submissions = append(f.submissions, s)
	return s.events, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

func (f *fakeSubmitter) at(i int) *submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[i]
}

type fakeAllowance struct {
	mu    sync.Mutex
	limit decimal.Decimal
}

func newFakeAllowance(limit int64) *fakeAllowance {
	return &fakeAllowance{limit: decimal.NewFromInt(limit)}
}

func (f *fakeAllowance) setLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = decimal.NewFromInt(limit)
}

func (f *fakeAllowance) IsSufficient(_ context.Context, _ string, intents []domain.Intent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.SumStake(intents).LessThanOrEqual(f.limit), nil
}

// fakeStorage keeps predictions and positions in maps. failMarket makes every
// write for that market fail.
type fakeStorage struct {
	mu          sync.Mutex
	predictions map[domain.PredictionKey]domain.PredictionRecord
	positions   map[string]domain.Position
	failMarket  string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		predictions: make(map[domain.PredictionKey]domain.PredictionRecord),
		positions:   make(map[string]domain.Position),
	}
}

func (f *fakeStorage) ApplySchema(context.Context) error { return nil }
func (f *fakeStorage) Close() error                      { return nil }

func (f *fakeStorage) HasPrediction(_ context.Context, key domain.PredictionKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.predictions[key]
	return ok, nil
}

func (f *fakeStorage) CreatePredictionRecord(_ context.Context, rec domain.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.Key.MarketID == f.failMarket {
		return errors.New("disk full")
	}
	f.predictions[rec.Key] = rec
	return nil
}

func (f *fakeStorage) GetPosition(_ context.Context, user, marketID string) (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions[user+"/"+marketID], nil
}

func (f *fakeStorage) UpsertPosition(_ context.Context, pos domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[pos.User+"/"+pos.MarketID] = pos
	return nil
}

func (f *fakeStorage) ListPositions(_ context.Context, user string) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Position
	for _, p := range f.positions {
		if p.User == user {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStorage) predictionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.predictions)
}

func (f *fakeStorage) position(user, marketID string) domain.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions[user+"/"+marketID]
}

type fakeJournal struct {
	mu      sync.Mutex
	entries map[string]domain.SubmissionEntry
	flagged []string
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{entries: make(map[string]domain.SubmissionEntry)}
}

func (f *fakeJournal) RecordSubmission(_ context.Context, e domain.SubmissionEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.BatchID] = e
	return nil
}

func (f *fakeJournal) MarkNeedsReconciliation(_ context.Context, batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flagged = append(f.flagged, batchID)
	return nil
}

func (f *fakeJournal) ListUnresolvedSubmissions(_ context.Context, user string) ([]domain.SubmissionEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SubmissionEntry
	for _, e := range f.entries {
		if e.User == user && !e.State.Terminal() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeJournal) flaggedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flagged)
}

type resolvedEvent struct {
	batchID string
	outcome domain.BatchOutcome
	reason  string
}

type recordingNotifier struct {
	mu       sync.Mutex
	queued   []int
	flushed  []string
	resolved []resolvedEvent
	dropped  []string
}

func (n *recordingNotifier) OnBatchQueued(_ string, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queued = append(n.queued, count)
}

func (n *recordingNotifier) OnBatchFlushed(_, batchID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flushed = append(n.flushed, batchID)
}

func (n *recordingNotifier) OnBatchResolved(_, batchID string, outcome domain.BatchOutcome, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, resolvedEvent{batchID: batchID, outcome: outcome, reason: reason})
}

func (n *recordingNotifier) OnIntentDropped(_ string, in domain.Intent, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropped = append(n.dropped, in.MarketID)
}

func (n *recordingNotifier) outcomes() []domain.BatchOutcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.BatchOutcome, 0, len(n.resolved))
	for _, r := range n.resolved {
		out = append(out, r.outcome)
	}
	return out
}

func (n *recordingNotifier) droppedMarkets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.dropped...)
}

// harness wires a Session over the fakes.
type harness struct {
	clock     *fakeClock
	markets   *fakeMarkets
	submitter *fakeSubmitter
	allowance *fakeAllowance
	storage   *fakeStorage
	journal   *fakeJournal
	notifier  *recordingNotifier
	session   *Session
}

func testConfig() Config {
	return Config{
		MaxBatchSize:      domain.MaxBatchSize,
		InactivityTimeout: 8 * time.Second,
	}
}

func newHarness(cfg Config, markets ...string) *harness {
	h := &harness{
		clock:     newFakeClock(),
		markets:   newFakeMarkets(markets...),
		submitter: &fakeSubmitter{},
		allowance: newFakeAllowance(1000),
		storage:   newFakeStorage(),
		journal:   newFakeJournal(),
		notifier:  &recordingNotifier{},
	}
	h.session = NewSession(context.Background(), "0xuser", Deps{
		Markets:   h.markets,
		Calls:     fakeCalls{},
		Submitter: h.submitter,
		Allowance: h.allowance,
		Storage:   h.storage,
		Journal:   h.journal,
		Notifier:  h.notifier,
		Clock:     h.clock,
	}, cfg)
	return h
}
