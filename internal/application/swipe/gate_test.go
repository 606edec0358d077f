package swipe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenBatch(markets ...string) *domain.Batch {
	b := domain.NewBatch("0xuser")
	for _, m := range markets {
		_ = b.Append(intent(m))
	}
	b.Freeze()
	return b
}

func TestGate_SingleInFlight(t *testing.T) {
	sub := &fakeSubmitter{}
	g := newSubmissionGate("0xuser", sub, nil, newFakeClock(), 0, nil)

	var ok, busy atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := g.TrySubmit(context.Background(), frozenBatch("m"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrAlreadyInFlight):
				busy.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 19, busy.Load())
	assert.Equal(t, 1, sub.count())
	assert.True(t, g.InFlight())
}

func TestGate_ReleaseOnceAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	var released atomic.Int32
	g := newSubmissionGate("0xuser", &fakeSubmitter{}, nil, clock, 1500*time.Millisecond, func() { released.Add(1) })

	rec, _, err := g.TrySubmit(context.Background(), frozenBatch("m"))
	require.NoError(t, err)
	require.True(t, rec.Resolve(domain.SubmissionConfirmed, "0xr", ""))

	g.Release(rec)
	g.Release(rec)
	clock.Advance(time.Second)
	assert.True(t, g.InFlight())

	clock.Advance(time.Second)
	assert.False(t, g.InFlight())
	assert.Nil(t, g.Current())
	assert.EqualValues(t, 1, released.Load())
}

func TestGate_InFlightBatchUntilTerminal(t *testing.T) {
	g := newSubmissionGate("0xuser", &fakeSubmitter{}, nil, newFakeClock(), time.Second, nil)
	assert.Nil(t, g.InFlightBatch())

	b := frozenBatch("m1", "m2")
	rec, _, err := g.TrySubmit(context.Background(), b)
	require.NoError(t, err)
	require.NotNil(t, g.InFlightBatch())
	assert.Equal(t, b.ID, g.InFlightBatch().ID)

	// Terminal but still cooling down: the stake is spent, not committed.
	require.True(t, rec.Resolve(domain.SubmissionReverted, "0xr", "revert"))
	assert.Nil(t, g.InFlightBatch())
	assert.True(t, g.InFlight())
}

func TestGate_SubmitErrorFreesSlot(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("nonce too low")}
	journal := newFakeJournal()
	g := newSubmissionGate("0xuser", sub, journal, newFakeClock(), time.Second, nil)

	b := frozenBatch("m")
	rec, events, err := g.TrySubmit(context.Background(), b)
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Equal(t, domain.SubmissionErrored, rec.State())
	assert.False(t, g.InFlight())
	assert.Equal(t, domain.SubmissionErrored, journal.entries[b.ID].State)
}

func TestSubmissionRecord_ResolveOnce(t *testing.T) {
	rec := domain.NewSubmissionRecord("b1", "0xuser")
	assert.False(t, rec.Resolve(domain.SubmissionPending, "", ""))
	assert.True(t, rec.Resolve(domain.SubmissionReverted, "", "boom"))
	assert.False(t, rec.Resolve(domain.SubmissionConfirmed, "0xr", ""))
	assert.Equal(t, domain.SubmissionReverted, rec.State())
	assert.Empty(t, rec.ReceiptID())
}
