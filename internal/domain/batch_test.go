package domain

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intent(market string, side Side, stake string) Intent {
	return Intent{
		ID:       market + string(side),
		MarketID: market,
		Side:     side,
		Stake:    decimal.RequireFromString(stake),
		Call:     CallDescriptor{To: "0x" + market, Data: []byte(market)},
	}
}

func TestBatch_AppendKeepsOrder(t *testing.T) {
	b := NewBatch("0xuser")
	require.NoError(t, b.Append(intent("a", SideYes, "1")))
	require.NoError(t, b.Append(intent("b", SideNo, "2.5")))
	require.NoError(t, b.Append(intent("a", SideNo, "0.5")))

	assert.Equal(t, 3, b.Len())
	calls := b.Calls()
	assert.Equal(t, "0xa", calls[0].To)
	assert.Equal(t, "0xb", calls[1].To)
	assert.Equal(t, "0xa", calls[2].To)
	assert.True(t, decimal.NewFromInt(4).Equal(b.TotalStake()))
}

func TestBatch_FrozenRejectsAppend(t *testing.T) {
	b := NewBatch("0xuser")
	require.NoError(t, b.Append(intent("a", SideYes, "1")))
	assert.True(t, b.Freeze())
	assert.False(t, b.Freeze(), "second freeze loses")
	assert.ErrorIs(t, b.Append(intent("b", SideYes, "1")), ErrBatchFrozen)
	assert.Equal(t, 1, b.Len())
}

func TestBatch_FreezeRace(t *testing.T) {
	b := NewBatch("0xuser")
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Freeze() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestNewFrozenBatch_CopiesIntents(t *testing.T) {
	src := []Intent{intent("a", SideYes, "1"), intent("b", SideNo, "1")}
	b := NewFrozenBatch("batch-1", "0xuser", src)
	src[0].MarketID = "mutated"

	assert.Equal(t, "batch-1", b.ID)
	assert.True(t, b.Frozen())
	assert.Equal(t, "a", b.Intents()[0].MarketID)

	got := b.Intents()
	got[1].MarketID = "mutated"
	assert.Equal(t, "b", b.Intents()[1].MarketID)
}
