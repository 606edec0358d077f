package domain

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxBatchSize is the number of intents that triggers an immediate flush.
const MaxBatchSize = 5

// Batch is an ordered group of intents for a single user.
//
// A batch grows by Append until Freeze succeeds; after that it is read-only.
// Append is not safe for concurrent use, the owner serializes it. Freeze is a
// compare-and-swap so two flush triggers can race on it safely.
type Batch struct {
	ID        string
	User      string
	CreatedAt time.Time

	intents []Intent
	frozen  atomic.Bool
}

// NewBatch creates an empty, open batch.
func NewBatch(user string) *Batch {
	return &Batch{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: time.Now().UTC(),
	}
}

// NewFrozenBatch builds an already-frozen batch from a fixed list of intents.
// Used when a flushed batch has to be narrowed before submission: the
// original stays untouched and this one carries the same ID.
func NewFrozenBatch(id, user string, intents []Intent) *Batch {
	b := &Batch{
		ID:        id,
		User:      user,
		CreatedAt: time.Now().UTC(),
		intents:   append([]Intent(nil), intents...),
	}
	b.frozen.Store(true)
	return b
}

// Append adds an intent at the end of the batch.
func (b *Batch) Append(in Intent) error {
	if b.frozen.Load() {
		return ErrBatchFrozen
	}
	b.intents = append(b.intents, in)
	return nil
}

// Freeze marks the batch as handed off. Only the first caller gets true.
func (b *Batch) Freeze() bool {
	return b.frozen.CompareAndSwap(false, true)
}

// Frozen reports whether the batch was already handed off.
func (b *Batch) Frozen() bool {
	return b.frozen.Load()
}

// Len returns the number of intents.
func (b *Batch) Len() int {
	return len(b.intents)
}

// Intents returns a copy of the intents in append order.
func (b *Batch) Intents() []Intent {
	return append([]Intent(nil), b.intents...)
}

// Calls returns the call descriptors in append order.
func (b *Batch) Calls() []CallDescriptor {
	calls := make([]CallDescriptor, len(b.intents))
	for i, in := range b.intents {
		calls[i] = in.Call
	}
	return calls
}

// TotalStake is the aggregate stake of all intents.
func (b *Batch) TotalStake() decimal.Decimal {
	return SumStake(b.intents)
}

// SumStake is the aggregate stake of intents.
func SumStake(intents []Intent) decimal.Decimal {
	total := decimal.Zero
	for _, in := range intents {
		total = total.Add(in.Stake)
	}
	return total
}

// StakeByTarget groups the stake of intents by the contract their call is
// sent to. Keys are lowercased addresses.
func StakeByTarget(intents []Intent) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, in := range intents {
		to := strings.ToLower(in.Call.To)
		out[to] = out[to].Add(in.Stake)
	}
	return out
}
