package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// SubmissionState is the lifecycle of a submitted batch.
type SubmissionState string

const (
	SubmissionPending   SubmissionState = "PENDING"
	SubmissionConfirmed SubmissionState = "CONFIRMED"
	SubmissionReverted  SubmissionState = "REVERTED"
	SubmissionErrored   SubmissionState = "ERRORED"
)

// Terminal returns true for Confirmed, Reverted and Errored.
func (s SubmissionState) Terminal() bool {
	return s == SubmissionConfirmed || s == SubmissionReverted || s == SubmissionErrored
}

// StatusKind is the kind of event delivered by the submission boundary.
type StatusKind string

const (
	StatusPending   StatusKind = "pending"
	StatusConfirmed StatusKind = "confirmed"
	StatusReverted  StatusKind = "reverted"
	StatusErrored   StatusKind = "errored"
)

// StatusEvent is one notification from the submission boundary.
// The same confirmed event may be delivered more than once.
type StatusEvent struct {
	Kind      StatusKind
	ReceiptID string
	Reason    string
	At        time.Time
}

// BatchOutcome is what the UI is told when a batch is resolved.
type BatchOutcome string

const (
	OutcomeConfirmed BatchOutcome = "CONFIRMED"
	OutcomeReverted  BatchOutcome = "REVERTED"
	OutcomeErrored   BatchOutcome = "ERRORED"
	// OutcomeBlocked: the batch never reached the gate (allowance).
	OutcomeBlocked BatchOutcome = "BLOCKED"
	// OutcomeEmpty: every intent was rejected at flush-time validation.
	OutcomeEmpty BatchOutcome = "EMPTY"
)

// SubmissionRecord tracks one batch through the external lifecycle.
// State transitions are check-and-set under the record's own lock; once
// terminal the record never changes again.
type SubmissionRecord struct {
	BatchID     string
	User        string
	SubmittedAt time.Time

	mu         sync.Mutex
	state      SubmissionState
	receiptID  string
	reason     string
	resolvedAt time.Time

	released atomic.Bool
}

// NewSubmissionRecord creates a record in Pending state.
func NewSubmissionRecord(batchID, user string) *SubmissionRecord {
	return &SubmissionRecord{
		BatchID:     batchID,
		User:        user,
		SubmittedAt: time.Now().UTC(),
		state:       SubmissionPending,
	}
}

// Resolve moves a Pending record to a terminal state. Returns false if the
// record was already terminal or to is not terminal.
func (r *SubmissionRecord) Resolve(to SubmissionState, receiptID, reason string) bool {
	if !to.Terminal() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = to
	if receiptID != "" {
		r.receiptID = receiptID
	}
	r.reason = reason
	r.resolvedAt = time.Now().UTC()
	return true
}

// State returns the current state.
func (r *SubmissionRecord) State() SubmissionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ReceiptID returns the receipt, empty until one is known.
func (r *SubmissionRecord) ReceiptID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.receiptID
}

// MarkReleased flips the record's release flag. Only the first caller gets true.
func (r *SubmissionRecord) MarkReleased() bool {
	return r.released.CompareAndSwap(false, true)
}

// Snapshot returns a plain copy suitable for the submission journal.
func (r *SubmissionRecord) Snapshot() SubmissionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := SubmissionEntry{
		BatchID:     r.BatchID,
		User:        r.User,
		ReceiptID:   r.receiptID,
		State:       r.state,
		Reason:      r.reason,
		SubmittedAt: r.SubmittedAt,
	}
	if !r.resolvedAt.IsZero() {
		t := r.resolvedAt
		e.ResolvedAt = &t
	}
	return e
}

// SubmissionEntry is the persisted view of a SubmissionRecord.
type SubmissionEntry struct {
	BatchID             string
	User                string
	ReceiptID           string
	State               SubmissionState
	Reason              string
	Calls               int
	SubmittedAt         time.Time
	ResolvedAt          *time.Time
	NeedsReconciliation bool
}

// ProcessedReceipts is the set of receipts already reconciled to storage.
// Append-only for the lifetime of a session.
type ProcessedReceipts struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedReceipts creates an empty set.
func NewProcessedReceipts() *ProcessedReceipts {
	return &ProcessedReceipts{seen: make(map[string]struct{})}
}

// Add inserts the receipt and returns true if it was not present.
func (p *ProcessedReceipts) Add(receiptID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[receiptID]; ok {
		return false
	}
	p.seen[receiptID] = struct{}{}
	return true
}

// Has reports whether the receipt was already processed.
func (p *ProcessedReceipts) Has(receiptID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[receiptID]
	return ok
}

// Len returns the number of processed receipts.
func (p *ProcessedReceipts) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
