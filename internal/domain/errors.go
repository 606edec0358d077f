package domain

import "errors"

// Error taxonomy of the swipe pipeline. Callers match with errors.Is.
var (
	// ErrInvalidMarket: market absent, closed or resolved at validation time.
	ErrInvalidMarket = errors.New("invalid market")

	// ErrMarketNotFound is returned by market stores when the id is unknown.
	ErrMarketNotFound = errors.New("market not found")

	// ErrInsufficientAllowance blocks a flush until the user approves more collateral.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrAlreadyInFlight is internal contention on the submission gate.
	// It is never surfaced to the user; the batch is re-queued.
	ErrAlreadyInFlight = errors.New("submission already in flight")

	// ErrBatchFrozen is returned when appending to a batch already handed off for flush.
	ErrBatchFrozen = errors.New("batch frozen")

	// ErrInvalidStake: non-positive stake or more precision than the collateral has.
	ErrInvalidStake = errors.New("invalid stake")

	// ErrSessionClosed is returned by a session after Close.
	ErrSessionClosed = errors.New("session closed")
)
