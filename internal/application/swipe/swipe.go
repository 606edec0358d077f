// Package swipe batches a user's swipes into on-chain submissions, tracks
// each submission until it is terminal and syncs confirmed intents to storage.
package swipe

import (
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"go.opentelemetry.io/otel"
)

const (
	defaultInactivityTimeout = 8 * time.Second
	defaultReleaseCooldown   = 1500 * time.Millisecond
	defaultStaleAfter        = 10 * time.Minute
)

var tracer = otel.Tracer("github.com/alejandrodnm/swipebot/internal/application/swipe")

// Config controls batching and submission timing.
type Config struct {
	MaxBatchSize      int
	InactivityTimeout time.Duration
	// ReleaseCooldown delays clearing the in-flight flag after a terminal
	// event, so a trailing duplicate cannot race a new submission.
	ReleaseCooldown time.Duration
	// StaleAfter flags a submission for manual reconciliation when no terminal
	// event arrived. It never releases the gate. 0 disables it.
	StaleAfter time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:      domain.MaxBatchSize,
		InactivityTimeout: defaultInactivityTimeout,
		ReleaseCooldown:   defaultReleaseCooldown,
		StaleAfter:        defaultStaleAfter,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = domain.MaxBatchSize
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = defaultInactivityTimeout
	}
	if c.ReleaseCooldown < 0 {
		c.ReleaseCooldown = 0
	}
	return c
}

// Deps are the external collaborators of a session. Journal and Notifier may be nil.
type Deps struct {
	Markets   ports.MarketStore
	Calls     ports.CallBuilder
	Submitter ports.Submitter
	Allowance ports.AllowanceChecker
	Storage   ports.PredictionStorage
	Journal   ports.SubmissionJournal
	Notifier  ports.BatchNotifier
	Clock     Clock
}

// Clock abstracts timers so tests can drive the inactivity timeout.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the pipeline uses.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// nopNotifier is used when no UI is attached.
type nopNotifier struct{}

func (nopNotifier) OnBatchQueued(string, int)                                   {}
func (nopNotifier) OnBatchFlushed(string, string)                               {}
func (nopNotifier) OnBatchResolved(string, string, domain.BatchOutcome, string) {}
func (nopNotifier) OnIntentDropped(string, domain.Intent, string)               {}
