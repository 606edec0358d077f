package ports

import "github.com/alejandrodnm/swipebot/internal/domain"

// BatchNotifier receives informational events for the UI. Nothing in the
// pipeline depends on them being consumed.
type BatchNotifier interface {
	OnBatchQueued(user string, count int)
	OnBatchFlushed(user, batchID string)
	OnBatchResolved(user, batchID string, outcome domain.BatchOutcome, reason string)
	OnIntentDropped(user string, intent domain.Intent, reason string)
}
