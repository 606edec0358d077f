package ports

import (
	"context"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
)

// CallBuilder turns a validated intent into an execution call.
type CallBuilder interface {
	// Build is pure. It only fails for malformed input.
	Build(target domain.SettlementTarget, side domain.Side, stake decimal.Decimal) (domain.CallDescriptor, error)
}

// Submitter relays an ordered list of calls for one user as a single
// transaction and reports its lifecycle.
type Submitter interface {
	// Submit sends the calls in the given order. The returned channel delivers
	// status events and is closed by the submitter when it stops tracking.
	// A confirmed event may be delivered more than once.
	Submit(ctx context.Context, user string, calls []domain.CallDescriptor) (<-chan domain.StatusEvent, error)
}

// AllowanceChecker reports whether the user approved enough collateral to
// cover intents. Each intent spends its stake at its call's target, so the
// check is per spender, not only on the total.
type AllowanceChecker interface {
	IsSufficient(ctx context.Context, user string, intents []domain.Intent) (bool, error)
}
