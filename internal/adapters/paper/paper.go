// Package paper simulates the chain for -dry-run: submissions confirm after a
// fixed delay and the allowance is a fixed virtual budget.
package paper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Submitter implementa ports.Submitter sin tocar la chain.
type Submitter struct {
	delay time.Duration
}

// NewSubmitter crea un submitter que confirma cada batch tras delay.
func NewSubmitter(delay time.Duration) *Submitter {
	return &Submitter{delay: delay}
}

// Submit emite Pending y, tras el delay, Confirmed con un receipt virtual.
func (s *Submitter) Submit(ctx context.Context, user string, calls []domain.CallDescriptor) (<-chan domain.StatusEvent, error) {
	if len(calls) == 0 {
		return nil, errors.New("paper.Submit: empty batch")
	}

	receipt := "paper-" + uuid.NewString()
	events := make(chan domain.StatusEvent, 2)
	events <- domain.StatusEvent{Kind: domain.StatusPending, ReceiptID: receipt, At: time.Now().UTC()}
	slog.Info("[PAPER] batch submitted", "user", user, "calls", len(calls), "receipt", receipt)

	go func() {
		defer close(events)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
		events <- domain.StatusEvent{Kind: domain.StatusConfirmed, ReceiptID: receipt, At: time.Now().UTC()}
	}()
	return events, nil
}

// Allowance implementa ports.AllowanceChecker con un presupuesto fijo.
type Allowance struct {
	budget decimal.Decimal
}

// NewAllowance crea un checker con el presupuesto dado en USDC.
func NewAllowance(budget decimal.Decimal) *Allowance {
	return &Allowance{budget: budget}
}

func (a *Allowance) IsSufficient(_ context.Context, _ string, intents []domain.Intent) (bool, error) {
	return domain.SumStake(intents).LessThanOrEqual(a.budget), nil
}
