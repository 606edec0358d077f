package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the accumulated stake of one user in one market.
type Position struct {
	User          string
	MarketID      string
	YesStake      decimal.Decimal
	NoStake       decimal.Decimal
	TotalInvested decimal.Decimal
	UpdatedAt     time.Time
}

// Apply returns a copy of the position with stake added to the given side.
func (p Position) Apply(side Side, stake decimal.Decimal) Position {
	switch side {
	case SideYes:
		p.YesStake = p.YesStake.Add(stake)
	case SideNo:
		p.NoStake = p.NoStake.Add(stake)
	}
	p.TotalInvested = p.TotalInvested.Add(stake)
	p.UpdatedAt = time.Now().UTC()
	return p
}

// PredictionKey identifies a persisted prediction. Leg is the intent's index
// inside its batch, so two swipes on the same market in one batch are two
// predictions under the same receipt.
type PredictionKey struct {
	User      string
	MarketID  string
	ReceiptID string
	Leg       int
}

// PredictionRecord is one confirmed intent persisted to durable storage.
type PredictionRecord struct {
	ID        string
	Key       PredictionKey
	BatchID   string
	IntentID  string
	Side      Side
	Stake     decimal.Decimal
	CreatedAt time.Time
}
