package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the user's binary choice on a market card.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ParseSide accepts YES/NO and the swipe directions (right = YES, left = NO).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "right", "r":
		return SideYes, nil
	case "no", "n", "left", "l":
		return SideNo, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// OutcomeIndex returns the FPMM outcome slot for the side (YES=0, NO=1).
func (s Side) OutcomeIndex() int {
	if s == SideNo {
		return 1
	}
	return 0
}

// CallDescriptor is an opaque execution call. Only the submission boundary
// looks inside it.
type CallDescriptor struct {
	To   string // contract address (0x...)
	Data []byte // ABI-encoded calldata
}

// Intent is one user decision waiting to be batched. Immutable once created.
type Intent struct {
	ID        string
	MarketID  string
	Question  string
	Side      Side
	Stake     decimal.Decimal // collateral units (USDC)
	Call      CallDescriptor
	CreatedAt time.Time
}
