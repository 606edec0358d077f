package swipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
)

// MarketValidator confirms a market is live and resolves its settlement target.
// It never caches: every call goes to the authoritative store.
type MarketValidator struct {
	markets ports.MarketStore
}

// NewMarketValidator creates a validator over the given store.
func NewMarketValidator(markets ports.MarketStore) *MarketValidator {
	return &MarketValidator{markets: markets}
}

// Validate returns the settlement target for a live market. Errors wrapping
// domain.ErrInvalidMarket are final; any other error is a lookup failure.
func (v *MarketValidator) Validate(ctx context.Context, marketID string) (domain.SettlementTarget, error) {
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: empty market id: %w", domain.ErrInvalidMarket)
	}

	m, err := v.markets.GetMarket(ctx, marketID)
	if errors.Is(err, domain.ErrMarketNotFound) {
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: market %s not found: %w", marketID, domain.ErrInvalidMarket)
	}
	if err != nil {
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: lookup %s: %w", marketID, err)
	}

	switch {
	case m.Resolved:
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: market %s already resolved: %w", marketID, domain.ErrInvalidMarket)
	case !m.IsLive():
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: market %s not open: %w", marketID, domain.ErrInvalidMarket)
	case m.MarketMaker == "":
		return domain.SettlementTarget{}, fmt.Errorf("swipe.Validate: market %s has no settlement contract: %w", marketID, domain.ErrInvalidMarket)
	}

	return domain.SettlementTarget{
		MarketID: m.ConditionID,
		Question: m.Question,
		Contract: m.MarketMaker,
	}, nil
}

// Exists reports whether the store still knows the market, regardless of
// whether it is open. Used after confirmation, when the trade is already final.
func (v *MarketValidator) Exists(ctx context.Context, marketID string) error {
	if _, err := v.markets.GetMarket(ctx, marketID); err != nil {
		return fmt.Errorf("swipe.Exists: %s: %w", marketID, err)
	}
	return nil
}
