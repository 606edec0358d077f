package ports

import (
	"context"

	"github.com/alejandrodnm/swipebot/internal/domain"
)

// MarketStore is the authoritative source of markets.
type MarketStore interface {
	// GetMarket returns the market or an error wrapping domain.ErrMarketNotFound.
	GetMarket(ctx context.Context, marketID string) (domain.Market, error)

	// ListActiveMarkets returns the markets currently open for trading.
	ListActiveMarkets(ctx context.Context) ([]domain.Market, error)
}
