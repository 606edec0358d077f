package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/swipebot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 20
)

// GetMarket obtiene un mercado por conditionId. Siempre consulta la API.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	q := url.Values{}
	q.Set("condition_ids", conditionID)
	q.Set("limit", "1")

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaBase+gammaMarketsPath+"?"+q.Encode(), &resp); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket.GetMarket: %s: %w", conditionID, err)
	}
	for _, m := range mapGammaMarkets(resp) {
		if m.ConditionID == conditionID {
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("polymarket.GetMarket: %s: %w", conditionID, domain.ErrMarketNotFound)
}

// ListActiveMarkets pagina GET /markets?active=true&closed=false.
// Se corta en gammaMaxPages páginas.
func (c *Client) ListActiveMarkets(ctx context.Context) ([]domain.Market, error) {
	var all []domain.Market
	for page := 0; page < gammaMaxPages; page++ {
		q := url.Values{}
		q.Set("active", "true")
		q.Set("closed", "false")
		q.Set("limit", fmt.Sprint(gammaPageSize))
		q.Set("offset", fmt.Sprint(page*gammaPageSize))

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaBase+gammaMarketsPath+"?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("polymarket.ListActiveMarkets: page %d: %w", page, err)
		}
		for _, m := range mapGammaMarkets(resp) {
			if m.IsLive() && m.MarketMaker != "" {
				all = append(all, m)
			}
		}
		if len(resp) < gammaPageSize {
			break
		}
	}

	slog.Debug("polymarket: active markets fetched", "markets", len(all))
	return all, nil
}
