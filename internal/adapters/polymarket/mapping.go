package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
)

// mapGammaMarkets convierte los DTOs de Gamma a domain.Market, descartando
// los que no tienen conditionId.
func mapGammaMarkets(raw []gammaMarket) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		if r.ConditionID == "" {
			continue
		}
		markets = append(markets, mapGammaMarket(r))
	}
	return markets
}

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
func mapGammaMarket(r gammaMarket) domain.Market {
	m := domain.Market{
		ConditionID: r.ConditionID,
		Question:    r.Question,
		Slug:        r.Slug,
		Category:    strings.ToLower(strings.TrimSpace(r.Category)),
		MarketMaker: r.MarketMakerAddress,
		Active:      r.Active,
		Closed:      r.Closed,
		Resolved:    strings.EqualFold(r.UMAResolutionStatus, "resolved"),
		EndDate:     parseEndDate(r.EndDateISO, r.EndDate),
	}

	outcomes := decodeStringArray(r.Outcomes)
	prices := decodeStringArray(r.OutcomePrices)
	tokenIDs := decodeStringArray(r.ClobTokenIDs)
	for i := 0; i < 2 && i < len(outcomes); i++ {
		t := domain.Token{Outcome: outcomes[i]}
		if i < len(tokenIDs) {
			t.TokenID = tokenIDs[i]
		}
		if i < len(prices) {
			t.Price, _ = strconv.ParseFloat(prices[i], 64)
		}
		m.Tokens[i] = t
	}

	return m
}

// decodeStringArray parsea `["a","b"]` embebido en un string. Devuelve nil si no parsea.
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parseEndDate prueba los formatos que usa Polymarket.
func parseEndDate(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
