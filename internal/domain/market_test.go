package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarket_IsLive(t *testing.T) {
	assert.True(t, Market{Active: true}.IsLive())
	assert.False(t, Market{}.IsLive())
	assert.False(t, Market{Active: true, Closed: true}.IsLive())
	assert.False(t, Market{Active: true, Resolved: true}.IsLive())
}

func TestMarket_Tokens(t *testing.T) {
	m := Market{Tokens: [2]Token{{Outcome: "No", Price: 0.4}, {Outcome: "Yes", Price: 0.6}}}
	assert.Equal(t, 0.6, m.YesToken().Price)
	assert.Equal(t, 0.4, m.NoToken().Price)
}

func TestTruncateQuestion(t *testing.T) {
	assert.Equal(t, "short", TruncateQuestion("short", "0x1", 10))
	assert.Equal(t, "abcdefg...", TruncateQuestion("abcdefghijklmnop", "0x1", 10))
	assert.Equal(t, "0x123456789012345678...", TruncateQuestion("", "0x1234567890123456789012", 40))
}

func TestMarketLabel(t *testing.T) {
	assert.Equal(t, "[CRY] BTC above 100k?", MarketLabel(Market{Question: "BTC above 100k?", Category: "Crypto"}))

	m := Market{Question: "Rain tomorrow?", EndDate: time.Now().Add(5*time.Hour + 30*time.Minute)}
	label := MarketLabel(m)
	assert.True(t, strings.HasPrefix(label, "Rain tomorrow? ("), label)
	assert.True(t, strings.HasSuffix(label, "h)"), label)

	assert.Equal(t, "Done?", MarketLabel(Market{Question: "Done?", EndDate: time.Now().Add(-time.Hour)}))
}

func TestParseSide(t *testing.T) {
	for _, s := range []string{"YES", "y", "Right", " r "} {
		side, err := ParseSide(s)
		require.NoError(t, err, s)
		assert.Equal(t, SideYes, side)
	}
	for _, s := range []string{"no", "N", "left", "l"} {
		side, err := ParseSide(s)
		require.NoError(t, err, s)
		assert.Equal(t, SideNo, side)
	}
	_, err := ParseSide("maybe")
	assert.Error(t, err)

	assert.Equal(t, 0, SideYes.OutcomeIndex())
	assert.Equal(t, 1, SideNo.OutcomeIndex())
}

func TestPosition_Apply(t *testing.T) {
	p := Position{User: "0xuser", MarketID: "m1"}
	p = p.Apply(SideYes, decimal.NewFromInt(2))
	p = p.Apply(SideNo, decimal.RequireFromString("0.5"))
	p = p.Apply(SideYes, decimal.NewFromInt(1))

	assert.True(t, decimal.NewFromInt(3).Equal(p.YesStake))
	assert.True(t, decimal.RequireFromString("0.5").Equal(p.NoStake))
	assert.True(t, decimal.RequireFromString("3.5").Equal(p.TotalInvested))
	assert.False(t, p.UpdatedAt.IsZero())
}
