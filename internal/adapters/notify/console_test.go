package notify_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/alejandrodnm/swipebot/internal/adapters/notify"
	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConsole_BatchEvents(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.OnBatchQueued("0xuser", 3)
	n.OnBatchFlushed("0xuser", "0123456789abcdef")
	n.OnBatchResolved("0xuser", "0123456789abcdef", domain.OutcomeReverted, "out of gas")
	n.OnIntentDropped("0xuser", domain.Intent{
		MarketID: "0xabc",
		Question: "Will BTC hit 100k?",
		Side:     domain.SideNo,
		Stake:    decimal.NewFromInt(5),
	}, "market resolved")

	out := buf.String()
	assert.Contains(t, out, "queued: 3/5")
	assert.Contains(t, out, "submitted batch 01234567")
	assert.Contains(t, out, "batch 01234567 REVERTED: out of gas")
	assert.Contains(t, out, "dropped NO Will BTC hit 100k? $5.00: market resolved")
}

func TestConsole_PrintPositions(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintPositions([]domain.Position{{
		User:          "0xuser",
		MarketID:      "0xabc",
		YesStake:      decimal.RequireFromString("2.5"),
		NoStake:       decimal.Zero,
		TotalInvested: decimal.RequireFromString("2.5"),
		UpdatedAt:     time.Now(),
	}}, map[string]string{"0xabc": "Will the Lakers win?"})

	out := buf.String()
	assert.Contains(t, out, "Will the Lakers win?")
	assert.Contains(t, out, "2.50")
}

func TestConsole_EmptyReports(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintPositions(nil, nil)
	n.PrintMarkets(nil)
	n.PrintUnresolved(nil)
	assert.Contains(t, buf.String(), "No positions yet")
	assert.Contains(t, buf.String(), "No active markets found")
}

func TestConsole_PrintMarketsUsesCategoryLabel(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintMarkets([]domain.Market{{
		ConditionID: "0xabc",
		Question:    "Will ETH flip BTC?",
		Category:    "crypto",
		Tokens:      [2]domain.Token{{Outcome: "Yes", Price: 0.1}, {Outcome: "No", Price: 0.9}},
	}})
	assert.Contains(t, buf.String(), "[CRY] Will ETH flip BTC?")
}
