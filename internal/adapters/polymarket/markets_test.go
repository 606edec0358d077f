package polymarket_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/alejandrodnm/swipebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/gamma_markets.json")
	require.NoError(t, err)
	return data
}

func TestGetMarket_Success(t *testing.T) {
	data := loadFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "0xabc123", r.URL.Query().Get("condition_ids"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).GetMarket(context.Background(), "0xabc123")
	require.NoError(t, err)

	assert.Equal(t, "Will BTC close above $100k on Friday?", m.Question)
	assert.Equal(t, "crypto", m.Category)
	assert.Equal(t, "0x9f5BbF1Bb1E0c1b1A4b8b1F2a0c4B8F0a1C2D3E4", m.MarketMaker)
	assert.True(t, m.IsLive())
	assert.Equal(t, 2026, m.EndDate.Year())
	assert.Equal(t, "token_yes_001", m.YesToken().TokenID)
	assert.Equal(t, "token_no_001", m.NoToken().TokenID)
	assert.InDelta(t, 0.62, m.YesToken().Price, 0.0001)
}

func TestGetMarket_ResolvedFlag(t *testing.T) {
	data := loadFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).GetMarket(context.Background(), "0x789aaa")
	require.NoError(t, err)
	assert.True(t, m.Resolved)
	assert.False(t, m.IsLive())
}

func TestGetMarket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := polymarket.NewClient(srv.URL).GetMarket(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestGetMarket_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad condition id"}`))
	}))
	defer srv.Close()

	_, err := polymarket.NewClient(srv.URL).GetMarket(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMarketNotFound)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetMarket_RetriesServerError(t *testing.T) {
	data := loadFixture(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).GetMarket(context.Background(), "0xabc123")
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", m.ConditionID)
	assert.EqualValues(t, 2, calls.Load())
}

func TestListActiveMarkets_FiltersAndPaginates(t *testing.T) {
	data := loadFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 0 {
			// full first page forces a second request
			w.Write([]byte("["))
			for i := 0; i < 100; i++ {
				if i > 0 {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"conditionId":"0xp%d","active":true,"marketMakerAddress":"0x1111111111111111111111111111111111111111"}`, i)
			}
			w.Write([]byte("]"))
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	markets, err := polymarket.NewClient(srv.URL).ListActiveMarkets(context.Background())
	require.NoError(t, err)
	// 100 from page one, plus only 0xabc123 from the fixture: no market maker / resolved are skipped
	require.Len(t, markets, 101)
	assert.Equal(t, "0xabc123", markets[100].ConditionID)
}
