package pricer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTickerStub serves the 24h ticker endpoint for a fixed price table
// and records every symbol the client asked for.
func newTickerStub(t *testing.T, requested *[]string) *httptest.Server {
	t.Helper()
	table := map[string][2]string{
		"BTCUSDT": {"65200.50", "1.5"},
		"ETHUSDT": {"3450.75", "-0.8"},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		*requested = append(*requested, symbol)
		entry, ok := table[symbol]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"symbol":             symbol,
			"lastPrice":          entry[0],
			"priceChangePercent": entry[1],
		})
	}))
}

func TestBinancePricer_QuotePairsSymbolWithQuoteCurrency(t *testing.T) {
	var requested []string
	srv := newTickerStub(t, &requested)
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL
	p := NewBinancePricer(client, []string{"BTC"}, "USDT")

	q, err := p.Quote(context.Background(), "btc")
	require.NoError(t, err)

	// the exchange sees the full pair symbol exactly once
	require.Equal(t, []string{"BTCUSDT"}, requested)
	assert.Equal(t, "BTC", q.Symbol)
	assert.Equal(t, "65200.5", q.Price.String())
	assert.Equal(t, "1.5", q.ChangePercent.String())
}

func TestBinancePricer_QuotesAllConfiguredSymbols(t *testing.T) {
	var requested []string
	srv := newTickerStub(t, &requested)
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL
	p := NewBinancePricer(client, []string{"BTC", "ETH"}, "USDT")

	quotes, err := p.Quotes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, requested)
	require.Len(t, quotes, 2)
	assert.Equal(t, "BTC", quotes[0].Symbol)
	assert.Equal(t, "ETH", quotes[1].Symbol)
}

func TestBinancePricer_UnknownSymbol(t *testing.T) {
	var requested []string
	srv := newTickerStub(t, &requested)
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL
	p := NewBinancePricer(client, []string{"XRP"}, "USDT")

	_, err := p.Quote(context.Background(), "XRP")
	assert.Error(t, err)
}
