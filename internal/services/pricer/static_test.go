package pricer

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbotrade/paperfloor/internal/domain"
)

func TestStaticPricer_Quote(t *testing.T) {
	p := NewDefaultStaticPricer("USDT")

	q, err := p.Quote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "65200.5", q.Price.String())
	assert.Equal(t, "1.5", q.ChangePercent.String())

	// same entry under the pair symbol
	alias, err := p.Quote(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, q, alias)
}

func TestStaticPricer_UnknownSymbol(t *testing.T) {
	p := NewDefaultStaticPricer("USDT")

	q, err := p.Quote(context.Background(), "DOGE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPriceUnavailable))
	// never a zero price on miss
	assert.True(t, q.Price.IsZero())
	assert.Empty(t, q.Symbol)
}

func TestStaticPricer_DuplicateSymbolReplaced(t *testing.T) {
	p := NewStaticPricer([]domain.PriceQuote{
		{Symbol: "BTC", Price: decimal.RequireFromString("100")},
		{Symbol: "ETH", Price: decimal.RequireFromString("10")},
		{Symbol: "btc", Price: decimal.RequireFromString("200")},
	})

	// the later entry wins for both lookup paths
	q, err := p.Quote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "200", q.Price.String())

	quotes, err := p.Quotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	for _, listed := range quotes {
		if listed.Symbol == "btc" {
			assert.Equal(t, "200", listed.Price.String())
		}
	}
}

func TestStaticPricer_QuotesSorted(t *testing.T) {
	p := NewDefaultStaticPricer("USDT")

	quotes, err := p.Quotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 4)

	symbols := make([]string, len(quotes))
	for i, q := range quotes {
		symbols[i] = q.Symbol
	}
	assert.Equal(t, []string{"BTC", "CBO", "ETH", "SOL"}, symbols)
}
