package pricer

import (
	"context"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// BinancePricer fetches real market prices from the Binance public API
// without requiring authentication. It is the production variant of the
// price source; the interface contract is the same as the static table.
type BinancePricer struct {
	client *binance.Client
	// symbols served by Quotes, e.g. BTC, ETH.
	symbols []string
	// quote currency the desk trades against, e.g. USDT.
	quote string
}

// NewBinancePricer creates a pricer over the Binance 24h ticker stats.
func NewBinancePricer(client *binance.Client, symbols []string, quote string) *BinancePricer {
	return &BinancePricer{client: client, symbols: symbols, quote: quote}
}

// Quote fetches the current snapshot for a single symbol.
func (p *BinancePricer) Quote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	symbol = strings.ToUpper(symbol)
	stats, err := p.client.NewListPriceChangeStatsService().
		Symbol(symbol + p.quote).
		Do(ctx)
	if err != nil {
		return domain.PriceQuote{}, errors.Wrapf(err, "fetch ticker stats for %s", symbol)
	}
	if len(stats) == 0 {
		return domain.PriceQuote{}, errors.Wrapf(ErrPriceUnavailable, "symbol %s", symbol)
	}

	return statsToQuote(symbol, stats[0])
}

// Quotes fetches snapshots for all configured symbols.
func (p *BinancePricer) Quotes(ctx context.Context) ([]domain.PriceQuote, error) {
	out := make([]domain.PriceQuote, 0, len(p.symbols))
	for _, symbol := range p.symbols {
		q, err := p.Quote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func statsToQuote(symbol string, stats *binance.PriceChangeStats) (domain.PriceQuote, error) {
	price, err := decimal.NewFromString(stats.LastPrice)
	if err != nil {
		return domain.PriceQuote{}, errors.Wrapf(err, "parse last price for %s", symbol)
	}
	if !price.IsPositive() {
		return domain.PriceQuote{}, errors.Wrapf(ErrPriceUnavailable, "non-positive price for %s", symbol)
	}
	change, err := decimal.NewFromString(stats.PriceChangePercent)
	if err != nil {
		return domain.PriceQuote{}, errors.Wrapf(err, "parse change percent for %s", symbol)
	}
	return domain.PriceQuote{Symbol: symbol, Price: price, ChangePercent: change}, nil
}
