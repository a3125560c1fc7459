// Package market collects candlestick data for the charts tab and computes
// the technical indicators shown alongside it.
package market

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/cbotrade/paperfloor/internal/domain"
)

const collectTimeout = 30 * time.Second

// CandleProvider fetches historical candlestick data for a trading pair.
type CandleProvider interface {
	// Candles fetches up to limit candles at the given interval
	// (e.g. "1m", "5m", "1h", "4h"), oldest first.
	Candles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
}

// BinanceCandleProvider implements CandleProvider over the Binance klines API.
type BinanceCandleProvider struct {
	client *binance.Client
}

// NewBinanceCandleProvider creates a Binance candle provider.
func NewBinanceCandleProvider(client *binance.Client) *BinanceCandleProvider {
	return &BinanceCandleProvider{client: client}
}

// Candles fetches kline data from Binance.
func (p *BinanceCandleProvider) Candles(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch klines for %s", pair.String())
	}

	result := make([]domain.MarketCandle, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "parse low price at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "parse volume at index %d", i)
		}

		result[i] = domain.MarketCandle{
			OpenTime:  time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.Unix(0, k.CloseTime*int64(time.Millisecond)),
		}
	}

	return result, nil
}

// Collector fetches candles for one pair and derives indicators from them.
type Collector struct {
	provider CandleProvider
	pair     domain.Pair
	interval string
	limit    int
}

// NewCollector creates a collector for the pair at the given interval.
func NewCollector(provider CandleProvider, pair domain.Pair, interval string, limit int) *Collector {
	return &Collector{
		provider: provider,
		pair:     pair,
		interval: interval,
		limit:    limit,
	}
}

// Collect fetches candles and computes the indicator series. Both slices
// are oldest first; the indicator slice covers the tail of the candles
// once every indicator has warmed up.
func (c *Collector) Collect(ctx context.Context) ([]domain.MarketCandle, []IndicatorSet, error) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	candles, err := c.provider.Candles(ctx, c.pair, c.interval, c.limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch candles")
	}
	if len(candles) == 0 {
		return nil, nil, errors.New("no candle data returned")
	}

	sets, err := ComputeIndicators(candles)
	if err != nil {
		return nil, nil, errors.Wrap(err, "compute indicators")
	}

	return candles, sets, nil
}
