package market

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// minCandles is the warmup the slowest indicator (EMA50) needs.
const minCandles = 50

// IndicatorSet holds the indicator values for one candle.
type IndicatorSet struct {
	// EMA20 20-period Exponential Moving Average.
	EMA20 decimal.Decimal
	// EMA50 50-period Exponential Moving Average.
	EMA50 decimal.Decimal
	// MACD MACD line value.
	MACD decimal.Decimal
	// RSI14 14-period Relative Strength Index, range 0-100.
	RSI14 decimal.Decimal
}

// ComputeIndicators derives EMA20, EMA50, MACD and RSI14 from candle
// closes. The result covers the tail of the input where every indicator
// has warmed up.
func ComputeIndicators(candles []domain.MarketCandle) ([]IndicatorSet, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("not enough candles: need at least %d, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	ema20 := computeEMA(closes, 20)
	ema50 := computeEMA(closes, 50)
	macd := computeMACD(closes)
	rsi14 := computeRSI(closes, 14)

	minLen := len(ema20)
	for _, series := range [][]float64{ema50, macd, rsi14} {
		if len(series) < minLen {
			minLen = len(series)
		}
	}

	// series have different warmup lengths; align them on the tail
	result := make([]IndicatorSet, minLen)
	for i := 0; i < minLen; i++ {
		result[i] = IndicatorSet{
			EMA20: decimal.NewFromFloat(ema20[len(ema20)-minLen+i]),
			EMA50: decimal.NewFromFloat(ema50[len(ema50)-minLen+i]),
			MACD:  decimal.NewFromFloat(macd[len(macd)-minLen+i]),
			RSI14: decimal.NewFromFloat(rsi14[len(rsi14)-minLen+i]),
		}
	}

	return result, nil
}

func computeEMA(closes []float64, period int) []float64 {
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))
}

func computeMACD(closes []float64) []float64 {
	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))

	// the signal channel must be drained or Compute blocks
	go func() {
		for range signalChan {
		}
	}()

	return helper.ChanToSlice(macdChan)
}

func computeRSI(closes []float64, period int) []float64 {
	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
}
