package domain

import "github.com/shopspring/decimal"

// PriceQuote is a point-in-time price snapshot for a single symbol.
// Immutable once fetched within a tick.
type PriceQuote struct {
	// Symbol asset symbol, e.g. BTC.
	Symbol string
	// Price current price in quote currency, strictly positive.
	Price decimal.Decimal
	// ChangePercent signed 24h change.
	ChangePercent decimal.Decimal
}
