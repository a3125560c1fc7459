package domain

import (
	"fmt"
	"time"
)

// TradeRecord is a journal entry for an executed simulated order.
// Uses string fields to avoid float precision issues when consumed
// by web/UI layers.
type TradeRecord struct {
	Timestamp time.Time `json:"ts"`
	Pair      string    `json:"pair"`
	Side      string    `json:"side"`
	Amount    string    `json:"amount"`
	Price     string    `json:"price"`
	// Notional is cost for buys and proceeds for sells, in quote currency.
	Notional string `json:"notional"`
	// QuoteAfter and BaseAfter capture the wallet right after the trade.
	QuoteAfter string `json:"quote_after"`
	BaseAfter  string `json:"base_after"`
	OrderID    string `json:"order_id,omitempty"`
}

// String returns a human-readable string representation.
func (t *TradeRecord) String() string {
	return fmt.Sprintf("%s %s amount: %s price: %s", t.Pair, t.Side, t.Amount, t.Price)
}

// TradeLogRecord bundles a journal entry with its WAL index.
type TradeLogRecord struct {
	Index  uint64
	Record TradeRecord
}
