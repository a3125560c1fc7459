package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Display precision: quote currency to 2 places, base asset to 4 places.
// Arithmetic is never rounded to these precisions, only formatting is.
const (
	QuoteDisplayPlaces = 2
	BaseDisplayPlaces  = 4
)

// WalletState is the two-balance ledger state. Both balances are always
// non-negative; the state is mutated only through ledger.Execute.
type WalletState struct {
	// Quote balance in quote currency (e.g. USDT).
	Quote decimal.Decimal
	// Base balance in base asset (e.g. BTC).
	Base decimal.Decimal
}

// NewWalletState seeds a wallet. Negative seeds are clamped to zero.
func NewWalletState(quote, base decimal.Decimal) WalletState {
	if quote.IsNegative() {
		quote = decimal.Zero
	}
	if base.IsNegative() {
		base = decimal.Zero
	}
	return WalletState{Quote: quote, Base: base}
}

// Equal reports whether both balances match exactly.
func (w WalletState) Equal(other WalletState) bool {
	return w.Quote.Equal(other.Quote) && w.Base.Equal(other.Base)
}

// FormatQuote renders the quote balance with display precision.
func (w WalletState) FormatQuote() string {
	return w.Quote.StringFixed(QuoteDisplayPlaces)
}

// FormatBase renders the base balance with display precision.
func (w WalletState) FormatBase() string {
	return w.Base.StringFixed(BaseDisplayPlaces)
}

// String returns a human-readable representation.
func (w WalletState) String() string {
	return fmt.Sprintf("quote=%s base=%s", w.FormatQuote(), w.FormatBase())
}
