// Package pricer supplies current price snapshots for tradable symbols.
package pricer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// ErrPriceUnavailable is returned when a symbol cannot be priced.
// Callers must treat it as "cannot price the order", never as zero.
var ErrPriceUnavailable = errors.New("price unavailable for symbol")

// Pricer defines an interface for getting price snapshots.
type Pricer interface {
	// Quote returns the current snapshot for a single symbol.
	Quote(ctx context.Context, symbol string) (domain.PriceQuote, error)
	// Quotes returns snapshots for every known symbol.
	Quotes(ctx context.Context) ([]domain.PriceQuote, error)
}
