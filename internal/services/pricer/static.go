package pricer

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// StaticPricer serves prices from a fixed in-memory table. Deterministic
// for a given snapshot and free of side effects, which makes it the
// default source for the simulator.
type StaticPricer struct {
	table map[string]domain.PriceQuote
	list  []domain.PriceQuote
}

// NewStaticPricer creates a pricer over the given quotes. Symbols are
// unique per table; a later duplicate replaces the earlier entry.
func NewStaticPricer(quotes []domain.PriceQuote) *StaticPricer {
	p := &StaticPricer{table: make(map[string]domain.PriceQuote, len(quotes))}
	for _, q := range quotes {
		key := strings.ToUpper(q.Symbol)
		if _, seen := p.table[key]; seen {
			for i := range p.list {
				if strings.ToUpper(p.list[i].Symbol) == key {
					p.list[i] = q
					break
				}
			}
		} else {
			p.list = append(p.list, q)
		}
		p.table[key] = q
	}
	sort.Slice(p.list, func(i, j int) bool { return p.list[i].Symbol < p.list[j].Symbol })
	return p
}

// NewDefaultStaticPricer creates a static pricer with the built-in
// market overview table. Each asset also resolves under its pair symbol
// against the given quote currency, so "BTC" and "BTCUSDT" hit the same
// entry.
func NewDefaultStaticPricer(quote string) *StaticPricer {
	p := NewStaticPricer([]domain.PriceQuote{
		{Symbol: "BTC", Price: decimal.RequireFromString("65200.50"), ChangePercent: decimal.RequireFromString("1.5")},
		{Symbol: "ETH", Price: decimal.RequireFromString("3450.75"), ChangePercent: decimal.RequireFromString("-0.8")},
		{Symbol: "CBO", Price: decimal.RequireFromString("0.12"), ChangePercent: decimal.RequireFromString("5.1")},
		{Symbol: "SOL", Price: decimal.RequireFromString("155.30"), ChangePercent: decimal.RequireFromString("2.1")},
	})

	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote != "" {
		for _, q := range p.list {
			p.table[strings.ToUpper(q.Symbol)+quote] = q
		}
	}
	return p
}

// Quote returns the snapshot for the symbol or ErrPriceUnavailable.
// A missing symbol is always an error, never a zero price.
func (p *StaticPricer) Quote(_ context.Context, symbol string) (domain.PriceQuote, error) {
	q, ok := p.table[strings.ToUpper(symbol)]
	if !ok {
		return domain.PriceQuote{}, errors.Wrapf(ErrPriceUnavailable, "symbol %s", symbol)
	}
	return q, nil
}

// Quotes returns all snapshots sorted by symbol.
func (p *StaticPricer) Quotes(_ context.Context) ([]domain.PriceQuote, error) {
	out := make([]domain.PriceQuote, len(p.list))
	copy(out, p.list)
	return out, nil
}
