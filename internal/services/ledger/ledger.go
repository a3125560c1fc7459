// Package ledger implements the simulated spot-trading wallet. The two
// balances are owned exclusively by the Ledger and mutated only through
// Execute, which validates the order and applies both balance moves as a
// single atomic transition.
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/events"
	"github.com/cbotrade/paperfloor/internal/services/pricer"
)

var (
	// ErrInvalidAmount order size is non-numeric, non-finite or not
	// strictly positive. Never silently coerced.
	ErrInvalidAmount = errors.New("invalid order amount")
	// ErrInsufficientFunds quote balance cannot cover the buy cost.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientHoldings base balance cannot cover the sell amount.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// tradeJournal persists executed trades for the audit trail.
type tradeJournal interface {
	Save(record domain.TradeRecord) error
}

// Ledger validates and atomically commits simulated orders against the
// wallet. All checks run on unrounded decimals; display rounding is a
// formatting concern only.
type Ledger struct {
	mu        sync.RWMutex
	pair      domain.Pair
	logger    *zap.Logger
	pricer    pricer.Pricer
	wallet    domain.WalletState
	journal   tradeJournal
	snapshots *events.Broadcaster[events.WalletSnapshot]
}

// Option configures optional ledger collaborators.
type Option func(*Ledger)

// WithJournal attaches a trade journal. Journal failures are logged,
// never propagated: the trade itself already committed.
func WithJournal(j tradeJournal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithSnapshots attaches a broadcaster receiving a wallet snapshot after
// every successful execution.
func WithSnapshots(b *events.Broadcaster[events.WalletSnapshot]) Option {
	return func(l *Ledger) { l.snapshots = b }
}

// New creates a ledger seeded with the given wallet state.
func New(pair domain.Pair, seed domain.WalletState, p pricer.Pricer, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if p == nil {
		return nil, errors.New("pricer is required for ledger")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		pair:   pair,
		logger: logger,
		pricer: p,
		wallet: seed,
	}
	for _, opt := range opts {
		opt(l)
	}
	logger.Info("ledger init",
		zap.String("pair", pair.String()),
		zap.String("quote", seed.FormatQuote()),
		zap.String("base", seed.FormatBase()))
	return l, nil
}

// Balance returns the current wallet state. A concurrent read during
// Execute sees either the pre- or post-state, never a mix.
func (l *Ledger) Balance() domain.WalletState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet
}

// Execute validates and commits a simulated order. rawAmount is the
// user-entered order size; anything that does not parse to a finite,
// strictly positive decimal is rejected with ErrInvalidAmount before any
// balance check. Every rejection leaves the wallet unchanged.
func (l *Ledger) Execute(ctx context.Context, side domain.Side, symbol string, rawAmount string) (domain.WalletState, error) {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return l.Balance(), err
	}

	// priced outside the wallet lock; quotes are immutable within a tick
	quote, err := l.pricer.Quote(ctx, symbol)
	if err != nil {
		return l.Balance(), errors.Wrap(err, "price order")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch side {
	case domain.SideBuy:
		err = l.buy(quote, amount)
	case domain.SideSell:
		err = l.sell(quote, amount)
	default:
		err = errors.Errorf("unknown side: %s", side)
	}
	if err != nil {
		return l.wallet, err
	}

	l.committed(side, quote, amount)
	return l.wallet, nil
}

// buy applies cost = price * amount against the quote balance.
// Caller holds l.mu.
func (l *Ledger) buy(quote domain.PriceQuote, amount decimal.Decimal) error {
	cost := quote.Price.Mul(amount)
	if l.wallet.Quote.LessThan(cost) {
		return errors.Wrapf(ErrInsufficientFunds,
			"have %s need %s", l.wallet.FormatQuote(), cost.StringFixed(domain.QuoteDisplayPlaces))
	}
	l.wallet = domain.WalletState{
		Quote: l.wallet.Quote.Sub(cost),
		Base:  l.wallet.Base.Add(amount),
	}
	return nil
}

// sell applies proceeds = amount * price to the quote balance.
// Caller holds l.mu.
func (l *Ledger) sell(quote domain.PriceQuote, amount decimal.Decimal) error {
	if l.wallet.Base.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientHoldings,
			"have %s need %s", l.wallet.FormatBase(), amount.StringFixed(domain.BaseDisplayPlaces))
	}
	proceeds := amount.Mul(quote.Price)
	l.wallet = domain.WalletState{
		Quote: l.wallet.Quote.Add(proceeds),
		Base:  l.wallet.Base.Sub(amount),
	}
	return nil
}

// committed journals and announces a successful execution.
// Caller holds l.mu.
func (l *Ledger) committed(side domain.Side, quote domain.PriceQuote, amount decimal.Decimal) {
	orderID := uuid.NewString()
	notional := amount.Mul(quote.Price)

	l.logger.Info("simulated order executed",
		zap.String("order_id", orderID),
		zap.String("side", side.String()),
		zap.String("symbol", quote.Symbol),
		zap.String("amount", amount.String()),
		zap.String("price", quote.Price.String()),
		zap.String("notional", notional.StringFixed(domain.QuoteDisplayPlaces)))

	if l.journal != nil {
		record := domain.TradeRecord{
			Timestamp:  time.Now(),
			Pair:       l.pair.String(),
			Side:       side.String(),
			Amount:     amount.String(),
			Price:      quote.Price.String(),
			Notional:   notional.String(),
			QuoteAfter: l.wallet.Quote.String(),
			BaseAfter:  l.wallet.Base.String(),
			OrderID:    orderID,
		}
		if err := l.journal.Save(record); err != nil {
			l.logger.Warn("failed to journal trade", zap.Error(err))
		}
	}

	if l.snapshots != nil {
		l.snapshots.Publish(events.WalletSnapshot{
			Timestamp: time.Now(),
			Pair:      l.pair.String(),
			Quote:     l.wallet.FormatQuote(),
			Base:      l.wallet.FormatBase(),
			Price:     quote.Price.String(),
		})
	}
}

// parseAmount converts raw user input into a strictly positive decimal.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, errors.Wrap(ErrInvalidAmount, "empty input")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidAmount, "not a number: %q", raw)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidAmount, "must be positive, got %s", amount.String())
	}
	return amount, nil
}
