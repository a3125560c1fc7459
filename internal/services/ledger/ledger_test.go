package ledger

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/services/pricer"
)

// mockPricer is a simple mock for the Pricer interface.
type mockPricer struct {
	price decimal.Decimal
	calls int
}

func (m *mockPricer) Quote(_ context.Context, symbol string) (domain.PriceQuote, error) {
	m.calls++
	if symbol != "BTC" {
		return domain.PriceQuote{}, errors.Wrapf(pricer.ErrPriceUnavailable, "symbol %s", symbol)
	}
	return domain.PriceQuote{Symbol: symbol, Price: m.price}, nil
}

func (m *mockPricer) Quotes(_ context.Context) ([]domain.PriceQuote, error) {
	return []domain.PriceQuote{{Symbol: "BTC", Price: m.price}}, nil
}

func newTestLedger(t *testing.T, quoteSeed, baseSeed string, price string) (*Ledger, *mockPricer) {
	t.Helper()
	p := &mockPricer{price: decimal.RequireFromString(price)}
	seed := domain.NewWalletState(
		decimal.RequireFromString(quoteSeed),
		decimal.RequireFromString(baseSeed),
	)
	l, err := New(domain.Pair{Base: "BTC", Quote: "USDT"}, seed, p, zap.NewNop())
	require.NoError(t, err)
	return l, p
}

func TestExecute_BuySuccess(t *testing.T) {
	l, _ := newTestLedger(t, "10000", "0.5", "65200.50")

	state, err := l.Execute(context.Background(), domain.SideBuy, "BTC", "0.1")
	require.NoError(t, err)

	// 10000 - 65200.50*0.1 = 3479.95, exactly
	assert.True(t, state.Quote.Equal(decimal.RequireFromString("3479.95")), "quote=%s", state.Quote)
	assert.True(t, state.Base.Equal(decimal.RequireFromString("0.6")), "base=%s", state.Base)
	assert.True(t, l.Balance().Equal(state))
}

func TestExecute_SellSuccess(t *testing.T) {
	l, _ := newTestLedger(t, "100", "0.5", "60000")

	state, err := l.Execute(context.Background(), domain.SideSell, "BTC", "0.2")
	require.NoError(t, err)

	assert.True(t, state.Quote.Equal(decimal.RequireFromString("12100")))
	assert.True(t, state.Base.Equal(decimal.RequireFromString("0.3")))
}

func TestExecute_InsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t, "100", "0", "65200.50")
	before := l.Balance()

	state, err := l.Execute(context.Background(), domain.SideBuy, "BTC", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	// idempotent rejection: wallet identical before and after
	assert.True(t, state.Equal(before))
	assert.True(t, l.Balance().Equal(before))
}

func TestExecute_InsufficientHoldings(t *testing.T) {
	l, _ := newTestLedger(t, "10000", "0.1", "65200.50")
	before := l.Balance()

	_, err := l.Execute(context.Background(), domain.SideSell, "BTC", "0.5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHoldings))
	assert.True(t, l.Balance().Equal(before))
}

func TestExecute_InvalidAmount(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"negative", "-5"},
		{"zero", "0"},
		{"non numeric", "abc"},
		{"nan", "NaN"},
		{"empty", ""},
		{"whitespace", "   "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, p := newTestLedger(t, "10000", "0.5", "65200.50")
			before := l.Balance()

			_, err := l.Execute(context.Background(), domain.SideSell, "BTC", tc.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAmount))

			// rejected before any price lookup or balance check
			assert.Zero(t, p.calls)
			assert.True(t, l.Balance().Equal(before))
		})
	}
}

func TestExecute_PriceUnavailable(t *testing.T) {
	l, _ := newTestLedger(t, "10000", "0.5", "65200.50")
	before := l.Balance()

	_, err := l.Execute(context.Background(), domain.SideBuy, "DOGE", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricer.ErrPriceUnavailable))
	assert.True(t, l.Balance().Equal(before))
}

func TestExecute_NoRoundingDrift(t *testing.T) {
	// 0.0003 BTC at 65200.50 costs 19.56015: the check and the balance
	// move must use the unrounded value.
	l, _ := newTestLedger(t, "19.56015", "0", "65200.50")

	state, err := l.Execute(context.Background(), domain.SideBuy, "BTC", "0.0003")
	require.NoError(t, err)
	assert.True(t, state.Quote.IsZero(), "quote=%s", state.Quote)
	assert.True(t, state.Base.Equal(decimal.RequireFromString("0.0003")))

	// one satoshi short and the same order is rejected
	l2, _ := newTestLedger(t, "19.56014", "0", "65200.50")
	_, err = l2.Execute(context.Background(), domain.SideBuy, "BTC", "0.0003")
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
}

func TestExecute_FullTradeCycle(t *testing.T) {
	l, p := newTestLedger(t, "10000", "0", "50000")
	ctx := context.Background()

	_, err := l.Execute(ctx, domain.SideBuy, "BTC", "0.1")
	require.NoError(t, err)

	p.price = decimal.RequireFromString("60000")
	state, err := l.Execute(ctx, domain.SideSell, "BTC", "0.05")
	require.NoError(t, err)

	// 10000 - 5000 + 3000 = 8000
	assert.True(t, state.Quote.Equal(decimal.RequireFromString("8000")))
	assert.True(t, state.Base.Equal(decimal.RequireFromString("0.05")))
}
