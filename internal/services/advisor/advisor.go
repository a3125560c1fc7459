// Package advisor produces informational market commentary for the user.
// It formats the current quote, wallet state and technical indicators into
// an analyst prompt and forwards it to an LLM backend. The reply is shown
// as-is and never feeds back into trade execution.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/services/market"
)

// SystemPrompt defines the analyst persona for the advice backend.
const SystemPrompt = `You are a market analyst assisting a user of a paper-trading app. The user trades with simulated funds only.

Given the current quote, the user's simulated wallet and recent technical indicators, write a short assessment of the market situation for this pair. Mention notable momentum or trend signals if the indicators show any.

Keep the reply under 150 words, plain text, no markdown. Never give financial advice or tell the user to buy or sell; describe the data instead.`

type adviceClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Request carries the market context the advice is built from.
type Request struct {
	Pair       domain.Pair
	Quote      domain.PriceQuote
	Wallet     domain.WalletState
	Indicators []market.IndicatorSet
}

// Advisor builds analyst prompts and forwards them to the advice backend.
// It keeps no state between calls.
type Advisor struct {
	client adviceClient
	logger *zap.Logger
}

// New creates an advisor over the given advice backend.
func New(client adviceClient, logger *zap.Logger) (*Advisor, error) {
	if client == nil {
		return nil, errors.New("advice client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{client: client, logger: logger}, nil
}

// Advise returns commentary for the given market context.
func (a *Advisor) Advise(ctx context.Context, req Request) (string, error) {
	if req.Pair.Base == "" || req.Pair.Quote == "" {
		return "", errors.New("pair is required for advice")
	}

	userPrompt := buildUserPrompt(req)
	a.logger.Debug("requesting advice", zap.String("pair", req.Pair.String()))

	reply, err := a.client.Complete(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return "", errors.Wrap(err, "advice request failed")
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("advice backend returned an empty reply")
	}
	return reply, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pair: %s\n", req.Pair.String())
	fmt.Fprintf(&b, "Price: %s %s (24h change %s%%)\n",
		req.Quote.Price.String(), req.Pair.Quote, req.Quote.ChangePercent.String())
	fmt.Fprintf(&b, "Wallet: %s %s, %s %s\n",
		req.Wallet.FormatQuote(), req.Pair.Quote,
		req.Wallet.FormatBase(), req.Pair.Base)

	if len(req.Indicators) > 0 {
		last := req.Indicators[len(req.Indicators)-1]
		fmt.Fprintf(&b, "Indicators (latest): EMA20=%s EMA50=%s MACD=%s RSI14=%s\n",
			last.EMA20.StringFixed(2), last.EMA50.StringFixed(2),
			last.MACD.StringFixed(4), last.RSI14.StringFixed(1))
	} else {
		b.WriteString("Indicators: unavailable for this price source\n")
	}

	return b.String()
}
