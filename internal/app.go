package internal

import (
	"context"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cbotrade/paperfloor/config"
	"github.com/cbotrade/paperfloor/internal/clients"
	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/events"
	"github.com/cbotrade/paperfloor/internal/services/advisor"
	"github.com/cbotrade/paperfloor/internal/services/chat"
	"github.com/cbotrade/paperfloor/internal/services/ledger"
	"github.com/cbotrade/paperfloor/internal/services/market"
	"github.com/cbotrade/paperfloor/internal/services/pricer"
	"github.com/cbotrade/paperfloor/internal/storage/tradelog"
	"github.com/cbotrade/paperfloor/internal/web"
)

const chartCandleLimit = 200

// App wires the core services together for one run of the program.
// The wallet is seeded fresh on every start; only the trade journal
// survives restarts, as an audit trail.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	pricer     pricer.Pricer
	ledger     *ledger.Ledger
	journal    *tradelog.WALStore
	collector  *market.Collector
	advisor    *advisor.Advisor
	projection *chat.Projection
	session    *chat.Session
	auth       *clients.AuthClient
	server     *web.Server

	walletEvents *events.Broadcaster[events.WalletSnapshot]
	chatEvents   *events.Broadcaster[events.ChatViewUpdate]
}

// NewApp builds the service graph from the configuration.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := &App{
		cfg:          cfg,
		logger:       logger,
		walletEvents: events.NewBroadcaster[events.WalletSnapshot](64),
		chatEvents:   events.NewBroadcaster[events.ChatViewUpdate](64),
	}

	if err := app.buildPricing(); err != nil {
		return nil, err
	}
	if err := app.buildLedger(); err != nil {
		return nil, err
	}
	if err := app.buildChat(); err != nil {
		return nil, err
	}
	if err := app.buildAdvisor(); err != nil {
		return nil, err
	}
	app.buildWeb()

	return app, nil
}

func (a *App) buildPricing() error {
	switch a.cfg.PriceSource {
	case config.PriceSourceStatic:
		a.pricer = pricer.NewDefaultStaticPricer(a.cfg.Pair.Quote)
	case config.PriceSourceBinance:
		// public market data only, no keys needed
		client := binance.NewClient("", "")
		// bare asset symbols; the pricer pairs them with the quote currency
		symbols := []string{a.cfg.Pair.Base}
		for _, s := range []string{"ETH", "SOL"} {
			if s != a.cfg.Pair.Base {
				symbols = append(symbols, s)
			}
		}
		a.pricer = pricer.NewBinancePricer(client, symbols, a.cfg.Pair.Quote)
		a.collector = market.NewCollector(
			market.NewBinanceCandleProvider(client),
			a.cfg.Pair, a.cfg.ChartInterval, chartCandleLimit)
	default:
		return errors.Errorf("unknown price source %q", a.cfg.PriceSource)
	}
	return nil
}

func (a *App) buildLedger() error {
	opts := []ledger.Option{ledger.WithSnapshots(a.walletEvents)}

	if a.cfg.JournalDir != "" {
		journal, err := tradelog.NewWALStore(a.cfg.JournalDir)
		if err != nil {
			return errors.Wrap(err, "open trade journal")
		}
		a.journal = journal
		opts = append(opts, ledger.WithJournal(journal))
	}

	seed := domain.NewWalletState(a.cfg.SeedQuote, a.cfg.SeedBase)
	led, err := ledger.New(a.cfg.Pair, seed, a.pricer, a.logger.Named("ledger"), opts...)
	if err != nil {
		return err
	}
	a.ledger = led
	return nil
}

func (a *App) buildChat() error {
	if !a.cfg.ChatEnabled() {
		a.logger.Info("chat disabled: no store URL configured")
		return nil
	}

	auth, err := clients.NewAuthClient(a.cfg.AuthBaseURL(), a.cfg.AuthToken, a.logger.Named("auth"))
	if err != nil {
		return err
	}
	a.auth = auth

	store, err := clients.NewStoreClient(a.cfg.StoreURL, auth.Token, a.logger.Named("store"))
	if err != nil {
		return err
	}

	a.projection = chat.NewProjection()
	a.projection.OnChange(func() {
		a.chatEvents.Publish(events.ChatViewUpdate{
			Timestamp: time.Now(),
			Size:      a.projection.Len(),
			Status:    a.session.Status().String(),
		})
	})

	session, err := chat.NewSession(store, auth, a.projection,
		clients.PublicChatPath(a.cfg.AppID), a.logger.Named("chat"))
	if err != nil {
		return err
	}
	a.session = session
	return nil
}

func (a *App) buildAdvisor() error {
	if !a.cfg.AdviceEnabled() {
		return nil
	}

	client := clients.NewOpenAICompatibleClient(a.cfg.LLMAPIURL, a.cfg.LLMAPIKey, a.cfg.LLMModel)
	adv, err := advisor.New(client, a.logger.Named("advisor"))
	if err != nil {
		return err
	}
	a.advisor = adv
	return nil
}

func (a *App) buildWeb() {
	server := web.NewServer(a.cfg.WebAddr, a.cfg.Pair, a.logger.Named("web"))
	server.Ledger = a.ledger
	server.Pricer = a.pricer
	server.WalletEvents = a.walletEvents
	if a.session != nil {
		server.Session = a.session
		server.Chat = a.projection
		server.ChatEvents = a.chatEvents
	}
	if a.collector != nil {
		server.Charts = a.collector
	}
	if a.advisor != nil {
		server.Advisor = &adviceFacade{app: a}
	}
	a.server = server
}

// Run starts the web server and, when configured, the chat session. It
// blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.session != nil {
		g.Go(func() error {
			if err := a.auth.SignIn(ctx); err != nil {
				return errors.Wrap(err, "auth sign-in")
			}
			return a.session.Run(ctx)
		})
	}

	g.Go(func() error {
		if len(a.cfg.TLSDomains) > 0 {
			return a.server.StartWithAutoTLS(ctx, a.cfg.TLSDomains, "")
		}
		return a.server.Start(ctx)
	})

	if a.cfg.RefreshInterval > 0 {
		g.Go(func() error { return a.refreshLoop(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// refreshLoop re-prices the wallet on a timer so the stream carries a
// current valuation between trades.
func (a *App) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			quote, err := a.pricer.Quote(ctx, a.cfg.Pair.Base)
			if err != nil {
				a.logger.Debug("price refresh failed", zap.Error(err))
				continue
			}
			wallet := a.ledger.Balance()
			a.walletEvents.Publish(events.WalletSnapshot{
				Timestamp: time.Now(),
				Pair:      a.cfg.Pair.String(),
				Quote:     wallet.FormatQuote(),
				Base:      wallet.FormatBase(),
				Price:     quote.Price.String(),
			})
		}
	}
}

// Close releases the session and the trade journal.
func (a *App) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("trade journal close failed", zap.Error(err))
		}
	}
}

// adviceFacade assembles the market context the advisor needs, so the
// web layer can stay a thin trigger.
type adviceFacade struct {
	app *App
}

func (f *adviceFacade) Advise(ctx context.Context) (string, error) {
	a := f.app

	quote, err := a.pricer.Quote(ctx, a.cfg.Pair.Base)
	if err != nil {
		return "", err
	}

	req := advisor.Request{
		Pair:   a.cfg.Pair,
		Quote:  quote,
		Wallet: a.ledger.Balance(),
	}

	if a.collector != nil {
		if _, sets, err := a.collector.Collect(ctx); err == nil {
			req.Indicators = sets
		} else {
			a.logger.Debug("indicators unavailable for advice", zap.Error(err))
		}
	}

	return a.advisor.Advise(ctx, req)
}
