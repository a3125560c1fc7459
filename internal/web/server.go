// Package web serves the app UI and its JSON/SSE endpoints. It observes
// the core services through broadcasters and thin interfaces; all trading
// and chat rules live in the services themselves.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/events"
	"github.com/cbotrade/paperfloor/internal/services/chat"
	"github.com/cbotrade/paperfloor/internal/services/ledger"
	"github.com/cbotrade/paperfloor/internal/services/market"
	"github.com/cbotrade/paperfloor/internal/services/pricer"
)

const sseHeartbeat = 30 * time.Second

type tradeLedger interface {
	Balance() domain.WalletState
	Execute(ctx context.Context, side domain.Side, symbol string, rawAmount string) (domain.WalletState, error)
}

type chatSession interface {
	Send(ctx context.Context, text string) error
	Status() chat.Status
}

type chatView interface {
	View() []domain.ChatMessage
}

type chartSource interface {
	Collect(ctx context.Context) ([]domain.MarketCandle, []market.IndicatorSet, error)
}

type adviceSource interface {
	Advise(ctx context.Context) (string, error)
}

// Server exposes HTTP endpoints serving the HTML UI, JSON APIs and SSE
// streams. Optional collaborators may be nil; their endpoints answer 503.
type Server struct {
	Addr         string
	Pair         domain.Pair
	Ledger       tradeLedger
	Pricer       pricer.Pricer
	Session      chatSession
	Chat         chatView
	Charts       chartSource
	Advisor      adviceSource
	WalletEvents *events.Broadcaster[events.WalletSnapshot]
	ChatEvents   *events.Broadcaster[events.ChatViewUpdate]
	Logger       *zap.Logger
}

// NewServer creates a web server over the given collaborators.
func NewServer(addr string, pair domain.Pair, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Pair: pair, Logger: logger}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/prices", s.handlePrices)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/trade", s.handleTrade)
	mux.HandleFunc("/advice", s.handleAdvice)
	mux.HandleFunc("/wallet/stream", s.handleWalletStream)
	mux.HandleFunc("/chat/stream", s.handleChatStream)
	mux.HandleFunc("/chat/send", s.handleChatSend)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates
// via ACME, plus an HTTP server on port 80 for the HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("acme server failed", zap.Error(err))
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.Pricer == nil {
		http.Error(w, "price source not available", http.StatusServiceUnavailable)
		return
	}

	quotes, err := s.Pricer.Quotes(r.Context())
	if err != nil {
		s.Logger.Warn("quotes fetch failed", zap.Error(err))
		http.Error(w, "failed to load quotes", http.StatusBadGateway)
		return
	}

	type quoteView struct {
		Symbol        string `json:"symbol"`
		Price         string `json:"price"`
		ChangePercent string `json:"changePercent"`
	}
	out := make([]quoteView, len(quotes))
	for i, q := range quotes {
		out[i] = quoteView{
			Symbol:        q.Symbol,
			Price:         q.Price.String(),
			ChangePercent: q.ChangePercent.String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type candleView struct {
	Time   int64  `json:"t"`
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Close  string `json:"c"`
	Volume string `json:"v"`
}

type indicatorView struct {
	EMA20 string `json:"ema20"`
	EMA50 string `json:"ema50"`
	MACD  string `json:"macd"`
	RSI14 string `json:"rsi14"`
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if s.Charts == nil {
		http.Error(w, "chart data not available for this price source", http.StatusServiceUnavailable)
		return
	}

	candles, sets, err := s.Charts.Collect(r.Context())
	if err != nil {
		s.Logger.Warn("chart collection failed", zap.Error(err))
		http.Error(w, "failed to load chart data", http.StatusBadGateway)
		return
	}

	resp := struct {
		Pair       string          `json:"pair"`
		Candles    []candleView    `json:"candles"`
		Indicators []indicatorView `json:"indicators"`
	}{Pair: s.Pair.String()}

	for _, c := range candles {
		resp.Candles = append(resp.Candles, candleView{
			Time:   c.OpenTime.UnixMilli(),
			Open:   c.Open.String(),
			High:   c.High.String(),
			Low:    c.Low.String(),
			Close:  c.Close.String(),
			Volume: c.Volume.String(),
		})
	}
	for _, set := range sets {
		resp.Indicators = append(resp.Indicators, indicatorView{
			EMA20: set.EMA20.StringFixed(2),
			EMA50: set.EMA50.StringFixed(2),
			MACD:  set.MACD.StringFixed(4),
			RSI14: set.RSI14.StringFixed(1),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type walletView struct {
	Pair  string `json:"pair"`
	Quote string `json:"quote"`
	Base  string `json:"base"`
}

func (s *Server) walletView(state domain.WalletState) walletView {
	return walletView{
		Pair:  s.Pair.String(),
		Quote: state.FormatQuote(),
		Base:  state.FormatBase(),
	}
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Ledger == nil {
		http.Error(w, "ledger not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Side   string `json:"side"`
		Symbol string `json:"symbol"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	side, ok := domain.ParseSide(req.Side)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown side %q", req.Side), http.StatusBadRequest)
		return
	}

	state, err := s.Ledger.Execute(r.Context(), side, req.Symbol, req.Amount)
	if err != nil {
		s.writeTradeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.walletView(state))
}

// writeTradeError maps ledger sentinels to response codes; the error text
// itself is already user-facing.
func (s *Server) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientHoldings):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, pricer.ErrPriceUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.Logger.Error("trade execution failed", zap.Error(err))
		http.Error(w, "trade failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Advisor == nil {
		http.Error(w, "advice backend not configured", http.StatusServiceUnavailable)
		return
	}

	reply, err := s.Advisor.Advise(r.Context())
	if err != nil {
		s.Logger.Warn("advice request failed", zap.Error(err))
		http.Error(w, "advice request failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": reply})
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Session == nil {
		http.Error(w, "chat not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := s.Session.Send(r.Context(), req.Text)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, chat.ErrNotLive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrMessageTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, chat.ErrSendFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		s.Logger.Error("chat send failed", zap.Error(err))
		http.Error(w, "send failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleWalletStream(w http.ResponseWriter, r *http.Request) {
	if s.Ledger == nil || s.WalletEvents == nil {
		http.Error(w, "wallet stream not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)

	sub := s.WalletEvents.Subscribe()
	defer s.WalletEvents.Unsubscribe(sub)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	// current state first so a fresh page renders immediately
	if err := writeSSE(w, "wallet", s.walletView(s.Ledger.Balance())); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snap := <-sub:
			if err := writeSSE(w, "wallet", snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type chatMessageView struct {
	ID     string    `json:"id,omitempty"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
	Status string    `json:"status"`
}

func (s *Server) chatPayload() any {
	msgs := s.Chat.View()
	out := make([]chatMessageView, len(msgs))
	for i, m := range msgs {
		out[i] = chatMessageView{
			ID:     m.ID,
			Author: m.AuthorID,
			Text:   m.Text,
			SentAt: m.SentAt,
			Status: m.Status.String(),
		}
	}
	status := "unavailable"
	if s.Session != nil {
		status = s.Session.Status().String()
	}
	return struct {
		Status   string            `json:"status"`
		Messages []chatMessageView `json:"messages"`
	}{Status: status, Messages: out}
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.Chat == nil || s.ChatEvents == nil {
		http.Error(w, "chat not configured", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)

	sub := s.ChatEvents.Subscribe()
	defer s.ChatEvents.Unsubscribe(sub)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	if err := writeSSE(w, "chat", s.chatPayload()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-sub:
			// the update event only signals; the payload is the full view
			if err := writeSSE(w, "chat", s.chatPayload()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
