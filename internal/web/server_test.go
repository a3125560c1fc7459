package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/services/chat"
	"github.com/cbotrade/paperfloor/internal/services/ledger"
	"github.com/cbotrade/paperfloor/internal/services/pricer"
)

type fakeLedger struct {
	state domain.WalletState
	err   error
}

func (f *fakeLedger) Balance() domain.WalletState { return f.state }

func (f *fakeLedger) Execute(_ context.Context, _ domain.Side, _ string, _ string) (domain.WalletState, error) {
	if f.err != nil {
		return domain.WalletState{}, f.err
	}
	return f.state, nil
}

type fakeSession struct {
	err    error
	status chat.Status
}

func (f *fakeSession) Send(_ context.Context, _ string) error { return f.err }
func (f *fakeSession) Status() chat.Status                    { return f.status }

func newTestServer() *Server {
	s := NewServer(":0", domain.Pair{Base: "BTC", Quote: "USDT"}, zap.NewNop())
	s.Ledger = &fakeLedger{state: domain.NewWalletState(
		decimal.RequireFromString("3479.95"),
		decimal.RequireFromString("0.6"),
	)}
	s.Pricer = pricer.NewDefaultStaticPricer("USDT")
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux().ServeHTTP(rec, req)
	return rec
}

func TestHandleTrade_Success(t *testing.T) {
	s := newTestServer()

	rec := doRequest(s, http.MethodPost, "/trade",
		`{"side":"buy","symbol":"BTC","amount":"0.1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp walletView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTC_USDT", resp.Pair)
	assert.Equal(t, "3479.95", resp.Quote)
	assert.Equal(t, "0.6000", resp.Base)
}

func TestHandleTrade_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid amount", ledger.ErrInvalidAmount, http.StatusBadRequest},
		{"insufficient funds", errors.Wrap(ledger.ErrInsufficientFunds, "buy"), http.StatusUnprocessableEntity},
		{"insufficient holdings", ledger.ErrInsufficientHoldings, http.StatusUnprocessableEntity},
		{"price unavailable", pricer.ErrPriceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			s.Ledger = &fakeLedger{err: tc.err}

			rec := doRequest(s, http.MethodPost, "/trade",
				`{"side":"sell","symbol":"BTC","amount":"1"}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestHandleTrade_BadRequests(t *testing.T) {
	s := newTestServer()

	rec := doRequest(s, http.MethodGet, "/trade", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(s, http.MethodPost, "/trade", `{"side":"hold","symbol":"BTC","amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/trade", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatSend(t *testing.T) {
	s := newTestServer()

	// chat not configured
	rec := doRequest(s, http.MethodPost, "/chat/send", `{"text":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.Session = &fakeSession{status: chat.StatusLive}
	rec = doRequest(s, http.MethodPost, "/chat/send", `{"text":"hi"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	s.Session = &fakeSession{err: errors.Wrap(chat.ErrNotLive, "status inactive")}
	rec = doRequest(s, http.MethodPost, "/chat/send", `{"text":"hi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s.Session = &fakeSession{err: domain.ErrEmptyMessage}
	rec = doRequest(s, http.MethodPost, "/chat/send", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.Session = &fakeSession{err: errors.Wrap(chat.ErrSendFailed, "append timeout")}
	rec = doRequest(s, http.MethodPost, "/chat/send", `{"text":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlePrices(t *testing.T) {
	s := newTestServer()

	rec := doRequest(s, http.MethodGet, "/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var quotes []struct {
		Symbol        string `json:"symbol"`
		Price         string `json:"price"`
		ChangePercent string `json:"changePercent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	require.Len(t, quotes, 4)
	assert.Equal(t, "BTC", quotes[0].Symbol)
	assert.Equal(t, "65200.5", quotes[0].Price)
}

func TestOptionalEndpointsUnavailable(t *testing.T) {
	s := newTestServer()

	rec := doRequest(s, http.MethodGet, "/chart", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(s, http.MethodPost, "/advice", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer()

	rec := doRequest(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "PAPERFLOOR")
	// forms lock their submit button while a request is in flight and the
	// trade amount is cleared on every outcome
	assert.Contains(t, body, "submit.disabled = true")
	assert.Contains(t, body, "tradeForm.elements.amount.value = ''")

	rec = doRequest(s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
