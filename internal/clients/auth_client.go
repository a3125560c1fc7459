package clients

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/services/chat"
	"github.com/cbotrade/paperfloor/pkg/retrier"
)

const (
	authRequestTimeout = 15 * time.Second
	authWatchBuffer    = 16
)

// AuthClient signs in against the auth service and exposes the identity
// readiness signal the chat session binds to. Implements chat.AuthWatcher.
type AuthClient struct {
	http        *resty.Client
	customToken string
	logger      *zap.Logger
	signIn      *retrier.Retrier

	mu       sync.RWMutex
	identity string
	token    string
	ready    bool
	watchers []chan chat.AuthState
}

type signInRequest struct {
	Token string `json:"token,omitempty"`
}

type signInResponse struct {
	UID     string `json:"uid"`
	IDToken string `json:"idToken"`
}

// NewAuthClient creates an auth client for the given base URL. A non-empty
// customToken switches sign-in from anonymous to custom-token mode.
func NewAuthClient(baseURL, customToken string, logger *zap.Logger) (*AuthClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("auth base URL is required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(authRequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &AuthClient{
		http:        httpClient,
		customToken: customToken,
		logger:      logger,
		signIn:      retrier.New(retrier.WithMaxRetries(5)),
	}, nil
}

// SignIn authenticates with bounded retries and flips the session to
// ready on success. Watchers receive the readiness signal.
func (c *AuthClient) SignIn(ctx context.Context) error {
	endpoint := "/v1/auth/anonymous"
	body := signInRequest{}
	if c.customToken != "" {
		endpoint = "/v1/auth/token"
		body.Token = c.customToken
	}

	result, err := retrier.DoWithData(c.signIn, ctx, func(ctx context.Context) (*signInResponse, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&signInResponse{}).
			Post(endpoint)
		if err != nil {
			return nil, errors.Wrap(err, "sign in")
		}
		if !resp.IsSuccess() {
			return nil, errors.Errorf("sign in: status %d: %s", resp.StatusCode(), resp.String())
		}
		out, ok := resp.Result().(*signInResponse)
		if !ok || out.UID == "" {
			return nil, errors.New("sign in: response missing uid")
		}
		return out, nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.identity = result.UID
	c.token = result.IDToken
	c.ready = true
	c.mu.Unlock()

	c.logger.Info("signed in", zap.String("uid", result.UID))
	c.notify(chat.AuthState{Identity: result.UID, Ready: true})
	return nil
}

// SignOut drops the authenticated session. Watchers receive the lost
// readiness signal, which tears down any open subscription.
func (c *AuthClient) SignOut() {
	c.mu.Lock()
	identity := c.identity
	c.identity = ""
	c.token = ""
	c.ready = false
	c.mu.Unlock()

	c.logger.Info("signed out", zap.String("uid", identity))
	c.notify(chat.AuthState{Ready: false})
}

// Identity returns the authenticated identity and whether it is ready.
func (c *AuthClient) Identity() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, c.ready
}

// Token returns the current bearer token, empty when signed out.
func (c *AuthClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Watch returns a channel receiving auth state changes. Slow consumers
// miss updates instead of blocking sign-in.
func (c *AuthClient) Watch() <-chan chat.AuthState {
	ch := make(chan chat.AuthState, authWatchBuffer)
	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()
	return ch
}

func (c *AuthClient) notify(state chat.AuthState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}
