package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/internal/services/chat"
)

const (
	storeRequestTimeout = 15 * time.Second

	wsHandshakeTimeout = 10 * time.Second
	wsPingInterval     = 20 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsReadTimeout      = 60 * time.Second
)

// PublicChatPath returns the shared public chat log path for an app.
func PublicChatPath(appID string) string {
	return fmt.Sprintf("/v1/apps/%s/public/chat", appID)
}

// StoreClient talks to the remote log store: appends over HTTP, snapshot
// stream over a WebSocket. Implements chat.LogStore.
type StoreClient struct {
	http   *resty.Client
	wsBase string
	token  func() string
	logger *zap.Logger
}

type appendRequest struct {
	ClientToken string    `json:"clientToken,omitempty"`
	AuthorID    string    `json:"authorId"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sentAt"`
}

type appendResponse struct {
	ID string `json:"id"`
}

type snapshotFrame struct {
	Revision uint64               `json:"revision"`
	Messages []domain.ChatMessage `json:"messages"`
}

// NewStoreClient creates a log store client for the given base URL
// (e.g. https://store.example.com). The token func supplies the current
// bearer token for each request; pass nil for unauthenticated access.
func NewStoreClient(baseURL string, token func() string, logger *zap.Logger) (*StoreClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("store base URL is required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(storeRequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &StoreClient{
		http:   httpClient,
		wsBase: websocketBase(baseURL),
		token:  token,
		logger: logger,
	}, nil
}

func websocketBase(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

func (c *StoreClient) bearer() string {
	if c.token == nil {
		return ""
	}
	return c.token()
}

// Append writes one message to the log at path and returns the id the
// store assigned to it.
func (c *StoreClient) Append(ctx context.Context, path string, msg domain.ChatMessage) (string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetBody(appendRequest{
			ClientToken: msg.ClientToken,
			AuthorID:    msg.AuthorID,
			Text:        msg.Text,
			SentAt:      msg.SentAt,
		}).
		SetResult(&appendResponse{})

	if tok := c.bearer(); tok != "" {
		req.SetAuthToken(tok)
	}

	resp, err := req.Post(path)
	if err != nil {
		return "", errors.Wrap(err, "append to log store")
	}
	if !resp.IsSuccess() {
		return "", errors.Errorf("log store append: status %d: %s", resp.StatusCode(), resp.String())
	}

	result, ok := resp.Result().(*appendResponse)
	if !ok || result.ID == "" {
		return "", errors.New("log store append: response missing id")
	}

	return result.ID, nil
}

// Subscribe opens the snapshot stream for the log at path. The returned
// channel carries full snapshots ordered by revision and is closed when
// the feed ends for any reason. There is no mid-session reconnect; the
// caller decides whether to subscribe again.
func (c *StoreClient) Subscribe(ctx context.Context, path string) (<-chan chat.Snapshot, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}

	header := http.Header{}
	if tok := c.bearer(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	wsURL := c.wsBase + path + "/stream"
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dial log stream %s", wsURL)
	}

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	out := make(chan chat.Snapshot, 16)

	go c.keepAlive(ctx, conn)
	go c.readSnapshots(ctx, conn, out)

	return out, nil
}

func (c *StoreClient) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (c *StoreClient) readSnapshots(ctx context.Context, conn *websocket.Conn, out chan<- chat.Snapshot) {
	defer close(out)
	defer conn.Close()

	for {
		var frame snapshotFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("log stream read failed", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		snap := chat.Snapshot{Revision: frame.Revision, Messages: frame.Messages}
		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}
	}
}
