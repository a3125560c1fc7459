package chat

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cbotrade/paperfloor/internal/domain"
	"github.com/cbotrade/paperfloor/pkg/retrier"
)

var (
	// ErrNotLive send attempted while no subscription is active.
	ErrNotLive = errors.New("chat session is not live")
	// ErrSendFailed the remote append did not complete. Only the one
	// message is marked failed; the caller may retry it.
	ErrSendFailed = errors.New("send failed")
)

// Status is the lifecycle state of the session.
type Status int

const (
	// StatusInactive waiting for the auth readiness signal.
	StatusInactive Status = iota
	// StatusSubscribing subscription opened, first snapshot not yet received.
	StatusSubscribing
	// StatusLive snapshots flowing.
	StatusLive
	// StatusDisconnected the live feed dropped; sends are suspended until
	// readiness is restored.
	StatusDisconnected
	// StatusClosed terminal.
	StatusClosed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusSubscribing:
		return "subscribing"
	case StatusLive:
		return "live"
	case StatusDisconnected:
		return "disconnected"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is an ordered batch of committed log entries delivered by the
// subscription. Revision increases monotonically in remote log order.
type Snapshot struct {
	Revision uint64
	Messages []domain.ChatMessage
}

// LogStore is the remote append-only log the session talks to.
type LogStore interface {
	// Append commits the message and returns the id assigned by the log.
	Append(ctx context.Context, collectionPath string, msg domain.ChatMessage) (string, error)
	// Subscribe opens an ordered snapshot stream for the collection. The
	// channel is closed when the feed drops or ctx is cancelled; the
	// implementation must release the underlying resource in both cases.
	Subscribe(ctx context.Context, collectionPath string) (<-chan Snapshot, error)
}

// AuthState is the readiness signal consumed from the external auth session.
type AuthState struct {
	Identity string
	Ready    bool
}

// AuthWatcher exposes the authenticated identity and its change notifications.
type AuthWatcher interface {
	Identity() (string, bool)
	Watch() <-chan AuthState
}

// Session binds the lifecycle of the remote subscription to the auth
// readiness signal and feeds every delta into the projection. Only one
// subscription is open at a time per identity.
type Session struct {
	store      LogStore
	auth       AuthWatcher
	projection *Projection
	path       string
	logger     *zap.Logger
	dialer     *retrier.Retrier

	mu       sync.Mutex
	status   Status
	identity string
	lastRev  uint64
	closed   chan struct{}
	closeOne sync.Once
}

// NewSession creates a session over the given store and collection path.
// The connection object is explicit; lifecycle is owned by the caller.
func NewSession(store LogStore, auth AuthWatcher, projection *Projection, collectionPath string, logger *zap.Logger) (*Session, error) {
	if store == nil {
		return nil, errors.New("log store is required for session")
	}
	if auth == nil {
		return nil, errors.New("auth watcher is required for session")
	}
	if projection == nil {
		return nil, errors.New("projection is required for session")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:      store,
		auth:       auth,
		projection: projection,
		path:       collectionPath,
		logger:     logger,
		dialer:     retrier.New(retrier.WithMaxRetries(3)),
		status:     StatusInactive,
		closed:     make(chan struct{}),
	}, nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run drives the session until ctx is cancelled or Close is called. It
// activates only once the auth session reports an authenticated identity,
// then applies subscription snapshots in remote log order.
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	watch := s.auth.Watch()
	for {
		identity, ready := s.auth.Identity()
		if !ready {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.closed:
				return nil
			case state := <-watch:
				if !state.Ready {
					continue
				}
				identity = state.Identity
			}
		}

		s.setIdentity(identity)
		if err := s.serveSubscription(ctx, watch); err != nil {
			return err
		}
		if s.Status() == StatusClosed {
			return nil
		}
		// feed dropped: stay disconnected until readiness fires again
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case state := <-watch:
			if !state.Ready {
				continue
			}
			s.setIdentity(state.Identity)
		}
	}
}

// serveSubscription opens one subscription and pumps its snapshots until
// the feed drops or the session ends. The subscription resource is
// released on every exit path.
func (s *Session) serveSubscription(ctx context.Context, watch <-chan AuthState) error {
	if !s.transition(StatusSubscribing) {
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// bounded retry on the initial dial only; a dropped feed is never
	// redialled automatically
	snapshots, err := retrier.DoWithData(s.dialer, subCtx, func(ctx context.Context) (<-chan Snapshot, error) {
		return s.store.Subscribe(ctx, s.path)
	})
	if err != nil {
		s.logger.Warn("chat subscription failed", zap.Error(err))
		s.transition(StatusDisconnected)
		return nil
	}
	s.logger.Info("chat subscription opened", zap.String("path", s.path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case state := <-watch:
			if !state.Ready {
				// readiness lost: tear the subscription down
				s.logger.Info("auth readiness lost, closing chat subscription")
				s.transition(StatusDisconnected)
				return nil
			}
			// a ready signal while already live is a no-op
		case snap, ok := <-snapshots:
			if !ok {
				s.logger.Warn("chat feed dropped")
				s.transition(StatusDisconnected)
				return nil
			}
			s.apply(snap)
		}
	}
}

// apply merges one snapshot, dropping batches older than one already seen.
func (s *Session) apply(snap Snapshot) {
	s.mu.Lock()
	if snap.Revision != 0 && snap.Revision <= s.lastRev {
		s.mu.Unlock()
		s.logger.Debug("stale chat snapshot skipped",
			zap.Uint64("revision", snap.Revision),
			zap.Uint64("last", s.lastRev))
		return
	}
	if snap.Revision != 0 {
		s.lastRev = snap.Revision
	}
	first := s.status == StatusSubscribing
	if first {
		s.status = StatusLive
	}
	s.mu.Unlock()

	s.projection.ApplySnapshot(snap.Messages)
	if first {
		s.logger.Info("chat session live", zap.Int("messages", len(snap.Messages)))
	}
}

// Send appends a message to the remote log. The message appears in the
// view immediately as pending; on append failure only that message is
// marked failed. Sends are rejected while no subscription is active.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	status := s.status
	identity := s.identity
	s.mu.Unlock()

	if status != StatusSubscribing && status != StatusLive {
		return errors.Wrapf(ErrNotLive, "status %s", status)
	}

	msg, err := s.projection.BeginSend(identity, text)
	if err != nil {
		return err
	}

	if _, err := s.store.Append(ctx, s.path, msg); err != nil {
		s.projection.MarkFailed(msg.ClientToken)
		s.logger.Warn("chat append failed", zap.Error(err))
		return errors.Wrap(ErrSendFailed, err.Error())
	}
	// committed counterpart arrives via the next delta and supersedes
	// the pending entry by client token
	return nil
}

// Close releases the subscription and ends Run. Safe to call more than
// once and on every exit path.
func (s *Session) Close() {
	s.closeOne.Do(func() { close(s.closed) })
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()
	// in-flight sends are never silently dropped
	s.projection.FailAllPending()
	s.logger.Info("chat session closed")
}

func (s *Session) setIdentity(identity string) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// transition moves to next unless the session is already closed.
func (s *Session) transition(next Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return false
	}
	s.status = next
	return true
}
