// Package chat implements the client-side projection of the remotely
// ordered public chat log and the session that keeps it live.
package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// matchWindow bounds the heuristic pending/committed match by time
// proximity. Used only when the store did not echo the client token.
const matchWindow = 2 * time.Minute

// Projection holds the locally visible ordered sequence of chat
// messages: a read-through cache of the committed log plus the transient
// set of pending local sends. It is the single source of truth rendered
// by the UI.
type Projection struct {
	mu        sync.RWMutex
	committed []domain.ChatMessage
	byID      map[string]struct{}
	pending   []domain.ChatMessage
	onChange  func()
	now       func() time.Time
}

// NewProjection creates an empty projection.
func NewProjection() *Projection {
	return &Projection{
		byID: make(map[string]struct{}),
		now:  time.Now,
	}
}

// OnChange registers a notification hook invoked after every mutation of
// the view. The presentation layer observes this instead of polling.
func (p *Projection) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// BeginSend validates the text and inserts a pending message stamped
// with the send time and a fresh idempotency token. The returned message
// is the handle used to resolve the entry to committed or failed.
func (p *Projection) BeginSend(authorID, text string) (domain.ChatMessage, error) {
	text, err := domain.ValidateMessageText(text)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	p.mu.Lock()
	msg := domain.ChatMessage{
		ClientToken: uuid.NewString(),
		AuthorID:    authorID,
		Text:        text,
		SentAt:      p.now(),
		Status:      domain.MessagePending,
	}
	p.pending = append(p.pending, msg)
	p.mu.Unlock()

	p.notify()
	return msg, nil
}

// ApplySnapshot merges an ordered batch of committed messages into the
// view. The merge is idempotent: committed entries are keyed by their
// remote id and re-delivery is a no-op. Pending entries matched by
// client token (or, as a fallback, by author, text and time proximity)
// are superseded by their committed counterpart, so a send transitions
// to committed exactly once and is never rendered twice.
func (p *Projection) ApplySnapshot(batch []domain.ChatMessage) {
	p.mu.Lock()
	changed := false
	for _, msg := range batch {
		if msg.ID == "" {
			// the remote log owns committed ids; anything without one
			// is not a committed entry
			continue
		}
		if _, ok := p.byID[msg.ID]; ok {
			continue
		}
		msg.Status = domain.MessageCommitted
		p.byID[msg.ID] = struct{}{}
		p.committed = append(p.committed, msg)
		p.dropMatchingPending(msg)
		changed = true
	}
	if changed {
		// re-sort once the real committed entries are in; transport-level
		// arrival order is not trusted
		sort.SliceStable(p.committed, func(i, j int) bool {
			return domain.MessageLess(p.committed[i], p.committed[j])
		})
	}
	p.mu.Unlock()

	if changed {
		p.notify()
	}
}

// MarkFailed transitions the pending message with the given token to
// failed. Other pending and committed messages are unaffected. The entry
// stays visible so the user can retry.
func (p *Projection) MarkFailed(clientToken string) {
	p.mu.Lock()
	changed := false
	for i := range p.pending {
		if p.pending[i].ClientToken == clientToken && p.pending[i].Status == domain.MessagePending {
			p.pending[i].Status = domain.MessageFailed
			changed = true
			break
		}
	}
	p.mu.Unlock()

	if changed {
		p.notify()
	}
}

// FailAllPending resolves every still-pending send to failed. Called on
// session close so in-flight sends are never silently dropped.
func (p *Projection) FailAllPending() {
	p.mu.Lock()
	changed := false
	for i := range p.pending {
		if p.pending[i].Status == domain.MessagePending {
			p.pending[i].Status = domain.MessageFailed
			changed = true
		}
	}
	p.mu.Unlock()

	if changed {
		p.notify()
	}
}

// View returns the ordered sequence of committed and pending messages,
// sorted by (sentAt, id or insertion order). The result is a copy, always
// safe to render without additional deduplication.
func (p *Projection) View() []domain.ChatMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.ChatMessage, 0, len(p.committed)+len(p.pending))
	out = append(out, p.committed...)
	out = append(out, p.pending...)
	sort.SliceStable(out, func(i, j int) bool {
		return domain.MessageLess(out[i], out[j])
	})
	return out
}

// Len returns the current view length.
func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.committed) + len(p.pending)
}

// dropMatchingPending removes the pending entry superseded by the given
// committed message. Exact match on the echoed client token; best-effort
// content+author+time-proximity fallback for stores that drop it.
// Caller holds p.mu.
func (p *Projection) dropMatchingPending(committed domain.ChatMessage) {
	match := -1
	if committed.ClientToken != "" {
		// echoed token is authoritative: no token match means the entry
		// originated elsewhere and must not eat a local pending
		for i := range p.pending {
			if p.pending[i].ClientToken == committed.ClientToken {
				match = i
				break
			}
		}
	} else {
		for i := range p.pending {
			pending := &p.pending[i]
			if pending.AuthorID != committed.AuthorID || pending.Text != committed.Text {
				continue
			}
			delta := committed.SentAt.Sub(pending.SentAt)
			if delta < 0 {
				delta = -delta
			}
			if delta <= matchWindow {
				match = i
				break
			}
		}
	}
	if match >= 0 {
		p.pending = append(p.pending[:match], p.pending[match+1:]...)
	}
}

func (p *Projection) notify() {
	p.mu.RLock()
	fn := p.onChange
	p.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
