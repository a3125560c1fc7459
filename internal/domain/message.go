package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxMessageLen bounds chat message text after trimming.
const MaxMessageLen = 2000

// ErrEmptyMessage is returned for messages that are empty after trimming.
var ErrEmptyMessage = errors.New("message text is empty")

// ErrMessageTooLong is returned for messages exceeding MaxMessageLen.
var ErrMessageTooLong = errors.New("message text is too long")

// MessageStatus lifecycle state of a chat message in the local projection.
type MessageStatus int

const (
	// MessagePending locally originated, not yet acknowledged by the remote log.
	MessagePending MessageStatus = iota
	// MessageCommitted durably owned by the remote log. Terminal.
	MessageCommitted
	// MessageFailed the remote append did not complete. The entry stays
	// visible so the user can retry.
	MessageFailed
)

// String returns the string representation of the status.
func (s MessageStatus) String() string {
	switch s {
	case MessagePending:
		return "pending"
	case MessageCommitted:
		return "committed"
	case MessageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatMessage is a single entry of the shared public chat log.
type ChatMessage struct {
	// ID opaque identity assigned by the remote log. Empty until committed.
	ID string `json:"id,omitempty"`
	// ClientToken client-generated idempotency token, echoed back by the
	// store in deltas so a pending send matches its committed counterpart
	// exactly.
	ClientToken string `json:"clientToken,omitempty"`
	// AuthorID identity string of the sender.
	AuthorID string `json:"authorId"`
	// Text message body, non-empty after trimming.
	Text string `json:"text"`
	// SentAt timestamp assigned at send time; part of the log order key.
	SentAt time.Time `json:"sentAt"`
	// Status local lifecycle state. Not part of the wire format.
	Status MessageStatus `json:"-"`
}

// ValidateMessageText trims the text and checks the length bounds.
// Returns the trimmed text.
func ValidateMessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if len(text) > MaxMessageLen {
		return "", ErrMessageTooLong
	}
	return text, nil
}

// MessageLess orders messages by (SentAt, ID). Entries without an id
// (pending sends) sort after committed entries with the same timestamp,
// which places them at their optimistic position until the committed
// counterpart arrives.
func MessageLess(a, b ChatMessage) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.Before(b.SentAt)
	}
	if (a.ID == "") != (b.ID == "") {
		return a.ID != ""
	}
	return a.ID < b.ID
}
