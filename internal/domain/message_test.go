package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessageText(t *testing.T) {
	text, err := ValidateMessageText("  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ValidateMessageText("   ")
	assert.True(t, errors.Is(err, ErrEmptyMessage))

	_, err = ValidateMessageText(strings.Repeat("x", MaxMessageLen+1))
	assert.True(t, errors.Is(err, ErrMessageTooLong))

	// exactly at the limit is fine
	text, err = ValidateMessageText(strings.Repeat("x", MaxMessageLen))
	require.NoError(t, err)
	assert.Len(t, text, MaxMessageLen)
}

func TestMessageLess(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	earlier := ChatMessage{ID: "b", SentAt: base}
	later := ChatMessage{ID: "a", SentAt: base.Add(time.Second)}
	assert.True(t, MessageLess(earlier, later))
	assert.False(t, MessageLess(later, earlier))

	// same timestamp: ordered by id
	first := ChatMessage{ID: "a", SentAt: base}
	second := ChatMessage{ID: "b", SentAt: base}
	assert.True(t, MessageLess(first, second))

	// pending (no id) sorts after committed at the same timestamp
	pending := ChatMessage{SentAt: base, Status: MessagePending}
	assert.True(t, MessageLess(first, pending))
	assert.False(t, MessageLess(pending, first))
}

func TestMessageStatusString(t *testing.T) {
	assert.Equal(t, "pending", MessagePending.String())
	assert.Equal(t, "committed", MessageCommitted.String())
	assert.Equal(t, "failed", MessageFailed.String())
}
