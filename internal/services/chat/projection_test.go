package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbotrade/paperfloor/internal/domain"
)

func committedMsg(id, author, text string, sentAt time.Time, token string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:          id,
		ClientToken: token,
		AuthorID:    author,
		Text:        text,
		SentAt:      sentAt,
	}
}

func TestProjection_BeginSendValidation(t *testing.T) {
	p := NewProjection()

	_, err := p.BeginSend("user-1", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Zero(t, p.Len())

	msg, err := p.BeginSend("user-1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.NotEmpty(t, msg.ClientToken)
	assert.Equal(t, domain.MessagePending, msg.Status)
	assert.Equal(t, 1, p.Len())
}

func TestProjection_ApplySnapshotIdempotent(t *testing.T) {
	p := NewProjection()
	base := time.Now()

	batch := []domain.ChatMessage{
		committedMsg("m1", "alice", "hi", base, ""),
		committedMsg("m2", "bob", "hey", base.Add(time.Second), ""),
	}

	p.ApplySnapshot(batch)
	require.Equal(t, 2, p.Len())

	// re-delivery after reconnect yields the same view
	p.ApplySnapshot(batch)
	assert.Equal(t, 2, p.Len())

	view := p.View()
	assert.Equal(t, "m1", view[0].ID)
	assert.Equal(t, "m2", view[1].ID)
	for _, m := range view {
		assert.Equal(t, domain.MessageCommitted, m.Status)
	}
}

func TestProjection_OutOfOrderBatchesReordered(t *testing.T) {
	p := NewProjection()
	base := time.Now()

	// later entries arrive first at the transport layer
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m3", "bob", "third", base.Add(2*time.Second), ""),
	})
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "alice", "first", base, ""),
		committedMsg("m2", "alice", "second", base.Add(time.Second), ""),
	})

	view := p.View()
	require.Len(t, view, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{view[0].ID, view[1].ID, view[2].ID})
}

func TestProjection_PendingCommittedByToken(t *testing.T) {
	p := NewProjection()

	msg, err := p.BeginSend("user-1", "hello")
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	// the committed counterpart echoes the client token
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "user-1", "hello", msg.SentAt, msg.ClientToken),
	})

	view := p.View()
	require.Len(t, view, 1, "no duplicate rendering")
	assert.Equal(t, "m1", view[0].ID)
	assert.Equal(t, domain.MessageCommitted, view[0].Status)
}

func TestProjection_PendingCommittedByHeuristic(t *testing.T) {
	p := NewProjection()

	msg, err := p.BeginSend("user-1", "hello")
	require.NoError(t, err)

	// store dropped the token: content+author+time proximity still matches
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "user-1", "hello", msg.SentAt.Add(3*time.Second), ""),
	})

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, domain.MessageCommitted, view[0].Status)
}

func TestProjection_ForeignTokenDoesNotEatPending(t *testing.T) {
	p := NewProjection()

	msg, err := p.BeginSend("user-1", "hello")
	require.NoError(t, err)

	// same author and text but a different client's token: must not
	// supersede our pending entry
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "user-1", "hello", msg.SentAt, "other-token"),
	})

	assert.Equal(t, 2, p.Len())
}

func TestProjection_MarkFailedIsolated(t *testing.T) {
	p := NewProjection()

	first, err := p.BeginSend("user-1", "one")
	require.NoError(t, err)
	second, err := p.BeginSend("user-1", "two")
	require.NoError(t, err)

	p.MarkFailed(first.ClientToken)

	statuses := map[string]domain.MessageStatus{}
	for _, m := range p.View() {
		statuses[m.ClientToken] = m.Status
	}
	assert.Equal(t, domain.MessageFailed, statuses[first.ClientToken])
	assert.Equal(t, domain.MessagePending, statuses[second.ClientToken])
}

func TestProjection_CommittedNeverFails(t *testing.T) {
	p := NewProjection()

	msg, err := p.BeginSend("user-1", "hello")
	require.NoError(t, err)

	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "user-1", "hello", msg.SentAt, msg.ClientToken),
	})
	// a late failure report for the same token must be a no-op: the
	// transition to committed happened exactly once and is terminal
	p.MarkFailed(msg.ClientToken)

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, domain.MessageCommitted, view[0].Status)
}

func TestProjection_FailAllPending(t *testing.T) {
	p := NewProjection()

	_, err := p.BeginSend("user-1", "one")
	require.NoError(t, err)
	_, err = p.BeginSend("user-1", "two")
	require.NoError(t, err)
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "bob", "hi", time.Now(), ""),
	})

	p.FailAllPending()

	failed := 0
	for _, m := range p.View() {
		switch m.Status {
		case domain.MessageFailed:
			failed++
		case domain.MessageCommitted:
			assert.Equal(t, "m1", m.ID)
		default:
			t.Fatalf("unexpected status %s", m.Status)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestProjection_ViewOrderWithPending(t *testing.T) {
	p := NewProjection()
	base := time.Now()

	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "alice", "early", base.Add(-time.Minute), ""),
	})
	pending, err := p.BeginSend("user-1", "mine")
	require.NoError(t, err)
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m2", "alice", "late", pending.SentAt.Add(time.Minute), ""),
	})

	view := p.View()
	require.Len(t, view, 3)
	assert.Equal(t, "m1", view[0].ID)
	assert.Equal(t, pending.ClientToken, view[1].ClientToken)
	assert.Equal(t, "m2", view[2].ID)
}

func TestProjection_OnChangeNotifies(t *testing.T) {
	p := NewProjection()
	updates := 0
	p.OnChange(func() { updates++ })

	_, err := p.BeginSend("user-1", "hello")
	require.NoError(t, err)
	p.ApplySnapshot([]domain.ChatMessage{
		committedMsg("m1", "bob", "hi", time.Now(), ""),
	})
	// empty re-delivery changes nothing and stays silent
	p.ApplySnapshot(nil)

	assert.Equal(t, 2, updates)
}
