package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMailbox_Add(t *testing.T) {
	mb := NewMailbox(5)
	mb.Add("bob", "hello", Shout)

	msgs := mb.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob", msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, Shout, msgs[0].Kind)
	assert.False(t, msgs[0].Timestamp.IsZero())
}

func TestMailbox_FIFOEviction(t *testing.T) {
	mb := NewMailbox(5)
	for i := 0; i < 6; i++ {
		mb.Add("bob", fmt.Sprintf("msg-%d", i), Shout)
	}

	msgs := mb.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "msg-1", msgs[0].Text)
	assert.Equal(t, "msg-5", msgs[4].Text)
}

func TestMailbox_MessagesLeavesBoxIntact(t *testing.T) {
	mb := NewMailbox(5)
	mb.Add("bob", "hello", Shout)

	_ = mb.Messages()
	assert.Equal(t, 1, mb.Len())
}

func TestMessage_Render(t *testing.T) {
	now := time.Now()
	shout := Message{Sender: "bob", Text: "hello", Kind: Shout, Timestamp: now.Add(-2 * time.Second)}
	whisper := Message{Sender: "carol", Text: "psst", Kind: Whisper, Timestamp: now.Add(-3 * time.Second)}

	assert.Equal(t, "bob says: hello (2 seconds ago)", shout.Render(now))
	assert.Equal(t, "carol tells you: psst (3 seconds ago)", whisper.Render(now))
}

func TestPropertyMailboxNeverExceedsCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 10).Draw(t, "capacity")
		count := rapid.IntRange(0, 50).Draw(t, "count")

		mb := NewMailbox(capacity)
		for i := 0; i < count; i++ {
			mb.Add("bob", fmt.Sprintf("msg-%d", i), Shout)
		}

		assert.LessOrEqual(t, mb.Len(), capacity)
		if count > capacity {
			// Most recent messages are the ones retained.
			msgs := mb.Messages()
			assert.Equal(t, fmt.Sprintf("msg-%d", count-1), msgs[len(msgs)-1].Text)
			assert.Equal(t, fmt.Sprintf("msg-%d", count-capacity), msgs[0].Text)
		}
	})
}
