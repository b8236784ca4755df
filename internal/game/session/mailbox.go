package session

import (
	"fmt"
	"sync"
	"time"
)

// Kind distinguishes the two chat message types.
type Kind int

// Chat message kinds.
const (
	Shout Kind = iota
	Whisper
)

// Message is one buffered chat message.
type Message struct {
	Sender    string
	Text      string
	Kind      Kind
	Timestamp time.Time
}

// Render formats the message for display, with its age in whole seconds.
func (m Message) Render(now time.Time) string {
	age := int(now.Sub(m.Timestamp).Seconds())
	if m.Kind == Whisper {
		return fmt.Sprintf("%s tells you: %s (%d seconds ago)", m.Sender, m.Text, age)
	}
	return fmt.Sprintf("%s says: %s (%d seconds ago)", m.Sender, m.Text, age)
}

// Mailbox is a bounded FIFO of recent chat messages. When full, the
// oldest message is evicted: the most recent cap messages are retained.
// Safe for concurrent use.
type Mailbox struct {
	mu   sync.Mutex
	cap  int
	msgs []Message
}

// NewMailbox creates a mailbox retaining at most capacity messages.
//
// Precondition: capacity must be > 0.
func NewMailbox(capacity int) *Mailbox {
	return &Mailbox{cap: capacity}
}

// Add appends a message, evicting from the front while over capacity.
func (m *Mailbox) Add(sender, text string, kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, Message{
		Sender:    sender,
		Text:      text,
		Kind:      kind,
		Timestamp: time.Now(),
	})
	for len(m.msgs) > m.cap {
		m.msgs = m.msgs[1:]
	}
}

// Len returns the number of buffered messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

// Messages returns a copy of the buffered messages, oldest first. The
// box is left intact; it only shrinks through capacity eviction.
func (m *Mailbox) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.msgs...)
}
