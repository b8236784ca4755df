package session

import (
	"fmt"
	"sync"
)

// Payload is one outbound unit of delivery to a client.
type Payload struct {
	// Text is the rendered output. Ignored when Clear is set.
	Text string
	// Prompt suppresses the trailing newline so the cursor stays on the line.
	Prompt bool
	// Clear asks the client to reset its display before further output.
	Clear bool
}

// Outbox queues outbound payloads for one client, decoupling broadcast
// fan-out from per-client I/O. The connection's writer goroutine drains
// it; Push never blocks, so a slow or stalled client cannot hold up a
// broadcast to its neighbours.
type Outbox struct {
	mu       sync.Mutex
	closed   bool
	payloads chan Payload
}

// NewOutbox creates an Outbox with the given buffer depth.
func NewOutbox(buffer int) *Outbox {
	if buffer <= 0 {
		buffer = 64
	}
	return &Outbox{
		payloads: make(chan Payload, buffer),
	}
}

// Push enqueues a payload without blocking.
//
// Postcondition: The payload is queued, or an error if the outbox is
// closed or full. Callers treat the error as a per-recipient delivery
// failure: log and continue.
func (o *Outbox) Push(p Payload) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox is closed")
	}
	select {
	case o.payloads <- p:
		return nil
	default:
		return fmt.Errorf("outbox buffer full")
	}
}

// Drain returns the receive side for the connection's writer goroutine.
// The channel is closed when the outbox closes.
func (o *Outbox) Drain() <-chan Payload {
	return o.payloads
}

// Close marks the outbox closed and closes the channel. Further Push
// calls fail; Drain readers observe channel close.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.payloads)
	}
}

// Closed reports whether the outbox has been closed.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
