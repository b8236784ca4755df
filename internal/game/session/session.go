// Package session provides per-connection player state: identity, the
// play-state machine, inventory, the bounded chat mailbox, and the
// outbound delivery queue.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Status is a session's position in the play-state machine.
type Status int

// Session states. A connected session is Idle until it enters the
// dungeon-selection protocol (ChoosingDungeon) and Playing once placed
// in a dungeon. Disconnect removes the session entirely.
const (
	Idle Status = iota
	ChoosingDungeon
	Playing
)

// String returns the state name for logging.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChoosingDungeon:
		return "choosing_dungeon"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Session tracks one connected player's state. All methods are safe for
// concurrent use; the session guards its own fields and nothing else.
type Session struct {
	// UID is the unique per-connection identifier. It distinguishes the
	// registered connection from a stale session reusing the same
	// username and tags connection-scoped log entries.
	UID string
	// Username is the player identity, unique across the whole server.
	Username string

	mu        sync.Mutex
	status    Status
	location  string
	inventory []string

	mailbox *Mailbox
	outbox  *Outbox
}

// New creates a session for the given username. A fresh session starts
// Idle, outside any dungeon, carrying a map.
//
// Precondition: username must be non-empty; mailboxSize and outboxBuffer must be > 0.
func New(username string, mailboxSize, outboxBuffer int) *Session {
	return &Session{
		UID:       uuid.NewString(),
		Username:  username,
		status:    Idle,
		inventory: []string{"map"},
		mailbox:   NewMailbox(mailboxSize),
		outbox:    NewOutbox(outboxBuffer),
	}
}

// Status returns the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus moves the session to a new state.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Location returns the session's current location name. Empty unless Playing.
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// SetLocation records the session's current location.
func (s *Session) SetLocation(loc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
}

// Inventory returns a copy of the carried item names.
func (s *Session) Inventory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inventory...)
}

// AddItem adds an item to the inventory.
func (s *Session) AddItem(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = append(s.inventory, item)
}

// RemoveItem removes one instance of an item from the inventory.
//
// Postcondition: Returns true if the item was carried and removed.
func (s *Session) RemoveItem(item string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.inventory {
		if it == item {
			s.inventory = append(s.inventory[:i], s.inventory[i+1:]...)
			return true
		}
	}
	return false
}

// Carrying reports whether the inventory holds the item.
func (s *Session) Carrying(item string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.inventory {
		if it == item {
			return true
		}
	}
	return false
}

// ClearInventory empties the inventory.
func (s *Session) ClearInventory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = s.inventory[:0]
}

// Mailbox returns the session's chat mailbox.
func (s *Session) Mailbox() *Mailbox {
	return s.mailbox
}

// Outbox returns the session's outbound delivery queue.
func (s *Session) Outbox() *Outbox {
	return s.outbox
}

// PlayerSnapshot is the durable projection of a session: identity,
// location, and inventory. Its JSON encoding is the opaque snapshot
// format the persistence contract stores per username.
type PlayerSnapshot struct {
	Username  string   `json:"username"`
	Location  string   `json:"location"`
	Inventory []string `json:"inventory"`
}

// Snapshot captures the session's durable projection.
func (s *Session) Snapshot() PlayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PlayerSnapshot{
		Username:  s.Username,
		Location:  s.location,
		Inventory: append([]string(nil), s.inventory...),
	}
}

// RestoreInventory replaces the inventory from a saved snapshot.
func (s *Session) RestoreInventory(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = append([]string(nil), items...)
}
