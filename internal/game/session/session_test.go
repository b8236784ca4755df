package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("alice", 5, 64)
	assert.NotEmpty(t, s.UID)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, Idle, s.Status())
	assert.Empty(t, s.Location())
	assert.Equal(t, []string{"map"}, s.Inventory())
}

func TestNew_UniqueUIDs(t *testing.T) {
	a := New("alice", 5, 64)
	b := New("bob", 5, 64)
	assert.NotEqual(t, a.UID, b.UID)
}

func TestSession_StatusTransitions(t *testing.T) {
	s := New("alice", 5, 64)

	s.SetStatus(ChoosingDungeon)
	assert.Equal(t, ChoosingDungeon, s.Status())

	s.SetStatus(Playing)
	assert.Equal(t, Playing, s.Status())

	s.SetStatus(Idle)
	assert.Equal(t, Idle, s.Status())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "choosing_dungeon", ChoosingDungeon.String())
	assert.Equal(t, "playing", Playing.String())
}

func TestSession_Inventory(t *testing.T) {
	s := New("alice", 5, 64)
	s.AddItem("lantern")

	assert.True(t, s.Carrying("lantern"))
	assert.True(t, s.RemoveItem("lantern"))
	assert.False(t, s.Carrying("lantern"))
	assert.False(t, s.RemoveItem("lantern"))
}

func TestSession_InventoryCopy(t *testing.T) {
	s := New("alice", 5, 64)
	inv := s.Inventory()
	inv[0] = "mutated"
	assert.Equal(t, []string{"map"}, s.Inventory())
}

func TestSession_ClearInventory(t *testing.T) {
	s := New("alice", 5, 64)
	s.AddItem("lantern")
	s.ClearInventory()
	assert.Empty(t, s.Inventory())
}

func TestSession_Snapshot(t *testing.T) {
	s := New("alice", 5, 64)
	s.SetLocation("cave")
	s.AddItem("lantern")

	snap := s.Snapshot()
	assert.Equal(t, "alice", snap.Username)
	assert.Equal(t, "cave", snap.Location)
	assert.Equal(t, []string{"map", "lantern"}, snap.Inventory)
}

func TestSession_RestoreInventory(t *testing.T) {
	s := New("alice", 5, 64)
	s.RestoreInventory([]string{"map", "rope"})
	assert.Equal(t, []string{"map", "rope"}, s.Inventory())

	// Restored inventory is a copy of the input.
	items := []string{"map"}
	s.RestoreInventory(items)
	items[0] = "mutated"
	assert.Equal(t, []string{"map"}, s.Inventory())
}

func TestSession_Mailbox_Outbox(t *testing.T) {
	s := New("alice", 5, 64)
	require.NotNil(t, s.Mailbox())
	require.NotNil(t, s.Outbox())
}
