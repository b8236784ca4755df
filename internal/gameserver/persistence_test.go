package gameserver

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/game/world"
	"github.com/cory-johannsen/mudhost/internal/storage"
)

// memoryStore is an in-memory storage.Store for exercising the
// persistence paths without a database.
type memoryStore struct {
	mu       sync.Mutex
	players  map[string]session.PlayerSnapshot
	dungeons map[int]world.Snapshot
	failSave bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		players:  make(map[string]session.PlayerSnapshot),
		dungeons: make(map[int]world.Snapshot),
	}
}

func (m *memoryStore) SavePlayer(ctx context.Context, snap session.PlayerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return fmt.Errorf("save failed")
	}
	m.players[snap.Username] = snap
	return nil
}

func (m *memoryStore) LoadPlayer(ctx context.Context, username string) (session.PlayerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.players[username]
	if !ok {
		return session.PlayerSnapshot{}, fmt.Errorf("player %s: %w", username, storage.ErrSnapshotNotFound)
	}
	return snap, nil
}

func (m *memoryStore) SaveDungeon(ctx context.Context, ordinal int, snap world.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return fmt.Errorf("save failed")
	}
	m.dungeons[ordinal] = snap
	return nil
}

func (m *memoryStore) LoadDungeons(ctx context.Context) (map[int]world.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]world.Snapshot, len(m.dungeons))
	for k, v := range m.dungeons {
		out[k] = v
	}
	return out, nil
}

func TestService_Shutdown_SavesDungeons(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, testGameConfig(), store)
	alice := join(t, svc, "alice", "0")
	svc.MakeMove(context.Background(), alice, answering(), "pick lantern")
	svc.MakeMove(context.Background(), alice, answering(), "move north")

	require.NoError(t, svc.Shutdown(context.Background()))
	require.Len(t, store.dungeons, 2)
	snap := store.dungeons[0]
	assert.Equal(t, "Dungeon of Doom", snap.Label)

	// The saved graph reflects play: the lantern is gone and alice is
	// on the ledge.
	g, err := world.RestoreGraph(snap)
	require.NoError(t, err)
	ledge, ok := g.Location("ledge")
	require.True(t, ok)
	assert.Contains(t, ledge.Occupants, "alice")
	cave, ok := g.Location("cave")
	require.True(t, ok)
	assert.NotContains(t, cave.Occupants, "lantern")
}

func TestService_Start_RestoresDungeons(t *testing.T) {
	store := newMemoryStore()
	first := newTestService(t, testGameConfig(), store)
	alice := join(t, first, "alice", "0")
	first.MakeMove(context.Background(), alice, answering(), "pick lantern")
	first.PlayerDisconnect(context.Background(), alice)
	require.NoError(t, first.Shutdown(context.Background()))

	second := newTestService(t, testGameConfig(), store)
	assert.Equal(t, 2, second.DungeonCount())

	bob := join(t, second, "bob", "0")
	drainOutbox(bob)
	second.MakeMove(context.Background(), bob, answering(), "pick lantern")
	assert.Contains(t, outboxText(bob), "There is no lantern here.")
}

func TestService_JoinServer_RestoresInventory(t *testing.T) {
	store := newMemoryStore()
	store.players["alice"] = session.PlayerSnapshot{
		Username:  "alice",
		Location:  "ledge",
		Inventory: []string{"map", "lantern"},
	}
	svc := newTestService(t, testGameConfig(), store)

	alice := join(t, svc, "alice", "0")
	assert.ElementsMatch(t, []string{"map", "lantern"}, alice.Inventory())
	// Placement always starts at the dungeon entrance.
	assert.Equal(t, "cave", alice.Location())
}

func TestService_JoinServer_RestoresInventoryForStaleLocation(t *testing.T) {
	store := newMemoryStore()
	store.players["alice"] = session.PlayerSnapshot{
		Username:  "alice",
		Location:  "collapsed-shaft",
		Inventory: []string{"map", "lantern"},
	}
	svc := newTestService(t, testGameConfig(), store)

	// A stored location no current dungeon knows about does not block
	// the inventory restore; placement overwrites the location anyway.
	alice := join(t, svc, "alice", "0")
	assert.ElementsMatch(t, []string{"map", "lantern"}, alice.Inventory())
	assert.Equal(t, "cave", alice.Location())
}

func TestService_PlayerDisconnect_SavesSnapshot(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, testGameConfig(), store)
	alice := join(t, svc, "alice", "0")
	svc.MakeMove(context.Background(), alice, answering(), "pick lantern")

	svc.PlayerDisconnect(context.Background(), alice)

	snap, ok := store.players["alice"]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"map", "lantern"}, snap.Inventory)
}

func TestService_PlayerDisconnect_SaveFailureStillRemoves(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, testGameConfig(), store)
	alice := join(t, svc, "alice", "0")
	store.failSave = true

	svc.PlayerDisconnect(context.Background(), alice)
	assert.Equal(t, 0, svc.PlayerCount())
}
