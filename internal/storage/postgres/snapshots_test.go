package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/game/world"
	"github.com/cory-johannsen/mudhost/internal/storage"
	"github.com/cory-johannsen/mudhost/internal/storage/postgres"
	"github.com/cory-johannsen/mudhost/internal/testutil"
)

func setupRepo(t *testing.T) *postgres.SnapshotRepository {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewSnapshotRepository(pc.RawPool)
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func testSnapshot() world.Snapshot {
	return world.Snapshot{
		Label: "Dungeon of Doom",
		Start: "cave",
		Locations: []world.LocationSnapshot{
			{
				Name:      "cave",
				Message:   "A dark cave.",
				Occupants: []string{"lantern"},
				Routes:    []world.RouteSnapshot{{Direction: "north", To: "ledge", View: "a narrow ledge"}},
			},
			{
				Name:    "ledge",
				Message: "A windswept ledge.",
				Routes:  []world.RouteSnapshot{{Direction: "south", To: "cave", View: "a dark cave"}},
			},
		},
	}
}

func TestSnapshotRepository_SaveAndLoadPlayer(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	username := uniqueName("alice")

	snap := session.PlayerSnapshot{
		Username:  username,
		Location:  "cave",
		Inventory: []string{"map", "lantern"},
	}
	require.NoError(t, repo.SavePlayer(ctx, snap))

	loaded, err := repo.LoadPlayer(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
}

func TestSnapshotRepository_SavePlayer_Upserts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	username := uniqueName("alice")

	require.NoError(t, repo.SavePlayer(ctx, session.PlayerSnapshot{
		Username:  username,
		Location:  "cave",
		Inventory: []string{"map"},
	}))
	require.NoError(t, repo.SavePlayer(ctx, session.PlayerSnapshot{
		Username:  username,
		Location:  "ledge",
		Inventory: []string{"map", "lantern"},
	}))

	loaded, err := repo.LoadPlayer(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, "ledge", loaded.Location)
	assert.Equal(t, []string{"map", "lantern"}, loaded.Inventory)
}

func TestSnapshotRepository_LoadPlayer_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.LoadPlayer(context.Background(), uniqueName("ghost"))
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}

func TestSnapshotRepository_SaveAndLoadDungeons(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveDungeon(ctx, 0, testSnapshot()))
	second := testSnapshot()
	second.Label = "Sunken Crypt"
	require.NoError(t, repo.SaveDungeon(ctx, 1, second))

	loaded, err := repo.LoadDungeons(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, testSnapshot(), loaded[0])
	assert.Equal(t, "Sunken Crypt", loaded[1].Label)

	// A restored graph from the loaded snapshot is playable.
	g, err := world.RestoreGraph(loaded[0])
	require.NoError(t, err)
	assert.Equal(t, 2, g.LocationCount())
}

func TestSnapshotRepository_SaveDungeon_Upserts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveDungeon(ctx, 0, testSnapshot()))
	updated := testSnapshot()
	updated.Locations[0].Occupants = nil
	require.NoError(t, repo.SaveDungeon(ctx, 0, updated))

	loaded, err := repo.LoadDungeons(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Empty(t, loaded[0].Locations[0].Occupants)
}

func TestSnapshotRepository_LoadDungeons_Empty(t *testing.T) {
	repo := setupRepo(t)

	loaded, err := repo.LoadDungeons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
