// Package storage defines the persistence contract for game state
// snapshots. Implementations store the durable projections of players
// and dungeons as opaque documents; the game server treats persistence
// as optional and runs memory-only when no store is configured.
package storage

import (
	"context"
	"errors"

	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/game/world"
)

// ErrSnapshotNotFound is returned when no snapshot exists for the
// requested key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store persists and restores game state snapshots. Player snapshots
// are keyed by username; dungeon snapshots by registry ordinal.
type Store interface {
	// SavePlayer upserts the durable projection of a session.
	//
	// Precondition: snap.Username must be non-empty.
	SavePlayer(ctx context.Context, snap session.PlayerSnapshot) error

	// LoadPlayer retrieves the saved projection for a username.
	//
	// Postcondition: Returns the snapshot, or ErrSnapshotNotFound.
	LoadPlayer(ctx context.Context, username string) (session.PlayerSnapshot, error)

	// SaveDungeon upserts a dungeon graph snapshot at its registry ordinal.
	SaveDungeon(ctx context.Context, ordinal int, snap world.Snapshot) error

	// LoadDungeons retrieves all saved dungeon snapshots keyed by ordinal.
	//
	// Postcondition: Returns an empty map when nothing has been saved.
	LoadDungeons(ctx context.Context) (map[int]world.Snapshot, error)
}
