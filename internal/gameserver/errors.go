package gameserver

import "errors"

// Sentinel errors for the join protocol and dungeon registry. Callers
// match them with errors.Is; player-facing wording is pushed to the
// session's outbox at the rejection site.
var (
	// ErrServerFull is returned when the server-wide session cap is reached.
	ErrServerFull = errors.New("server is full")

	// ErrDuplicateIdentity is returned when a username is already connected.
	ErrDuplicateIdentity = errors.New("username already connected")

	// ErrDungeonFull is returned when a dungeon's occupancy cap is reached.
	ErrDungeonFull = errors.New("dungeon is full")

	// ErrAllDungeonsFull is returned when no dungeon has a free slot left.
	ErrAllDungeonsFull = errors.New("all dungeons are full")

	// ErrUnknownDungeon is returned for an out-of-range dungeon ordinal.
	ErrUnknownDungeon = errors.New("unknown dungeon")

	// ErrNotPlaying is returned when a command requires an active dungeon.
	ErrNotPlaying = errors.New("session is not in a dungeon")
)
