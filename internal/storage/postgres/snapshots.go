package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/game/world"
	"github.com/cory-johannsen/mudhost/internal/storage"
)

// SnapshotRepository implements storage.Store on PostgreSQL.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SavePlayer upserts the snapshot document for a username.
//
// Precondition: snap.Username must be non-empty.
// Postcondition: A later LoadPlayer for the username returns this snapshot.
func (r *SnapshotRepository) SavePlayer(ctx context.Context, snap session.PlayerSnapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding player snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO player_snapshots (username, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (username)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		snap.Username, doc,
	)
	if err != nil {
		return fmt.Errorf("upserting player snapshot: %w", err)
	}
	return nil
}

// LoadPlayer retrieves the snapshot document for a username.
//
// Postcondition: Returns the snapshot, or storage.ErrSnapshotNotFound.
func (r *SnapshotRepository) LoadPlayer(ctx context.Context, username string) (session.PlayerSnapshot, error) {
	var doc []byte
	err := r.db.QueryRow(ctx,
		`SELECT snapshot FROM player_snapshots WHERE username = $1`,
		username,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.PlayerSnapshot{}, fmt.Errorf("player %s: %w", username, storage.ErrSnapshotNotFound)
		}
		return session.PlayerSnapshot{}, fmt.Errorf("querying player snapshot: %w", err)
	}

	var snap session.PlayerSnapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return session.PlayerSnapshot{}, fmt.Errorf("decoding player snapshot: %w", err)
	}
	return snap, nil
}

// SaveDungeon upserts the snapshot document at a registry ordinal.
//
// Precondition: ordinal must be >= 0.
func (r *SnapshotRepository) SaveDungeon(ctx context.Context, ordinal int, snap world.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding dungeon snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO dungeon_snapshots (ordinal, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ordinal)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		ordinal, doc,
	)
	if err != nil {
		return fmt.Errorf("upserting dungeon snapshot: %w", err)
	}
	return nil
}

// LoadDungeons retrieves every saved dungeon snapshot keyed by ordinal.
//
// Postcondition: Returns an empty map when nothing has been saved.
func (r *SnapshotRepository) LoadDungeons(ctx context.Context) (map[int]world.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ordinal, snapshot FROM dungeon_snapshots ORDER BY ordinal ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying dungeon snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[int]world.Snapshot)
	for rows.Next() {
		var (
			ordinal int
			doc     []byte
		)
		if err := rows.Scan(&ordinal, &doc); err != nil {
			return nil, fmt.Errorf("scanning dungeon snapshot row: %w", err)
		}
		var snap world.Snapshot
		if err := json.Unmarshal(doc, &snap); err != nil {
			return nil, fmt.Errorf("decoding dungeon snapshot %d: %w", ordinal, err)
		}
		out[ordinal] = snap
	}
	return out, rows.Err()
}
