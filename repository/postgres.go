package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/snapshot"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS station_snapshots (
    build_id      UUID PRIMARY KEY,
    generated_at  TIMESTAMPTZ NOT NULL,
    station_count INTEGER NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_station_snapshots_generated
    ON station_snapshots(generated_at DESC);

CREATE TABLE IF NOT EXISTS snapshot_stations (
    build_id   UUID NOT NULL REFERENCES station_snapshots(build_id) ON DELETE CASCADE,
    station_id TEXT NOT NULL,
    name       TEXT NOT NULL,
    line_ids   TEXT[] NOT NULL,
    PRIMARY KEY (build_id, station_id)
);
`

// PostgresSnapshotStore keeps snapshot builds in PostgreSQL.
// It implements snapshot.Store.
type PostgresSnapshotStore struct {
	pool       *pgxpool.Pool
	keepBuilds int
	log        *slog.Logger
}

// NewPostgresSnapshotStore connects to databaseURL and ensures the schema
func NewPostgresSnapshotStore(ctx context.Context, databaseURL string) (*PostgresSnapshotStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresSnapshotStore{pool: pool, keepBuilds: DefaultKeepBuilds, log: logger.With("repository")}, nil
}

// Close releases the pool
func (r *PostgresSnapshotStore) Close() {
	r.pool.Close()
}

// Load returns the newest snapshot build
func (r *PostgresSnapshotStore) Load(ctx context.Context) (*snapshot.Document, error) {
	var buildID uuid.UUID
	doc := &snapshot.Document{}
	err := r.pool.QueryRow(ctx, `
		SELECT build_id, generated_at
		FROM station_snapshots
		ORDER BY generated_at DESC, created_at DESC
		LIMIT 1
	`).Scan(&buildID, &doc.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	doc.BuildID = buildID.String()
	doc.GeneratedAt = doc.GeneratedAt.UTC()

	rows, err := r.pool.Query(ctx, `
		SELECT station_id, name, line_ids
		FROM snapshot_stations
		WHERE build_id = $1
		ORDER BY name, station_id
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot stations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e snapshot.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Lines); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot station: %w", err)
		}
		doc.Stations = append(doc.Stations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot stations: %w", err)
	}
	return doc, nil
}

// Save writes doc as a new build inside one transaction and prunes old
// builds. Empty documents are rejected.
func (r *PostgresSnapshotStore) Save(ctx context.Context, doc *snapshot.Document) error {
	if doc == nil || len(doc.Stations) == 0 {
		return snapshot.ErrEmpty
	}
	buildID, err := uuid.Parse(doc.BuildID)
	if err != nil {
		buildID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO station_snapshots (build_id, generated_at, station_count)
		VALUES ($1, $2, $3)
	`, buildID, doc.GeneratedAt.UTC(), len(doc.Stations))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	seen := make(map[string]bool, len(doc.Stations))
	rows := make([][]any, 0, len(doc.Stations))
	for _, e := range doc.Stations {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		lines := e.Lines
		if lines == nil {
			lines = []string{}
		}
		rows = append(rows, []any{buildID, e.ID, e.Name, lines})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"snapshot_stations"},
		[]string{"build_id", "station_id", "name", "line_ids"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy snapshot stations: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM station_snapshots
		WHERE build_id NOT IN (
			SELECT build_id FROM station_snapshots
			ORDER BY generated_at DESC, created_at DESC
			LIMIT $1
		)
	`, r.keepBuilds)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	r.log.Info("snapshot saved", "build_id", buildID, "stations", len(rows), "pruned", tag.RowsAffected())
	return nil
}
