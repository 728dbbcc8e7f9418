// Package repository persists offline station snapshots in SQL databases.
package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/snapshot"
)

// schemaSQL is the SQLite schema, embedded from schema.sql
//
//go:embed schema.sql
var schemaSQL string

// timeLayout sorts lexicographically in the same order as time
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultKeepBuilds is how many snapshot builds Save retains
const DefaultKeepBuilds = 3

// SQLiteSnapshotStore keeps snapshot builds in a SQLite database.
// It implements snapshot.Store.
type SQLiteSnapshotStore struct {
	conn       *sql.DB
	writeMu    sync.Mutex // SQLite allows one writer at a time
	keepBuilds int
	log        *slog.Logger
}

// NewSQLiteSnapshotStore opens dbPath with WAL mode and ensures the schema
func NewSQLiteSnapshotStore(ctx context.Context, dbPath string) (*SQLiteSnapshotStore, error) {
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log := logger.With("repository")
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			log.Warn("failed to set pragma", "pragma", pragma, "error", err)
		}
	}

	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info("connected to SQLite snapshot store", "path", dbPath)
	return &SQLiteSnapshotStore{conn: conn, keepBuilds: DefaultKeepBuilds, log: log}, nil
}

// Close closes the database connection
func (s *SQLiteSnapshotStore) Close() error {
	return s.conn.Close()
}

// Load returns the newest snapshot build
func (s *SQLiteSnapshotStore) Load(ctx context.Context) (*snapshot.Document, error) {
	var buildID, generatedAt string
	err := s.conn.QueryRowContext(ctx, `
		SELECT build_id, generated_at
		FROM station_snapshots
		ORDER BY generated_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&buildID, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	ts, err := time.Parse(timeLayout, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: generated_at %q: %v", snapshot.ErrMalformed, generatedAt, err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT station_id, name, line_ids
		FROM snapshot_stations
		WHERE build_id = ?
		ORDER BY name, station_id
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot stations: %w", err)
	}
	defer rows.Close()

	doc := &snapshot.Document{GeneratedAt: ts, BuildID: buildID}
	for rows.Next() {
		var e snapshot.Entry
		var lineIDs string
		if err := rows.Scan(&e.ID, &e.Name, &lineIDs); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot station: %w", err)
		}
		e.Lines = splitLineIDs(lineIDs)
		doc.Stations = append(doc.Stations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot stations: %w", err)
	}
	return doc, nil
}

// Save writes doc as a new build and prunes old builds. Empty documents are
// rejected so a failed build never replaces a good one.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, doc *snapshot.Document) error {
	if doc == nil || len(doc.Stations) == 0 {
		return snapshot.ErrEmpty
	}
	buildID := doc.BuildID
	if buildID == "" {
		buildID = uuid.NewString()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO station_snapshots (build_id, generated_at, station_count)
		VALUES (?, ?, ?)
	`, buildID, doc.GeneratedAt.UTC().Format(timeLayout), len(doc.Stations))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO snapshot_stations (build_id, station_id, name, line_ids)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range doc.Stations {
		if _, err := stmt.ExecContext(ctx, buildID, e.ID, e.Name, strings.Join(e.Lines, ",")); err != nil {
			return fmt.Errorf("failed to insert station %s: %w", e.ID, err)
		}
	}

	pruned, err := prune(ctx, tx, s.keepBuilds)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.log.Info("snapshot saved", "build_id", buildID, "stations", len(doc.Stations), "pruned", pruned)
	return nil
}

// prune deletes all but the newest keep builds
func prune(ctx context.Context, tx *sql.Tx, keep int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM station_snapshots
		WHERE build_id NOT IN (
			SELECT build_id FROM station_snapshots
			ORDER BY generated_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()

	// foreign_keys is per connection, so orphans are removed explicitly
	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshot_stations
		WHERE build_id NOT IN (SELECT build_id FROM station_snapshots)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshot stations: %w", err)
	}
	return n, nil
}

func splitLineIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
