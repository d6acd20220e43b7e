// Package sqlite persists landing decision records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viant/runway/service/audit"
	_ "modernc.org/sqlite"
)

// Store is a SQLite backed audit.Recorder
type Store struct {
	db *sql.DB
}

// New opens (creating when needed) the database and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS landing_decisions (
		id TEXT PRIMARY KEY,
		delivery TEXT NOT NULL,
		plane_id TEXT,
		priority TEXT,
		decision TEXT NOT NULL,
		runway TEXT,
		reason TEXT,
		inputs_hash TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_landing_decisions_plane ON landing_decisions(plane_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a decision record
func (s *Store) Record(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO landing_decisions (id, delivery, plane_id, priority, decision, runway, reason, inputs_hash, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Delivery, entry.PlaneID, entry.Priority, string(entry.Decision), entry.Runway, entry.Reason, entry.InputsHash, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert landing decision: %w", err)
	}
	return nil
}

// List returns records oldest first, all of them when planeID is empty
func (s *Store) List(ctx context.Context, planeID string) ([]*audit.Entry, error) {
	query := `SELECT id, delivery, plane_id, priority, decision, runway, reason, inputs_hash, timestamp FROM landing_decisions`
	var args []interface{}
	if planeID != "" {
		query += ` WHERE plane_id = ?`
		args = append(args, planeID)
	}
	query += ` ORDER BY timestamp, rowid`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query landing decisions: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry := &audit.Entry{}
		var decision string
		var plane, priority, runway, reason sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Delivery, &plane, &priority, &decision, &runway, &reason, &entry.InputsHash, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan landing decision: %w", err)
		}
		entry.PlaneID = plane.String
		entry.Priority = priority.String
		entry.Runway = runway.String
		entry.Reason = reason.String
		entry.Decision = audit.Decision(decision)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ audit.Recorder = (*Store)(nil)
