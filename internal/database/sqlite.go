package database

import (
	"context"
	"database/sql"
	"fmt"

	"qv-go/internal/database/migrations"
	"qv-go/internal/quarantine"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock quarantine.Clock
}

// NewSQLiteDatabase opens a SQLite database and brings its schema up to date.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock uses the real time.
func NewSQLiteDatabase(path string, clock quarantine.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	if clock == nil {
		clock = quarantine.RealClock{}
	}
	return &SQLiteDatabase{
		db:    db,
		path:  path,
		clock: clock,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*quarantine.Operation, error) {
	startedAt := s.clock.Now()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, 'running')`,
		startedAt, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &quarantine.Operation{
		ID:         id,
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		s.clock.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*quarantine.Operation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, started_at, finished_at, operation, parameters, status
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var result []*quarantine.Operation
	for rows.Next() {
		var op quarantine.Operation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.StartedAt, &finished, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = &finished.Time
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return result, nil
}

// Event journal

func (s *SQLiteDatabase) RecordEvent(event *quarantine.Event) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO events (id, operation, file_id, threat_name, original_path, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Operation, event.FileID, event.ThreatName, event.OriginalPath, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording %s event for %s: %w", event.Operation, event.FileID, err)
	}
	return nil
}

func (s *SQLiteDatabase) EventsForFile(fileID string) ([]*quarantine.Event, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, operation, file_id, threat_name, original_path, detail, created_at
		 FROM events WHERE file_id = ? ORDER BY rowid`, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var result []*quarantine.Event
	for rows.Next() {
		var e quarantine.Event
		if err := rows.Scan(&e.ID, &e.Operation, &e.FileID, &e.ThreatName, &e.OriginalPath, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckSchema(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements quarantine.Database interface
var _ quarantine.Database = (*SQLiteDatabase)(nil)
