package quarantine

import "time"

// Operation is one tracked CLI invocation that changed the vault.
type Operation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Operation  string
	Parameters string
	Status     string
}

// Database stores the operation history and the per-file event journal.
// The index document stays the source of truth for what is quarantined.
type Database interface {
	Journal

	// CreateOperation records the start of an operation and assigns its ID.
	CreateOperation(operation string, parameters string) (*Operation, error)

	// FinishOperation stamps the operation's end time and final status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// EventsForFile returns the journal entries for one file id, oldest first.
	EventsForFile(fileID string) ([]*Event, error)

	// CheckMigrations verifies the schema is at the version this binary expects.
	CheckMigrations() error

	Close() error
}
