package quarantine

import "time"

// Journal operation names.
const (
	OpQuarantine = "quarantine"
	OpRestore    = "restore"
	OpDelete     = "delete"
)

// Event is one entry in the quarantine journal.
type Event struct {
	ID           string
	Operation    string
	FileID       string
	ThreatName   string
	OriginalPath string
	Detail       string
	CreatedAt    time.Time
}

// Journal records completed store mutations for later auditing.
// Journal failures never undo or fail the mutation itself.
type Journal interface {
	RecordEvent(event *Event) error
}

// NopJournal discards events.
type NopJournal struct{}

func (NopJournal) RecordEvent(*Event) error { return nil }
