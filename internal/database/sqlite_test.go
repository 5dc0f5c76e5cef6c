package database

import (
	"testing"
	"time"

	"qv-go/internal/quarantine"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) (*SQLiteDatabase, *fixedClock) {
	t.Helper()

	clock := &fixedClock{t: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	db, err := NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db, clock
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
	if db.Path() != ":memory:" {
		t.Errorf("Path() = %q, want :memory:", db.Path())
	}
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	t.Run("create and finish", func(t *testing.T) {
		db, clock := newTestDB(t)

		op, err := db.CreateOperation("Cleanup", "days=30")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if op.ID == 0 {
			t.Error("CreateOperation() did not assign an ID")
		}
		if op.Status != "running" {
			t.Errorf("Status = %q, want running", op.Status)
		}

		clock.t = clock.t.Add(2 * time.Second)
		if err := db.FinishOperation(op.ID, "success"); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, err := db.ListOperations(10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("len(ListOperations()) = %d, want 1", len(ops))
		}
		got := ops[0]
		if got.Operation != "Cleanup" || got.Parameters != "days=30" || got.Status != "success" {
			t.Errorf("operation = %+v", got)
		}
		if !got.StartedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
			t.Errorf("StartedAt = %v", got.StartedAt)
		}
		if got.FinishedAt == nil || got.FinishedAt.Sub(got.StartedAt) != 2*time.Second {
			t.Errorf("FinishedAt = %v, want StartedAt+2s", got.FinishedAt)
		}
	})

	t.Run("unfinished operation has no end time", func(t *testing.T) {
		db, _ := newTestDB(t)
		if _, err := db.CreateOperation("Quarantine", ""); err != nil {
			t.Fatal(err)
		}

		ops, err := db.ListOperations(10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if ops[0].FinishedAt != nil {
			t.Errorf("FinishedAt = %v, want nil", ops[0].FinishedAt)
		}
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		db, _ := newTestDB(t)
		for _, name := range []string{"a", "b", "c"} {
			if _, err := db.CreateOperation(name, ""); err != nil {
				t.Fatal(err)
			}
		}

		ops, err := db.ListOperations(2)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 2 || ops[0].Operation != "c" || ops[1].Operation != "b" {
			t.Errorf("ListOperations(2) = %v", ops)
		}
	})

	t.Run("finishing unknown operation fails", func(t *testing.T) {
		db, _ := newTestDB(t)
		if err := db.FinishOperation(42, "success"); err == nil {
			t.Error("FinishOperation() expected error for unknown id")
		}
	})
}

func TestSQLiteDatabase_Events(t *testing.T) {
	db, clock := newTestDB(t)
	const fileID = "0123456789abcdef_20240115_103000"

	events := []*quarantine.Event{
		{ID: "e1", Operation: quarantine.OpQuarantine, FileID: fileID, ThreatName: "Eicar", OriginalPath: "/tmp/eicar.com", CreatedAt: clock.t},
		{ID: "e2", Operation: quarantine.OpQuarantine, FileID: "other", CreatedAt: clock.t},
		{ID: "e3", Operation: quarantine.OpRestore, FileID: fileID, ThreatName: "Eicar", OriginalPath: "/tmp/eicar.com", Detail: "/tmp/eicar.com", CreatedAt: clock.t.Add(time.Hour)},
	}
	for _, e := range events {
		if err := db.RecordEvent(e); err != nil {
			t.Fatalf("RecordEvent(%s) error = %v", e.ID, err)
		}
	}

	got, err := db.EventsForFile(fileID)
	if err != nil {
		t.Fatalf("EventsForFile() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(EventsForFile()) = %d, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e3" {
		t.Errorf("events = [%s %s], want [e1 e3]", got[0].ID, got[1].ID)
	}
	if got[1].Operation != quarantine.OpRestore || got[1].Detail != "/tmp/eicar.com" {
		t.Errorf("event = %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(clock.t.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, clock.t.Add(time.Hour))
	}

	if err := db.RecordEvent(&quarantine.Event{ID: "e1", Operation: quarantine.OpDelete, FileID: fileID, CreatedAt: clock.t}); err == nil {
		t.Error("RecordEvent() expected error for duplicate event id")
	}

	none, err := db.EventsForFile("missing")
	if err != nil {
		t.Fatalf("EventsForFile() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(EventsForFile(missing)) = %d, want 0", len(none))
	}
}
