package testutil

import (
	"path/filepath"
	"testing"

	"qv-go/internal/fs"
	"qv-go/internal/index"
	"qv-go/internal/quarantine"
)

// TestStore bundles a Store with handles on its collaborators.
type TestStore struct {
	*quarantine.Store

	Vault    *FaultyVault
	Index    *FaultyIndexStore
	Database quarantine.Database
	Clock    *StubClock
	IDGen    *StubIDGenerator

	// SourceDir is a scratch directory for files to be quarantined.
	SourceDir string
}

// NewTestStore creates a Store over a real filesystem vault, an in-memory
// index store and an in-memory journal, with the clock fixed at FixedClock.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()
	return NewTestStoreWithVault(t, NewTestVault(t))
}

// NewTestStoreWithVault is NewTestStore over the given vault.
func NewTestStoreWithVault(t *testing.T, v quarantine.Vault) *TestStore {
	t.Helper()

	ts := &TestStore{
		Vault:     &FaultyVault{Vault: v},
		Index:     &FaultyIndexStore{IndexStore: index.NewMemoryIndexStore()},
		Clock:     FixedClock(),
		IDGen:     NewStubIDGenerator(),
		SourceDir: filepath.Join(t.TempDir(), "src"),
	}
	ts.Database = NewTestDatabase(t, ts.Clock)
	ts.Store = ts.Reopen(t)
	return ts
}

// Reopen creates a second Store over the same vault and index, as a fresh
// process would see them.
func (ts *TestStore) Reopen(t *testing.T) *quarantine.Store {
	t.Helper()
	s, err := quarantine.NewStore(ts.Vault, ts.Index, fs.NewOSFilesystemManager(), ts.Database,
		quarantine.NewNopLogger(), ts.Clock, ts.IDGen)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

// Source writes a file named name under SourceDir and returns its path.
func (ts *TestStore) Source(t *testing.T, name string, content []byte) string {
	t.Helper()
	return WriteFile(t, filepath.Join(ts.SourceDir, name), content)
}
