package quarantine_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qv-go/internal/fs"
	"qv-go/internal/quarantine"
	"qv-go/internal/testutil"
	"qv-go/internal/vault"
)

type failingJournal struct{}

func (failingJournal) RecordEvent(*quarantine.Event) error {
	return errors.New("journal unavailable")
}

func fsManager() quarantine.FilesystemManager {
	return fs.NewOSFilesystemManager()
}

// symlinkedDir creates a directory and a symlink pointing at it.
func symlinkedDir(t *testing.T) (realDir, link string) {
	t.Helper()
	base := t.TempDir()
	realDir = filepath.Join(base, "real")
	link = filepath.Join(base, "link")
	if err := os.Mkdir(realDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(realDir, link); err != nil {
		t.Fatal(err)
	}
	return realDir, link
}

// storeAt creates a test store whose vault is rooted at root.
func storeAt(t *testing.T, root string) *testutil.TestStore {
	t.Helper()
	v, err := vault.NewFileSystemVault(root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return testutil.NewTestStoreWithVault(t, v)
}
