package testutil

import (
	"path/filepath"
	"testing"

	"qv-go/internal/quarantine"
	"qv-go/internal/vault"
)

// NewTestVault creates a filesystem vault in a fresh temp directory.
func NewTestVault(t *testing.T) *vault.FileSystemVault {
	t.Helper()
	v, err := vault.NewFileSystemVault(filepath.Join(t.TempDir(), "quarantine"))
	if err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	return v
}

// FaultyVault wraps a Vault and fails the operations whose error field is
// set. Fields are read on every call, so tests can arm and disarm faults
// between operations.
type FaultyVault struct {
	quarantine.Vault

	AdmitErr   error
	ReleaseErr error
	RemoveErr  error
}

func (v *FaultyVault) Admit(srcPath string, name string) (string, error) {
	if v.AdmitErr != nil {
		return "", v.AdmitErr
	}
	return v.Vault.Admit(srcPath, name)
}

func (v *FaultyVault) Release(vaultPath string, destPath string) error {
	if v.ReleaseErr != nil {
		return v.ReleaseErr
	}
	return v.Vault.Release(vaultPath, destPath)
}

func (v *FaultyVault) Remove(vaultPath string) error {
	if v.RemoveErr != nil {
		return v.RemoveErr
	}
	return v.Vault.Remove(vaultPath)
}

var _ quarantine.Vault = (*FaultyVault)(nil)

// FaultyIndexStore wraps an IndexStore and fails Save while SaveErr is set.
type FaultyIndexStore struct {
	quarantine.IndexStore

	SaveErr error
}

func (s *FaultyIndexStore) Save(ix *quarantine.Index) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	return s.IndexStore.Save(ix)
}

var _ quarantine.IndexStore = (*FaultyIndexStore)(nil)
