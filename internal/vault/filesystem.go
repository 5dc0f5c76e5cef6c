package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"qv-go/internal/atomicfile"
	"qv-go/internal/quarantine"
)

const (
	tmpPrefix        = atomicfile.TempPrefix
	maxRemoveRetries = 3
)

// FileSystemVault keeps quarantined files flat in a single directory:
//
//	<root>/
//	  <YYYYMMDD_HHMMSS>_<hash>_<basename>
//	  .tmp-*          (in-flight cross-device copies)
//
// Files enter and leave by rename; nothing is ever overwritten.
type FileSystemVault struct {
	// root has every symlink resolved; configured is the root as given,
	// which older index entries may still be recorded under.
	root          string
	configured    string
	retryInterval time.Duration
}

// NewFileSystemVault creates a vault rooted at root, creating the directory
// if needed. The directory is private to the owner.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root symlinks: %w", err)
	}

	return &FileSystemVault{
		root:          resolved,
		configured:    abs,
		retryInterval: 50 * time.Millisecond,
	}, nil
}

func (v *FileSystemVault) Root() string {
	return v.root
}

// Admit moves srcPath into the vault as name.
func (v *FileSystemVault) Admit(srcPath string, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	destPath := filepath.Join(v.root, name)
	if err := moveFile(srcPath, destPath); err != nil {
		return "", fmt.Errorf("admitting %s: %w", srcPath, err)
	}
	return destPath, nil
}

// Release moves a vaulted file to destPath, creating its parent directories.
func (v *FileSystemVault) Release(vaultPath string, destPath string) error {
	if !v.Contains(vaultPath) {
		return fmt.Errorf("%s is outside the vault", vaultPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}
	if err := moveFile(vaultPath, destPath); err != nil {
		return fmt.Errorf("releasing %s: %w", filepath.Base(vaultPath), err)
	}
	return nil
}

// Remove deletes a vaulted file. Transient errors such as a busy file are
// retried a few times before giving up.
func (v *FileSystemVault) Remove(vaultPath string) error {
	if !v.Contains(vaultPath) {
		return fmt.Errorf("%s is outside the vault", vaultPath)
	}

	op := func() error {
		err := os.Remove(vaultPath)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(v.retryInterval)),
		maxRemoveRetries,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("removing %s: %w", filepath.Base(vaultPath), err)
	}
	return nil
}

func (v *FileSystemVault) Stat(vaultPath string) (fs.FileInfo, error) {
	if !v.Contains(vaultPath) {
		return nil, fmt.Errorf("%s is outside the vault", vaultPath)
	}
	return os.Lstat(vaultPath)
}

// Contains reports whether path is the vault root or lies beneath it,
// either as written or once symlinks in its parent directories are resolved.
// The final element is not followed, so a symlink inside the vault is
// contained even when it points elsewhere.
func (v *FileSystemVault) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if within(v.root, abs) || within(v.configured, abs) {
		return true
	}

	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return false
	}
	return within(v.root, filepath.Join(dir, filepath.Base(abs)))
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Names lists vaulted files, skipping directories and in-flight temp files.
func (v *FileSystemVault) Names() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("reading vault directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ValidateSetup verifies that the vault directory exists and is writable.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, tmpPrefix+"probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid vault name %q", name)
	case strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/'):
		return fmt.Errorf("vault name %q contains a path separator", name)
	case strings.HasPrefix(name, tmpPrefix):
		return fmt.Errorf("vault name %q uses the reserved %s prefix", name, tmpPrefix)
	}
	return nil
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY) ||
		errors.Is(err, syscall.EAGAIN)
}

// Compile-time check that FileSystemVault implements quarantine.Vault interface
var _ quarantine.Vault = (*FileSystemVault)(nil)
