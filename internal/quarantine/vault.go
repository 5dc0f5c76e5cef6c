package quarantine

import "io/fs"

// Vault is the directory that physically holds quarantined content.
// Implementations must never overwrite an existing file: moves into and out of
// the vault fail with an error matching fs.ErrExist when the destination is taken.
type Vault interface {
	// Root returns the absolute vault directory.
	Root() string

	// Admit moves the file at srcPath into the vault under name and returns
	// the absolute vault path. The move is an atomic rename where the
	// filesystem allows it; across devices the content is copied and synced
	// before the source is removed.
	Admit(srcPath string, name string) (string, error)

	// Release moves a vaulted file out to destPath, creating parent
	// directories as needed.
	Release(vaultPath string, destPath string) error

	// Remove permanently deletes a vaulted file.
	Remove(vaultPath string) error

	// Stat returns info for a vaulted file without following symlinks.
	Stat(vaultPath string) (fs.FileInfo, error)

	// Contains reports whether path lies inside the vault directory.
	Contains(path string) bool

	// Names lists the vaulted file names (temporary files excluded).
	Names() ([]string, error)

	// ValidateSetup verifies that the vault directory is usable.
	ValidateSetup() error
}
