package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"qv-go/internal/quarantine"
)

// HashLength is the number of hex characters kept from the SHA-256 digest.
const HashLength = 16

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns a Path object.
// Symlinks are not followed: quarantining a link would isolate the link,
// not the infected target.
func (m *OSFilesystemManager) Resolve(rawPath string) (*quarantine.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving absolute path: %w", quarantine.ErrInvalidInput, err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", quarantine.ErrNotFound, absPath)
		}
		return nil, fmt.Errorf("%w: stat path: %w", quarantine.ErrIO, err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return nil, fmt.Errorf("%w: symlinks not supported: %s", quarantine.ErrInvalidInput, absPath)
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("%w: device files not supported: %s", quarantine.ErrInvalidInput, absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("%w: named pipes not supported: %s", quarantine.ErrInvalidInput, absPath)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("%w: sockets not supported: %s", quarantine.ErrInvalidInput, absPath)
	case !mode.IsRegular() && !mode.IsDir():
		return nil, fmt.Errorf("%w: not a regular file: %s", quarantine.ErrInvalidInput, absPath)
	}

	return quarantine.NewPath(absPath, info.IsDir(), info), nil
}

// Hash streams the file through SHA-256 and returns the first HashLength
// hex characters together with the byte count.
func (m *OSFilesystemManager) Hash(path *quarantine.Path) (string, int64, error) {
	if path.IsDir() {
		return "", 0, fmt.Errorf("cannot hash directory: %s", path.String())
	}

	f, err := os.Open(path.String())
	if err != nil {
		return "", 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil))[:HashLength], n, nil
}

// Compile-time check that OSFilesystemManager implements quarantine.FilesystemManager interface
var _ quarantine.FilesystemManager = (*OSFilesystemManager)(nil)
