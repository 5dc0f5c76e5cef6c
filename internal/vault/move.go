package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// moveFile moves src to dst and never replaces an existing dst; a taken
// destination yields an error matching fs.ErrExist. Within one filesystem
// the move is a single rename. Across filesystems the content is copied to
// a temp file beside dst, synced, renamed into place, and only then is src
// removed.
func moveFile(src, dst string) error {
	err := renameNoReplace(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}
	return copyAcross(src, dst)
}

// renameIfAbsent is the portable fallback for renameNoReplace. It leaves a
// window between the check and the rename, which is acceptable because a
// vault has a single writer.
func renameIfAbsent(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking destination: %w", err)
	}
	return os.Rename(src, dst)
}

func copyAcross(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, in); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := renameNoReplace(tmpPath, dst); err != nil {
		return err
	}
	success = true

	if err := os.Remove(src); err != nil {
		// Keep exactly one copy: the source is still intact.
		os.Remove(dst)
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}
