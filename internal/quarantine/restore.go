package quarantine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RestoreDirName is the directory created next to the original location
// when the original path is occupied.
const RestoreDirName = "restored_from_quarantine"

// maxRestoreCandidates bounds the search for a free restore destination.
const maxRestoreCandidates = 10000

// Restore moves a quarantined file back out of the vault and forgets it.
// The original path is used when free; otherwise the file lands in
// RestoreDirName beside it, with a numeric suffix if needed. Existing files
// are never overwritten. Returns the path the file was restored to.
func (s *Store) Restore(fileID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.restoreLocked(fileID)
}

// RestoreAll restores every quarantined file, continuing past failures.
// Returns the number restored and a *BatchError describing any failures.
func (s *Store) RestoreAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch BatchError
	restored := 0
	for _, rec := range s.index.Records() {
		if _, err := s.restoreLocked(rec.FileID); err != nil {
			s.logger.Warn("restore failed", "file_id", rec.FileID, "error", err)
			batch.Add(rec.FileID, err)
			continue
		}
		restored++
	}
	return restored, batch.Err()
}

func (s *Store) restoreLocked(fileID string) (string, error) {
	rec, ok := s.index.Get(fileID)
	if !ok {
		return "", fmt.Errorf("%w: file id %s", ErrNotFound, fileID)
	}

	if _, err := s.vault.Stat(rec.QuarantinedPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s is indexed but %s is missing", ErrConsistency, fileID, rec.QuarantinedPath)
		}
		return "", fmt.Errorf("%w: checking %s: %w", ErrIO, rec.QuarantinedPath, err)
	}

	dest, createdDir, err := s.release(rec)
	if err != nil {
		return "", err
	}

	previous := s.index.Clone()
	s.index.Remove(fileID)
	if err := s.persist(); err != nil {
		s.index = previous
		if _, rbErr := s.vault.Admit(dest, filepath.Base(rec.QuarantinedPath)); rbErr != nil {
			s.logger.Error("could not return file to vault after failed index save",
				"file_id", fileID, "restored_path", dest, "error", rbErr)
			return "", fmt.Errorf("%w: saving index: %w (file left at %s)", ErrIO, err, dest)
		}
		removeCreatedDirs(filepath.Dir(dest), createdDir)
		return "", fmt.Errorf("%w: saving index: %w", ErrIO, err)
	}

	s.logger.Info("file restored", "file_id", fileID, "path", dest)
	s.recordEvent(OpRestore, rec, dest)
	return dest, nil
}

// release moves the vaulted file to the first free restore candidate. It
// also returns the topmost directory it had to create on the way, or "" if
// none, so a rollback can remove it again.
func (s *Store) release(rec *Record) (string, string, error) {
	for n := 0; n < maxRestoreCandidates; n++ {
		dest := restoreCandidate(rec.OriginalPath, n)
		dir := filepath.Dir(dest)
		if n == 1 {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				return "", "", fmt.Errorf("%w: cannot restore %s: %s is taken by a file that is not a directory",
					ErrIO, rec.FileID, dir)
			}
		}

		created := firstMissingDir(dir)
		err := s.vault.Release(rec.QuarantinedPath, dest)
		if err == nil {
			return dest, created, nil
		}
		removeCreatedDirs(dir, created)
		if errors.Is(err, fs.ErrExist) {
			s.logger.Debug("restore destination taken", "file_id", rec.FileID, "path", dest)
			continue
		}
		return "", "", fmt.Errorf("%w: restoring %s to %s: %w", ErrIO, rec.FileID, dest, err)
	}
	return "", "", fmt.Errorf("%w: no free restore destination for %s", ErrIO, rec.FileID)
}

// firstMissingDir returns the topmost ancestor of dir (dir included) that
// does not exist yet, or "" when dir exists.
func firstMissingDir(dir string) string {
	top := ""
	for d := dir; ; {
		if _, err := os.Lstat(d); !errors.Is(err, fs.ErrNotExist) {
			return top
		}
		top = d
		parent := filepath.Dir(d)
		if parent == d {
			return top
		}
		d = parent
	}
}

// removeCreatedDirs removes dir and its empty parents up to and including
// top. It stops at the first directory that is not empty.
func removeCreatedDirs(dir, top string) {
	if top == "" {
		return
	}
	for d := dir; ; d = filepath.Dir(d) {
		if os.Remove(d) != nil || d == top {
			return
		}
	}
}

// restoreCandidate returns the n-th destination to try for originalPath:
// the path itself, then <dir>/restored_from_quarantine/<name>, then
// <dir>/restored_from_quarantine/<stem>_<n-1><ext>.
func restoreCandidate(originalPath string, n int) string {
	if n == 0 {
		return originalPath
	}

	dir := filepath.Join(filepath.Dir(originalPath), RestoreDirName)
	name := filepath.Base(originalPath)
	if n == 1 {
		return filepath.Join(dir, name)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n-1, ext))
}
