package quarantine

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

const day = 24 * time.Hour

// Delete permanently removes a quarantined file and its record.
// The record is only dropped once the vault file is gone.
func (s *Store) Delete(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(fileID, "delete")
}

// DeleteAll permanently removes every quarantined file, continuing past
// failures. Returns the number removed and a *BatchError for any failures.
func (s *Store) DeleteAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteMatching("delete-all", func(*Record) bool { return true })
}

// Cleanup deletes every record quarantined at least olderThanDays days ago;
// a record exactly at the cutoff is deleted. Failures do not stop the batch.
// Returns the number of files actually removed and a *BatchError describing
// any failures.
func (s *Store) Cleanup(olderThanDays int) (int, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("%w: cleanup age must not be negative, got %d", ErrInvalidInput, olderThanDays)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-time.Duration(olderThanDays) * day)
	s.logger.Debug("cleanup", "cutoff", cutoff, "days", olderThanDays)

	return s.deleteMatching("cleanup", func(r *Record) bool {
		return !r.QuarantineTime.After(cutoff)
	})
}

func (s *Store) deleteMatching(reason string, match func(*Record) bool) (int, error) {
	var batch BatchError
	removed := 0
	for _, rec := range s.index.Records() {
		if !match(rec) {
			continue
		}
		if err := s.deleteLocked(rec.FileID, reason); err != nil {
			s.logger.Warn("delete failed", "file_id", rec.FileID, "reason", reason, "error", err)
			batch.Add(rec.FileID, err)
			continue
		}
		removed++
	}
	return removed, batch.Err()
}

func (s *Store) deleteLocked(fileID string, reason string) error {
	rec, ok := s.index.Get(fileID)
	if !ok {
		return fmt.Errorf("%w: file id %s", ErrNotFound, fileID)
	}

	if err := s.vault.Remove(rec.QuarantinedPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s is indexed but %s is missing", ErrConsistency, fileID, rec.QuarantinedPath)
		}
		return fmt.Errorf("%w: removing %s: %w", ErrIO, rec.QuarantinedPath, err)
	}

	// The content is gone, so the record goes too even if the save fails;
	// the next successful save brings the file back in line.
	s.index.Remove(fileID)
	if err := s.persist(); err != nil {
		return fmt.Errorf("%w: %s removed from vault but index not saved: %w", ErrIO, fileID, err)
	}

	s.logger.Info("file deleted", "file_id", fileID, "reason", reason)
	s.recordEvent(OpDelete, rec, reason)
	return nil
}
