package quarantine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// Orphan is a vault file that no record points at.
type Orphan struct {
	Name string
	Path string
	// FileID is recovered from the vault filename, or empty when the name
	// does not follow the vault naming scheme.
	FileID string
}

// VerifyReport lists every disagreement between the index and the vault.
type VerifyReport struct {
	Missing []Record
	Orphans []Orphan
}

// OK reports whether the index and the vault agree.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0
}

// Err returns an error matching ErrConsistency when the report is not OK.
func (r *VerifyReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %d missing vault file(s), %d orphaned vault file(s)", ErrConsistency, len(r.Missing), len(r.Orphans))
}

// Verify compares the index against the vault contents. It changes nothing.
func (s *Store) Verify() (*VerifyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &VerifyReport{}
	indexed := make(map[string]struct{}, s.index.Len())

	for _, rec := range s.index.Records() {
		indexed[filepath.Base(rec.QuarantinedPath)] = struct{}{}
		if _, err := s.vault.Stat(rec.QuarantinedPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: checking %s: %w", ErrIO, rec.QuarantinedPath, err)
			}
			report.Missing = append(report.Missing, *rec)
		}
	}

	names, err := s.vault.Names()
	if err != nil {
		return nil, fmt.Errorf("%w: listing vault: %w", ErrIO, err)
	}
	for _, name := range names {
		if _, ok := indexed[name]; ok {
			continue
		}
		orphan := Orphan{Name: name, Path: filepath.Join(s.vault.Root(), name)}
		if id, _, err := ParseVaultName(name); err == nil {
			orphan.FileID = id
		}
		report.Orphans = append(report.Orphans, orphan)
	}

	return report, nil
}
