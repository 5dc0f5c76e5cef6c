package quarantine

import (
	"sort"
	"time"
)

// Statistics is an aggregate view of the current index.
type Statistics struct {
	TotalQuarantined int        `json:"total_quarantined"`
	TotalSize        int64      `json:"total_size"`
	ThreatTypes      []string   `json:"threat_types"`
	OldestFile       *time.Time `json:"oldest_file"`
	NewestFile       *time.Time `json:"newest_file"`
}

// Stats computes statistics from the current index. Records without a
// stored size (older index files) are sized from the vault.
func (s *Store) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statsLocked()
}

func (s *Store) statsLocked() Statistics {
	stats := Statistics{ThreatTypes: []string{}}
	threats := make(map[string]struct{})

	for _, rec := range s.index.Records() {
		stats.TotalQuarantined++
		stats.TotalSize += s.recordSize(rec)

		if _, seen := threats[rec.ThreatName]; !seen {
			threats[rec.ThreatName] = struct{}{}
			stats.ThreatTypes = append(stats.ThreatTypes, rec.ThreatName)
		}

		t := rec.QuarantineTime.Time
		if stats.OldestFile == nil || t.Before(*stats.OldestFile) {
			stats.OldestFile = &t
		}
		if stats.NewestFile == nil || t.After(*stats.NewestFile) {
			stats.NewestFile = &t
		}
	}

	sort.Strings(stats.ThreatTypes)
	return stats
}

func (s *Store) recordSize(rec *Record) int64 {
	if rec.FileSize > 0 {
		return rec.FileSize
	}
	info, err := s.vault.Stat(rec.QuarantinedPath)
	if err != nil {
		s.logger.Debug("sizing vault file failed", "file_id", rec.FileID, "error", err)
		return 0
	}
	return info.Size()
}
