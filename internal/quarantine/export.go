package quarantine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"qv-go/internal/atomicfile"
)

// Snapshot is the export document: statistics plus every record.
type Snapshot struct {
	ExportTime time.Time  `json:"export_time"`
	Statistics Statistics `json:"statistics"`
	Files      []Record   `json:"files"`
}

// Snapshot captures statistics and records under a single lock acquisition
// so the two always agree.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Snapshot{
		ExportTime: s.clock.Now(),
		Statistics: s.statsLocked(),
		Files:      copyRecords(s.index.Records()),
	}
}

// WriteSnapshot writes the current snapshot to w as indented JSON.
func (s *Store) WriteSnapshot(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Export writes the current snapshot to path. Readers never see a partial
// export.
func (s *Store) Export(path string) error {
	if err := atomicfile.Write(path, 0600, s.WriteSnapshot); err != nil {
		return fmt.Errorf("%w: writing export %s: %w", ErrIO, path, err)
	}
	s.logger.Info("index exported", "path", path)
	return nil
}
