package quarantine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// maxAllocAttempts bounds the search for a free file id and vault name.
const maxAllocAttempts = 1000

// Store owns the vault and the metadata index and coordinates every
// quarantine operation between them.
//
// A single mutex serializes whole operations (load, mutate, persist) within
// one process. Nothing prevents a second process from opening the same vault;
// running two stores against one vault is unsupported.
type Store struct {
	mu sync.Mutex

	vault      Vault
	indexStore IndexStore
	fsmgr      FilesystemManager
	journal    Journal
	logger     Logger
	clock      Clock
	idgen      IDGenerator

	index *Index
}

// NewStore creates a Store and loads the persisted index.
func NewStore(vault Vault, indexStore IndexStore, fsmgr FilesystemManager, journal Journal, logger Logger, clock Clock, idgen IDGenerator) (*Store, error) {
	index, err := indexStore.Load()
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	if journal == nil {
		journal = NopJournal{}
	}

	return &Store{
		vault:      vault,
		indexStore: indexStore,
		fsmgr:      fsmgr,
		journal:    journal,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		index:      index,
	}, nil
}

// Quarantine moves the file at rawPath into the vault and records it.
// A zero scanTime means the scan happened now. The returned file id is the
// only handle to the quarantined file from then on.
func (s *Store) Quarantine(rawPath string, threatName string, scanTime time.Time) (string, error) {
	if strings.TrimSpace(rawPath) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidInput)
	}

	src, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", rawPath, err)
	}
	if src.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidInput, src)
	}
	if s.vault.Contains(src.String()) {
		return "", fmt.Errorf("%w: %s is already inside the vault", ErrInvalidInput, src)
	}

	hash, size, err := s.fsmgr.Hash(src)
	if err != nil {
		return "", fmt.Errorf("%w: hashing %s: %w", ErrIO, src, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if scanTime.IsZero() {
		scanTime = now
	}

	if dups := s.index.FindByHash(hash); len(dups) > 0 {
		s.logger.Warn("content already quarantined", "path", src.String(), "hash", hash, "existing_file_id", dups[0].FileID)
	}

	basename := filepath.Base(src.String())
	rec, err := s.admit(src.String(), basename, hash, now)
	if err != nil {
		return "", err
	}
	rec.ThreatName = threatName
	rec.ScanTime = NewTimestamp(scanTime)
	rec.FileSize = size

	s.index.Put(rec)
	if err := s.persist(); err != nil {
		s.index.Remove(rec.FileID)
		if rbErr := s.vault.Release(rec.QuarantinedPath, rec.OriginalPath); rbErr != nil {
			s.logger.Error("could not move file back after failed index save",
				"file_id", rec.FileID, "vault_path", rec.QuarantinedPath, "error", rbErr)
			return "", fmt.Errorf("%w: saving index: %w (file left at %s)", ErrIO, err, rec.QuarantinedPath)
		}
		return "", fmt.Errorf("%w: saving index: %w", ErrIO, err)
	}

	s.logger.Info("file quarantined", "file_id", rec.FileID, "path", rec.OriginalPath, "threat", threatName, "size", size)
	s.recordEvent(OpQuarantine, rec, "")
	return rec.FileID, nil
}

// admit finds a free file id and vault name and moves srcPath into the vault.
// Collisions move the quarantine instant forward one second at a time so the
// id stays derivable from the recorded quarantine time.
func (s *Store) admit(srcPath, basename, hash string, now time.Time) (*Record, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		at := now.Add(time.Duration(attempt) * time.Second)
		fileID := BuildFileID(hash, at)
		if _, taken := s.index.Get(fileID); taken {
			continue
		}

		vaultPath, err := s.vault.Admit(srcPath, BuildVaultName(hash, at, basename))
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s disappeared before it could be moved: %w", ErrNotFound, srcPath, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: moving %s into vault: %w", ErrIO, srcPath, err)
		}

		return &Record{
			FileID:           fileID,
			OriginalPath:     srcPath,
			QuarantinedPath:  vaultPath,
			OriginalFilename: basename,
			QuarantineTime:   NewTimestamp(at),
			FileHash:         hash,
		}, nil
	}
	return nil, fmt.Errorf("%w: no free vault name for %s after %d attempts", ErrIO, srcPath, maxAllocAttempts)
}

// Get returns a copy of the record for fileID.
func (s *Store) Get(fileID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index.Get(fileID)
	if !ok {
		return Record{}, fmt.Errorf("%w: file id %s", ErrNotFound, fileID)
	}
	return *rec, nil
}

// FindByHash returns every record holding content with the given hash.
func (s *Store) FindByHash(hash string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyRecords(s.index.FindByHash(strings.ToLower(hash)))
}

// List returns all records in insertion order.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyRecords(s.index.Records())
}

func copyRecords(recs []*Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	return out
}

func (s *Store) persist() error {
	return s.indexStore.Save(s.index)
}

func (s *Store) recordEvent(op string, rec *Record, detail string) {
	event := &Event{
		ID:           s.idgen.New(),
		Operation:    op,
		FileID:       rec.FileID,
		ThreatName:   rec.ThreatName,
		OriginalPath: rec.OriginalPath,
		Detail:       detail,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.journal.RecordEvent(event); err != nil {
		s.logger.Warn("recording journal event failed", "operation", op, "file_id", rec.FileID, "error", err)
	}
}
