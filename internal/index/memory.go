package index

import (
	"bytes"
	"sync"

	"qv-go/internal/quarantine"
)

// MemoryIndexStore keeps the encoded index in memory. It round-trips through
// the same JSON encoding as JSONIndexStore, so tests exercise the real
// serialization.
type MemoryIndexStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryIndexStore creates an empty in-memory index store.
func NewMemoryIndexStore() *MemoryIndexStore {
	return &MemoryIndexStore{}
}

func (s *MemoryIndexStore) Load() (*quarantine.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return quarantine.NewIndex(), nil
	}
	return quarantine.DecodeIndex(bytes.NewReader(s.data))
}

func (s *MemoryIndexStore) Save(ix *quarantine.Index) error {
	var buf bytes.Buffer
	if err := quarantine.EncodeIndex(&buf, ix); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = buf.Bytes()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryIndexStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Compile-time check that MemoryIndexStore implements quarantine.IndexStore interface
var _ quarantine.IndexStore = (*MemoryIndexStore)(nil)
