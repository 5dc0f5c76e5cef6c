package index

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"qv-go/internal/atomicfile"
	"qv-go/internal/quarantine"
)

// JSONIndexStore keeps the index in a single JSON document on disk.
// Saves write a temp file beside the document, sync it, and rename it over
// the old one, so a crash leaves either the old or the new index.
type JSONIndexStore struct {
	path string
}

// NewJSONIndexStore creates a store for the document at path, creating its
// parent directory if needed.
func NewJSONIndexStore(path string) (*JSONIndexStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return &JSONIndexStore{path: path}, nil
}

// Path returns the location of the index document.
func (s *JSONIndexStore) Path() string {
	return s.path
}

// Load reads the index. A missing document is an empty index.
func (s *JSONIndexStore) Load() (*quarantine.Index, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return quarantine.NewIndex(), nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	ix, err := quarantine.DecodeIndex(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return ix, nil
}

// Save atomically replaces the index document.
func (s *JSONIndexStore) Save(ix *quarantine.Index) error {
	err := atomicfile.Write(s.path, 0600, func(w io.Writer) error {
		return quarantine.EncodeIndex(w, ix)
	})
	if err != nil {
		return fmt.Errorf("saving index %s: %w", s.path, err)
	}
	return nil
}

// Compile-time check that JSONIndexStore implements quarantine.IndexStore interface
var _ quarantine.IndexStore = (*JSONIndexStore)(nil)
