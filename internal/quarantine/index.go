package quarantine

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Index is the in-memory collection of records keyed by file id.
// Iteration follows insertion order. Index is not safe for concurrent use;
// Store serializes access to it.
type Index struct {
	records map[string]*Record
	order   []string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{records: make(map[string]*Record)}
}

// Len returns the number of records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Get returns the record for fileID.
func (ix *Index) Get(fileID string) (*Record, bool) {
	r, ok := ix.records[fileID]
	return r, ok
}

// Put inserts r, replacing any record with the same file id.
func (ix *Index) Put(r *Record) {
	if _, exists := ix.records[r.FileID]; !exists {
		ix.order = append(ix.order, r.FileID)
	}
	ix.records[r.FileID] = r
}

// Remove deletes the record for fileID, if present.
func (ix *Index) Remove(fileID string) {
	if _, ok := ix.records[fileID]; !ok {
		return
	}
	delete(ix.records, fileID)
	for i, id := range ix.order {
		if id == fileID {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
}

// Records returns the records in insertion order.
func (ix *Index) Records() []*Record {
	out := make([]*Record, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.records[id])
	}
	return out
}

// Clone returns a copy of ix that shares no state with it. Records are
// immutable, so the pointers are shared.
func (ix *Index) Clone() *Index {
	c := &Index{
		records: make(map[string]*Record, len(ix.records)),
		order:   make([]string, len(ix.order)),
	}
	for id, r := range ix.records {
		c.records[id] = r
	}
	copy(c.order, ix.order)
	return c
}

// FindByHash returns the records whose content hash equals hash, in
// insertion order.
func (ix *Index) FindByHash(hash string) []*Record {
	var out []*Record
	for _, id := range ix.order {
		if r := ix.records[id]; r.FileHash == hash {
			out = append(out, r)
		}
	}
	return out
}

// indexDocument is the persisted layout. TotalQuarantined is derived on
// write and ignored on read.
type indexDocument struct {
	QuarantinedFiles map[string]*Record `json:"quarantined_files"`
	TotalQuarantined int                `json:"total_quarantined"`
}

// EncodeIndex writes ix as an indented JSON document.
func EncodeIndex(w io.Writer, ix *Index) error {
	doc := indexDocument{
		QuarantinedFiles: ix.records,
		TotalQuarantined: len(ix.records),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// DecodeIndex reads an index document. Records missing a file_id (older
// schema) take it from their key. Records are ordered by quarantine time.
func DecodeIndex(r io.Reader) (*Index, error) {
	var doc indexDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	records := make([]*Record, 0, len(doc.QuarantinedFiles))
	for key, rec := range doc.QuarantinedFiles {
		if rec == nil {
			return nil, fmt.Errorf("%w: index entry %q is empty", ErrConsistency, key)
		}
		if rec.FileID == "" {
			rec.FileID = key
		}
		if rec.FileID != key {
			return nil, fmt.Errorf("%w: index key %q holds record %q", ErrConsistency, key, rec.FileID)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.QuarantineTime.Equal(b.QuarantineTime.Time) {
			return a.QuarantineTime.Before(b.QuarantineTime.Time)
		}
		return a.FileID < b.FileID
	})

	ix := NewIndex()
	for _, rec := range records {
		ix.Put(rec)
	}
	return ix, nil
}
