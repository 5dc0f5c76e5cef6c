package quarantine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func rec(id string, at time.Time) *Record {
	return &Record{FileID: id, FileHash: id, QuarantineTime: NewTimestamp(at)}
}

func ids(recs []*Record) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = r.FileID
	}
	return strings.Join(parts, ",")
}

func TestIndex_InsertionOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := NewIndex()
	ix.Put(rec("c", base))
	ix.Put(rec("a", base))
	ix.Put(rec("b", base))

	if got := ids(ix.Records()); got != "c,a,b" {
		t.Errorf("Records() = %s, want c,a,b", got)
	}

	ix.Remove("a")
	ix.Remove("missing")
	if got := ids(ix.Records()); got != "c,b" {
		t.Errorf("Records() after Remove = %s, want c,b", got)
	}

	// Replacing keeps the original position.
	ix.Put(rec("c", base.Add(time.Hour)))
	if got := ids(ix.Records()); got != "c,b" {
		t.Errorf("Records() after replace = %s, want c,b", got)
	}
	if ix.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ix.Len())
	}
}

func TestIndex_Clone(t *testing.T) {
	ix := NewIndex()
	ix.Put(rec("a", time.Now()))

	c := ix.Clone()
	c.Put(rec("b", time.Now()))
	ix.Remove("a")

	if ix.Len() != 0 {
		t.Errorf("original Len() = %d, want 0", ix.Len())
	}
	if got := ids(c.Records()); got != "a,b" {
		t.Errorf("clone Records() = %s, want a,b", got)
	}
}

func TestIndex_FindByHash(t *testing.T) {
	ix := NewIndex()
	ix.Put(&Record{FileID: "1", FileHash: "aaaa"})
	ix.Put(&Record{FileID: "2", FileHash: "bbbb"})
	ix.Put(&Record{FileID: "3", FileHash: "aaaa"})

	if got := ids(ix.FindByHash("aaaa")); got != "1,3" {
		t.Errorf("FindByHash() = %s, want 1,3", got)
	}
	if got := ix.FindByHash("cccc"); len(got) != 0 {
		t.Errorf("FindByHash(miss) = %v, want none", got)
	}
}

func TestEncodeDecodeIndex(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := NewIndex()
	ix.Put(rec("late", base.Add(time.Hour)))
	ix.Put(rec("early-b", base))
	ix.Put(rec("early-a", base))

	var buf bytes.Buffer
	if err := EncodeIndex(&buf, ix); err != nil {
		t.Fatalf("EncodeIndex() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"total_quarantined": 3`) {
		t.Errorf("encoded index lacks total_quarantined:\n%s", buf.String())
	}

	got, err := DecodeIndex(&buf)
	if err != nil {
		t.Fatalf("DecodeIndex() error = %v", err)
	}
	// Decoding orders by quarantine time, ties by id.
	if order := ids(got.Records()); order != "early-a,early-b,late" {
		t.Errorf("decoded order = %s", order)
	}
}

func TestDecodeIndex_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind error
	}{
		{"not json", `{`, nil},
		{"null record", `{"quarantined_files": {"x": null}}`, ErrConsistency},
		{"key mismatch", `{"quarantined_files": {"x": {"file_id": "y"}}}`, ErrConsistency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIndex(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("DecodeIndex() expected error")
			}
			if tt.wantKind != nil && !errors.Is(err, tt.wantKind) {
				t.Errorf("DecodeIndex() error = %v, want %v", err, tt.wantKind)
			}
		})
	}
}

func TestDecodeIndex_EmptyDocument(t *testing.T) {
	ix, err := DecodeIndex(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("DecodeIndex() error = %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
}
