package index

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qv-go/internal/quarantine"
)

func sampleRecord(id string, at time.Time) *quarantine.Record {
	return &quarantine.Record{
		FileID:           id,
		OriginalPath:     "/home/u/" + id,
		QuarantinedPath:  "/var/qv/quarantine/" + id,
		OriginalFilename: id,
		ThreatName:       "Eicar-Test-Signature",
		ScanTime:         quarantine.NewTimestamp(at.Add(-time.Minute)),
		QuarantineTime:   quarantine.NewTimestamp(at),
		FileSize:         68,
		FileHash:         "0123456789abcdef",
	}
}

func TestJSONIndexStore_LoadMissing(t *testing.T) {
	s, err := NewJSONIndexStore(filepath.Join(t.TempDir(), "sub", "index.json"))
	if err != nil {
		t.Fatalf("NewJSONIndexStore() error = %v", err)
	}

	ix, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
}

func TestJSONIndexStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	s, err := NewJSONIndexStore(path)
	if err != nil {
		t.Fatalf("NewJSONIndexStore() error = %v", err)
	}

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	ix := quarantine.NewIndex()
	ix.Put(sampleRecord("b", base))
	ix.Put(sampleRecord("a", base.Add(time.Hour)))

	if err := s.Save(ix); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("index is not JSON: %v", err)
	}
	if string(doc["total_quarantined"]) != "2" {
		t.Errorf("total_quarantined = %s, want 2", doc["total_quarantined"])
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	recs := got.Records()
	if len(recs) != 2 {
		t.Fatalf("len(Records()) = %d, want 2", len(recs))
	}
	if recs[0].FileID != "b" || recs[1].FileID != "a" {
		t.Errorf("order = [%s %s], want [b a]", recs[0].FileID, recs[1].FileID)
	}
	if !recs[0].QuarantineTime.Equal(base) {
		t.Errorf("QuarantineTime = %v, want %v", recs[0].QuarantineTime, base)
	}
	want := sampleRecord("a", base.Add(time.Hour))
	if recs[1].OriginalPath != want.OriginalPath || recs[1].ThreatName != want.ThreatName ||
		recs[1].FileSize != want.FileSize || recs[1].FileHash != want.FileHash ||
		!recs[1].ScanTime.Equal(want.ScanTime.Time) {
		t.Errorf("record changed across save/load: got %+v, want %+v", recs[1], want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("index dir has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestJSONIndexStore_LegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarantine_metadata.json")
	legacy := `{
  "quarantined_files": {
    "0123456789abcdef_20230301_120000": {
      "original_path": "/home/u/old.exe",
      "quarantined_path": "/var/qv/quarantine/20230301_120000_0123456789abcdef_old.exe",
      "original_filename": "old.exe",
      "threat_name": "Win.Trojan.Agent",
      "scan_time": "2023-03-01T11:59:58.123456",
      "quarantine_time": "2023-03-01T12:00:00.654321",
      "file_hash": "0123456789abcdef"
    }
  },
  "total_quarantined": 99
}`
	if err := os.WriteFile(path, []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	s, _ := NewJSONIndexStore(path)
	ix, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (total_quarantined must be ignored)", ix.Len())
	}

	rec, ok := ix.Get("0123456789abcdef_20230301_120000")
	if !ok {
		t.Fatal("record not keyed by its file id")
	}
	if rec.FileID != "0123456789abcdef_20230301_120000" {
		t.Errorf("FileID = %q, want key", rec.FileID)
	}
	if rec.FileSize != 0 {
		t.Errorf("FileSize = %d, want 0", rec.FileSize)
	}
	want := time.Date(2023, 3, 1, 12, 0, 0, 654321000, time.Local)
	if !rec.QuarantineTime.Equal(want) {
		t.Errorf("QuarantineTime = %v, want %v", rec.QuarantineTime, want)
	}
}

func TestJSONIndexStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s, _ := NewJSONIndexStore(path)
	if _, err := s.Load(); err == nil {
		t.Fatal("Load() expected error for corrupt index")
	}
}

func TestJSONIndexStore_MismatchedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	doc := `{"quarantined_files": {"x": {"file_id": "y"}}, "total_quarantined": 1}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	s, _ := NewJSONIndexStore(path)
	_, err := s.Load()
	if !errors.Is(err, quarantine.ErrConsistency) {
		t.Fatalf("Load() error = %v, want ErrConsistency", err)
	}
}

func TestJSONIndexStore_FailedSaveKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	s, _ := NewJSONIndexStore(path)

	ix := quarantine.NewIndex()
	ix.Put(sampleRecord("kept", time.Now()))
	if err := s.Save(ix); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	before, _ := os.ReadFile(path)

	// A non-empty directory where the rename target should be makes the
	// final rename fail after the temp file was fully written.
	blocked := filepath.Join(dir, "blocked.json")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0700); err != nil {
		t.Fatal(err)
	}
	bs, _ := NewJSONIndexStore(blocked)
	if err := bs.Save(ix); err == nil {
		t.Fatal("Save() expected error when target is a directory")
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("unrelated index changed")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}
