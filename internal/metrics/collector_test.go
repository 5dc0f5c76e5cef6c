package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"qv-go/internal/quarantine"
)

type fakeSource struct {
	stats   quarantine.Statistics
	records []quarantine.Record
}

func (f *fakeSource) Stats() quarantine.Statistics { return f.stats }
func (f *fakeSource) List() []quarantine.Record    { return f.records }

func populatedSource() *fakeSource {
	oldest := time.Unix(1700000000, 0)
	newest := time.Unix(1705314600, 0)
	return &fakeSource{
		stats: quarantine.Statistics{
			TotalQuarantined: 3,
			TotalSize:        4096,
			ThreatTypes:      []string{"Eicar", "Win.Trojan.Agent"},
			OldestFile:       &oldest,
			NewestFile:       &newest,
		},
		records: []quarantine.Record{
			{FileID: "a", ThreatName: "Eicar"},
			{FileID: "b", ThreatName: "Eicar"},
			{FileID: "c", ThreatName: "Win.Trojan.Agent"},
		},
	}
}

func TestCollector_Populated(t *testing.T) {
	c := NewCollector(populatedSource())

	if n := testutil.CollectAndCount(c); n != 7 {
		t.Errorf("CollectAndCount() = %d, want 7", n)
	}

	expected := `
# HELP qv_quarantined_files Number of files currently held in the quarantine vault.
# TYPE qv_quarantined_files gauge
qv_quarantined_files 3
# HELP qv_quarantined_bytes Total size of quarantined files in bytes.
# TYPE qv_quarantined_bytes gauge
qv_quarantined_bytes 4096
# HELP qv_quarantined_files_by_threat Number of quarantined files per threat name.
# TYPE qv_quarantined_files_by_threat gauge
qv_quarantined_files_by_threat{threat="Eicar"} 2
qv_quarantined_files_by_threat{threat="Win.Trojan.Agent"} 1
# HELP qv_oldest_quarantine_timestamp_seconds Unix time of the oldest quarantine still held.
# TYPE qv_oldest_quarantine_timestamp_seconds gauge
qv_oldest_quarantine_timestamp_seconds 1.7e+09
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"qv_quarantined_files", "qv_quarantined_bytes", "qv_quarantined_files_by_threat",
		"qv_oldest_quarantine_timestamp_seconds")
	if err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestCollector_Empty(t *testing.T) {
	c := NewCollector(&fakeSource{stats: quarantine.Statistics{ThreatTypes: []string{}}})

	if n := testutil.CollectAndCount(c); n != 3 {
		t.Errorf("CollectAndCount() = %d, want 3", n)
	}
	if n := testutil.CollectAndCount(c, "qv_oldest_quarantine_timestamp_seconds"); n != 0 {
		t.Errorf("oldest timestamp emitted for empty vault")
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qv.prom")

	if err := WriteTextfile(path, populatedSource()); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"qv_quarantined_files 3", `qv_quarantined_files_by_threat{threat="Eicar"} 2`, "qv_threat_types 2"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}

	if err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "qv.prom"), populatedSource()); err == nil {
		t.Error("WriteTextfile() expected error for missing directory")
	}
}
