package fs

import "testing"

func TestNewExcludeMatcher(t *testing.T) {
	t.Run("skips blank entries and comments", func(t *testing.T) {
		t.Parallel()
		m := NewExcludeMatcher([]string{"", "  ", "# comment", "*.iso"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.iso" {
			t.Errorf("expected *.iso, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies path vs basename patterns", func(t *testing.T) {
		t.Parallel()
		m := NewExcludeMatcher([]string{"*.iso", "/mnt/backup/*"})
		if m.patterns[0].matchPath {
			t.Error("*.iso should not be a path pattern")
		}
		if !m.patterns[1].matchPath {
			t.Error("/mnt/backup/* should be a path pattern")
		}
	})
}

func TestExcludeMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"no patterns", nil, "/home/u/a.exe", false},
		{"basename glob", []string{"*.iso"}, "/home/u/dl/image.iso", true},
		{"basename glob miss", []string{"*.iso"}, "/home/u/dl/image.img", false},
		{"exact basename", []string{"eicar.com"}, "/tmp/test/eicar.com", true},
		{"path glob", []string{"/mnt/backup/*"}, "/mnt/backup/archive.zip", true},
		{"path glob does not cross directories", []string{"/mnt/backup/*"}, "/mnt/backup/2024/archive.zip", false},
		{"path is cleaned", []string{"/mnt/backup/*"}, "/mnt/backup/../backup/a.zip", true},
		{"bad pattern is skipped", []string{"[", "*.zip"}, "/x/a.zip", true},
		{"bad pattern alone never matches", []string{"["}, "/x/[", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewExcludeMatcher(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
