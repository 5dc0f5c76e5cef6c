package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) with content and returns path.
func WriteFile(t *testing.T, path string, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path, failing the test if it is unreadable.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// Exists reports whether path exists, without following symlinks.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
