package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, TempPrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestWrite(t *testing.T) {
	t.Run("creates file with permissions", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.json")

		if err := Write(path, 0600, writeString("new")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "new" {
			t.Errorf("content = %q, want %q", data, "new")
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
		assertNoTempFiles(t, dir)
	})

	t.Run("replaces existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := Write(path, 0644, writeString("new")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "new" {
			t.Errorf("content = %q, want %q", data, "new")
		}
	})

	t.Run("failed write keeps the old file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.json")
		if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
		boom := errors.New("encoder failed")

		err := Write(path, 0644, func(w io.Writer) error {
			io.WriteString(w, "partial")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Write() error = %v, want %v", err, boom)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "old" {
			t.Errorf("content = %q, want %q", data, "old")
		}
		assertNoTempFiles(t, dir)
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "out.json")
		if err := Write(path, 0644, writeString("x")); err == nil {
			t.Error("Write() expected error for missing directory")
		}
	})
}
