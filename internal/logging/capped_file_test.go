package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCappedFileRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.log")
	w, err := openCappedFile(path, 1)
	if err != nil {
		t.Fatalf("openCappedFile() error = %v", err)
	}
	defer w.Close()

	first := bytes.Repeat([]byte("a"), 768<<10)
	second := bytes.Repeat([]byte("b"), 512<<10)
	if _, err := w.Write(first); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write(second); err != nil {
		t.Fatalf("write: %v", err)
	}

	cur, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if !bytes.Equal(cur, second) {
		t.Fatalf("current log has %d bytes, want only the second write", len(cur))
	}
	prev, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read rotated: %v", err)
	}
	if !bytes.Equal(prev, first) {
		t.Fatalf("rotated log has %d bytes, want the first write", len(prev))
	}
}

func TestCappedFileAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := openCappedFile(path, 0)
	if err != nil {
		t.Fatalf("openCappedFile() error = %v", err)
	}
	if w.maxBytes != defaultMaxMB<<20 {
		t.Fatalf("maxBytes = %d", w.maxBytes)
	}
	if _, err := w.Write([]byte("new\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := w.Write([]byte("again\n")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	_ = w.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "old\nnew\nagain\n" {
		t.Fatalf("log = %q", raw)
	}
}
