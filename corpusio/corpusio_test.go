package corpusio

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.zstd")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	lines := [][]byte{[]byte(`{"text":"hello"}`), []byte(`{"text":"world"}`)}
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			t.Fatalf("WriteLine: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var got [][]byte
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		got = append(got, cp)
	}

	if len(got) != len(lines) {
		t.Fatalf("got %d lines, want %d", len(got), len(lines))
	}
	for i := range lines {
		if string(got[i]) != string(lines[i]) {
			t.Errorf("line %d = %q, want %q", i, got[i], lines[i])
		}
	}
}

func TestEnumerateFilesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	names := []string{"b.zstd", "a.zst", "c.txt", "d.zstd"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got, err := EnumerateFiles(dir, nil)
	if err != nil {
		t.Fatalf("EnumerateFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.zst"),
		filepath.Join(dir, "b.zstd"),
		filepath.Join(dir, "d.zstd"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
