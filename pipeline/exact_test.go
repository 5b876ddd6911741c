package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/faithful-dedup/corpus-dedup/safetensors"
	"github.com/faithful-dedup/corpus-dedup/suffixarray"
)

func TestRunExactBuildsSuffixArray(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	path := writeInputFile(t, dir, "c.zstd", []string{"banana", "mississippi"})

	cfg := ExactConfig{ZstdLevel: zstd.SpeedDefault, RunID: "fixed-run"}
	if err := RunExact(context.Background(), []string{path}, outDir, cfg); err != nil {
		t.Fatalf("RunExact: %v", err)
	}

	outPath := filepath.Join(outDir, "c.safetensors")
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	defer f.Close()

	container, err := safetensors.ReadSuffixArray(f)
	if err != nil {
		t.Fatalf("ReadSuffixArray: %v", err)
	}

	want, err := suffixarray.BuildBytes([]byte("banana\x03mississippi"))
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	if len(container.SuffixArray) != len(want) {
		t.Fatalf("got %d elements, want %d", len(container.SuffixArray), len(want))
	}
	for i := range want {
		if container.SuffixArray[i] != want[i] {
			t.Errorf("SuffixArray[%d] = %d, want %d", i, container.SuffixArray[i], want[i])
		}
	}
	if container.Metadata["tokenized"] != "false" {
		t.Errorf("tokenized = %q, want false", container.Metadata["tokenized"])
	}
}

func TestRunExactRequiresVocabWhenTokenized(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	path := writeInputFile(t, dir, "d.zstd", []string{"x"})

	cfg := ExactConfig{Tokenize: true}
	err := RunExact(context.Background(), []string{path}, outDir, cfg)
	if err == nil {
		t.Fatal("expected an error when --tokenize is set without --vocab")
	}
}
