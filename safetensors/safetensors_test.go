package safetensors

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestWriteReadRoundTrip(t *testing.T) {
	sa := []uint32{5, 3, 1, 0, 4, 2}
	meta := Metadata{
		InputFilename: "corpus.jsonl.zstd",
		Tokenized:     false,
		RunID:         "test-run",
	}

	var buf bytes.Buffer
	if err := WriteSuffixArray(&buf, sa, meta, zstd.SpeedDefault); err != nil {
		t.Fatalf("WriteSuffixArray: %v", err)
	}

	got, err := ReadSuffixArray(&buf)
	if err != nil {
		t.Fatalf("ReadSuffixArray: %v", err)
	}
	if len(got.SuffixArray) != len(sa) {
		t.Fatalf("got %d elements, want %d", len(got.SuffixArray), len(sa))
	}
	for i := range sa {
		if got.SuffixArray[i] != sa[i] {
			t.Errorf("SuffixArray[%d] = %d, want %d", i, got.SuffixArray[i], sa[i])
		}
	}
	if got.Metadata["input_filename"] != "corpus.jsonl.zstd" {
		t.Errorf("input_filename = %q", got.Metadata["input_filename"])
	}
	if got.Metadata["compression"] != "zstd" {
		t.Errorf("compression = %q, want zstd", got.Metadata["compression"])
	}
	if got.Metadata["tokenized"] != "false" {
		t.Errorf("tokenized = %q, want false", got.Metadata["tokenized"])
	}
	if _, present := got.Metadata["use_codepoint"]; present {
		t.Error("use_codepoint must be absent when tokenized=false")
	}
}

func TestWriteReadTokenizedMetadata(t *testing.T) {
	sa := []uint32{0, 1, 2}
	meta := Metadata{
		InputFilename: "tokens.jsonl.zstd",
		Tokenized:     true,
		UseCodepoint:  true,
		VocabFilename: "vocab.json",
		RunID:         "run-2",
	}

	var buf bytes.Buffer
	if err := WriteSuffixArray(&buf, sa, meta, zstd.SpeedDefault); err != nil {
		t.Fatalf("WriteSuffixArray: %v", err)
	}
	got, err := ReadSuffixArray(&buf)
	if err != nil {
		t.Fatalf("ReadSuffixArray: %v", err)
	}
	if got.Metadata["tokenized"] != "true" {
		t.Errorf("tokenized = %q, want true", got.Metadata["tokenized"])
	}
	if got.Metadata["use_codepoint"] != "true" {
		t.Errorf("use_codepoint = %q, want true", got.Metadata["use_codepoint"])
	}
	if got.Metadata["vocab_filename"] != "vocab.json" {
		t.Errorf("vocab_filename = %q, want vocab.json", got.Metadata["vocab_filename"])
	}
}
