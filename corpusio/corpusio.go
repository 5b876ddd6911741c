// Package corpusio provides ZSTD-framed line-oriented I/O over corpus
// files, plus glob-based enumeration of an input directory, grounded on
// the pooled zstd encoder/decoder idiom in gsfa/linkedlog/compress.go.
package corpusio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/mostynb/zstdpool-freelist"
	"github.com/ryanuber/go-glob"
)

var decoderPool = zstdpool.NewDecoderPool()

var encoderPool = zstdpool.NewEncoderPool(
	zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
)

// DefaultPatterns are the glob patterns matched when enumerating an input
// directory: *.zstd and *.zst.
var DefaultPatterns = []string{"*.zstd", "*.zst"}

// EnumerateFiles lists files under dir whose base name matches any of
// patterns, sorted lexicographically so file-enumeration order (and
// therefore cross-file ordering in callers that rely on it) is stable
// across runs.
func EnumerateFiles(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("corpusio: read directory %q: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for _, pat := range patterns {
			if glob.Glob(pat, name) {
				out = append(out, filepath.Join(dir, name))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Reader streams newline-delimited records out of a ZSTD-framed file.
type Reader struct {
	f       *os.File
	dec     *zstd.Decoder
	scanner *bufio.Scanner
}

// OpenReader opens path and attaches a pooled zstd decoder to it.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpusio: open %q: %w", path, err)
	}
	dec, err := decoderPool.Get(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("corpusio: get zstd decoder: %w", err)
	}
	if err := dec.Reset(f); err != nil {
		decoderPool.Put(dec)
		f.Close()
		return nil, fmt.Errorf("corpusio: reset zstd decoder for %q: %w", path, err)
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &Reader{f: f, dec: dec, scanner: sc}, nil
}

// Next returns the next decompressed line, or io.EOF when the file is
// exhausted.
func (r *Reader) Next() ([]byte, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("corpusio: scan: %w", err)
		}
		return nil, io.EOF
	}
	return r.scanner.Bytes(), nil
}

// Close releases the decoder back to its pool and closes the file.
func (r *Reader) Close() error {
	decoderPool.Put(r.dec)
	return r.f.Close()
}

// Writer streams newline-delimited records into a ZSTD-framed file.
type Writer struct {
	f   *os.File
	enc *zstd.Encoder
	buf *bufio.Writer
}

// CreateWriter creates (or truncates) path and attaches a pooled zstd
// encoder to it.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("corpusio: create %q: %w", path, err)
	}
	enc, err := encoderPool.Get(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("corpusio: get zstd encoder: %w", err)
	}
	buf := bufio.NewWriterSize(f, 64*1024)
	enc.Reset(buf)
	return &Writer{f: f, enc: enc, buf: buf}, nil
}

// WriteLine writes line followed by a newline, compressed.
func (w *Writer) WriteLine(line []byte) error {
	if _, err := w.enc.Write(line); err != nil {
		return fmt.Errorf("corpusio: write: %w", err)
	}
	if _, err := w.enc.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("corpusio: write newline: %w", err)
	}
	return nil
}

// Close flushes the zstd frame, the buffered writer, releases the
// encoder back to its pool, and closes the file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("corpusio: close zstd encoder: %w", err)
	}
	encoderPool.Put(w.enc)
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("corpusio: flush: %w", err)
	}
	return w.f.Close()
}
