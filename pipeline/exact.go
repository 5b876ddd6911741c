package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/corpusio"
	"github.com/faithful-dedup/corpus-dedup/jsonl"
	"github.com/faithful-dedup/corpus-dedup/metrics"
	"github.com/faithful-dedup/corpus-dedup/safetensors"
	"github.com/faithful-dedup/corpus-dedup/suffixarray"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sentinelByte is the end-of-text separator for the untokenized path
// (§3: "byte value 0x03 separates documents").
const sentinelByte = 0x03

// sentinelToken is the reserved token id that separates documents in the
// tokenized path (§3: token id 0 is reserved and never produced by a
// tokenizer).
const sentinelToken = 0

// ExactConfig configures an exact-substring-dedup ("build") pipeline run.
type ExactConfig struct {
	TextKey       string
	Tokenize      bool
	TokenIDsKey   string
	UseCodepoint  bool
	VocabFilename string
	ZstdLevel     zstd.EncoderLevel
	RunID         string
}

func (c ExactConfig) textKey() string {
	if c.TextKey == "" {
		return jsonl.DefaultTextKey
	}
	return c.TextKey
}

func (c ExactConfig) tokenIDsKey() string {
	if c.TokenIDsKey == "" {
		return "token_ids"
	}
	return c.TokenIDsKey
}

// RunExact reads each of inputFiles, concatenates its document
// texts (or pre-tokenized token id sequences) with a sentinel
// separator, builds a suffix array over the concatenation, and writes a
// safetensors-style container for each input file into outDir. Files
// are processed concurrently with no cross-file ordering guarantee.
func RunExact(ctx context.Context, inputFiles []string, outDir string, cfg ExactConfig) error {
	if cfg.Tokenize && cfg.VocabFilename == "" {
		return fmt.Errorf("pipeline: --tokenize requires --vocab")
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range inputFiles {
		path := path
		g.Go(func() error {
			return runExactFile(ctx, path, outDir, cfg, runID)
		})
	}
	return g.Wait()
}

func runExactFile(ctx context.Context, path, outDir string, cfg ExactConfig, runID string) error {
	r, err := corpusio.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	var sa []uint32
	var buildErr error
	start := time.Now()
	if cfg.Tokenize {
		tokens, err := concatenateTokens(r, path, cfg)
		if err != nil {
			return err
		}
		sa, buildErr = suffixarray.BuildTokens(tokens)
	} else {
		data, err := concatenateBytes(r, path, cfg)
		if err != nil {
			return err
		}
		sa, buildErr = suffixarray.BuildBytes(data)
	}
	metrics.SuffixArrayBuildDuration.WithLabelValues(path, strconv.FormatBool(cfg.Tokenize)).Observe(time.Since(start).Seconds())
	if buildErr != nil {
		return fmt.Errorf("suffixarray: %s: %w", path, buildErr)
	}
	metrics.DocumentsProcessed.WithLabelValues("build", path).Inc()

	outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".safetensors")
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("pipeline: create %q: %w", outPath, err)
	}
	defer out.Close()

	meta := safetensors.Metadata{
		InputFilename: path,
		Tokenized:     cfg.Tokenize,
		UseCodepoint:  cfg.UseCodepoint,
		VocabFilename: cfg.VocabFilename,
		RunID:         runID,
	}
	if err := safetensors.WriteSuffixArray(out, sa, meta, cfg.ZstdLevel); err != nil {
		return fmt.Errorf("safetensors: %s: %w", path, err)
	}
	klog.Infof("%s: built suffix array of length %s (%s) -> %s", path, humanize.Comma(int64(len(sa))), humanize.Bytes(uint64(len(sa))*4), outPath)
	return nil
}

func concatenateBytes(r *corpusio.Reader, path string, cfg ExactConfig) ([]byte, error) {
	var out []byte
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: read: %w", err)
		}
		doc, err := jsonl.Decode(line, cfg.textKey())
		if err != nil {
			klog.Errorf("skipping malformed document: %s", err)
			metrics.DocumentsFailed.WithLabelValues("build", path).Inc()
			continue
		}
		if !doc.HasText {
			continue
		}
		if len(out) > 0 {
			out = append(out, sentinelByte)
		}
		out = append(out, []byte(doc.Text)...)
	}
	return out, nil
}

func concatenateTokens(r *corpusio.Reader, path string, cfg ExactConfig) ([]uint16, error) {
	var out []uint16
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: read: %w", err)
		}
		doc, err := jsonl.Decode(line, cfg.textKey())
		if err != nil {
			klog.Errorf("skipping malformed document: %s", err)
			metrics.DocumentsFailed.WithLabelValues("build", path).Inc()
			continue
		}
		raw, ok := doc.Fields[cfg.tokenIDsKey()]
		if !ok {
			continue
		}
		var ids []uint16
		if err := json.Unmarshal(raw, &ids); err != nil {
			klog.Errorf("skipping document with malformed %q: %s", cfg.tokenIDsKey(), err)
			continue
		}
		if len(out) > 0 {
			out = append(out, sentinelToken)
		}
		out = append(out, ids...)
	}
	return out, nil
}
