// Package pipeline wires TextPrep, MinHashEngine, DedupStore, and
// SuffixArrayBuilder to compressed JSONL input/output, mirroring the
// teacher's worker-pool-plus-reassembly idiom from
// cmd-x-index-sig-to-epoch.go: an ordered-concurrently pool does the
// per-document work, and a single reassembly goroutine per file applies
// results and writes output in input order. Cross-file work fans out via
// errgroup with no ordering guarantee between files.
//
// Fuzzy deduplication is split into two decoupled passes, matching the
// minhash/dedup subcommand split of the original exact_dedup_at_scale and
// progressive_minhashing drivers: RunMinhash computes and records MinHash
// bucket signatures per document, and RunDedup later consumes those
// signatures against a DedupStore. Splitting the passes lets signature
// computation run once per shard while deduplication runs as a single
// pass over the whole corpus.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	concurrently "github.com/tejzpr/ordered-concurrently/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/corpusio"
	"github.com/faithful-dedup/corpus-dedup/internal/textprep"
	"github.com/faithful-dedup/corpus-dedup/jsonl"
	"github.com/faithful-dedup/corpus-dedup/metrics"
	"github.com/faithful-dedup/corpus-dedup/minhash"
)

var classicSpewConfig = spew.ConfigState{
	Indent:                  " ",
	DisableMethods:          true,
	DisablePointerMethods:   true,
	DisablePointerAddresses: true,
}

// minhashesFieldKey is the document field RunMinhash writes and RunDedup
// reads, holding base64(BucketSignature) entries (§6).
const minhashesFieldKey = "minhashes"

// FuzzyConfig configures a RunMinhash pass.
type FuzzyConfig struct {
	TextKey    string
	HashConfig minhash.Config
	Workers    uint
	StripText  bool
	// VeryVerbose gates a spew dump of a document that fails per-document
	// processing, per the teacher's classicSpewConfig idiom.
	VeryVerbose bool
}

func (c FuzzyConfig) workers() uint {
	if c.Workers == 0 {
		return uint(runtime.NumCPU())
	}
	return c.Workers
}

func (c FuzzyConfig) textKey() string {
	if c.TextKey == "" {
		return jsonl.DefaultTextKey
	}
	return c.TextKey
}

// RunMinhash reads each of inputFiles, computes a MinHash bucket
// signature per document, and writes an annotated JSONL copy of each
// file into outDir carrying a base64-encoded "minhashes" field. Files
// are processed concurrently with no ordering guarantee between them
// (§5); documents within one file are annotated and written in their
// original order.
func RunMinhash(ctx context.Context, inputFiles []string, outDir string, cfg FuzzyConfig) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range inputFiles {
		path := path
		g.Go(func() error {
			return runMinhashFile(ctx, path, outDir, cfg)
		})
	}
	return g.Wait()
}

type minhashWork struct {
	doc  jsonl.Document
	cfg  FuzzyConfig
	done func()
}

type minhashResult struct {
	doc     jsonl.Document
	buckets []minhash.BucketSignature
	skipped bool
	// err is set when TextPrep or minhash processing failed for doc. doc
	// is still written out unannotated in this case (§7): a document is
	// never dropped from the output for a per-document processing error.
	err error
}

func (w minhashWork) Run(ctx context.Context) interface{} {
	defer w.done()
	if !w.doc.HasText {
		return minhashResult{doc: w.doc, skipped: true}
	}
	ngrams, err := textprep.NGrams(w.doc.Text, w.cfg.HashConfig.N)
	if err != nil {
		return minhashResult{doc: w.doc, skipped: true, err: fmt.Errorf("textprep: %w", err)}
	}
	sig := minhash.ComputeSignature(ngrams, w.cfg.HashConfig)
	buckets, err := minhash.Bucketize(sig, w.cfg.HashConfig)
	if err != nil {
		return minhashResult{doc: w.doc, skipped: true, err: fmt.Errorf("minhash: %w", err)}
	}
	return minhashResult{doc: w.doc, buckets: buckets}
}

func runMinhashFile(ctx context.Context, path, outDir string, cfg FuzzyConfig) error {
	r, err := corpusio.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	outPath := outputPath(path, outDir)
	w, err := corpusio.CreateWriter(outPath)
	if err != nil {
		return err
	}
	defer w.Close()

	numWorkers := cfg.workers()
	workerInputChan := make(chan concurrently.WorkFunction, numWorkers)
	outputChan := concurrently.Process(ctx, workerInputChan, &concurrently.Options{
		PoolSize:         int(numWorkers),
		OutChannelBuffer: int(numWorkers),
	})

	var writeErr atomic.Value
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range outputChan {
			switch v := result.Value.(type) {
			case minhashResult:
				if v.err != nil {
					klog.Errorf("document processing failed in %s: %s", path, v.err)
					metrics.DocumentsFailed.WithLabelValues("minhash", path).Inc()
					if cfg.VeryVerbose {
						classicSpewConfig.Dump(v.doc)
					}
				}
				if err := writeMinhashResult(w, v, cfg); err != nil {
					writeErr.Store(err)
				}
			default:
				writeErr.Store(fmt.Errorf("pipeline: unexpected result type %T", result.Value))
			}
		}
	}()

	var wg sync.WaitGroup
	numDocs := 0
	for {
		line, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("pipeline: read %s: %w", path, err)
		}
		cp := make([]byte, len(line))
		copy(cp, line)

		doc, err := jsonl.Decode(cp, cfg.textKey())
		if err != nil {
			klog.Errorf("skipping malformed document in %s: %s", path, err)
			metrics.DocumentsFailed.WithLabelValues("minhash", path).Inc()
			continue
		}
		numDocs++
		wg.Add(1)
		workerInputChan <- minhashWork{doc: doc, cfg: cfg, done: wg.Done}
	}
	wg.Wait()
	close(workerInputChan)
	<-done

	if v := writeErr.Load(); v != nil {
		return v.(error)
	}
	metrics.DocumentsProcessed.WithLabelValues("minhash", path).Add(float64(numDocs))
	klog.Infof("%s: processed %s documents", path, humanize.Comma(int64(numDocs)))
	return nil
}

func writeMinhashResult(w *corpusio.Writer, res minhashResult, cfg FuzzyConfig) error {
	doc := res.doc
	if !res.skipped {
		encoded := make([]string, len(res.buckets))
		for i, b := range res.buckets {
			encoded[i] = base64.RawStdEncoding.EncodeToString(b)
		}
		if err := doc.SetField(minhashesFieldKey, encoded); err != nil {
			return err
		}
	}
	if cfg.StripText {
		doc.DeleteField(cfg.textKey())
	}
	line, err := doc.Encode()
	if err != nil {
		return err
	}
	return w.WriteLine(line)
}

func outputPath(inputPath, outDir string) string {
	return filepath.Join(outDir, filepath.Base(inputPath))
}
