package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	concurrently "github.com/tejzpr/ordered-concurrently/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/corpusio"
	"github.com/faithful-dedup/corpus-dedup/dedupstore"
	"github.com/faithful-dedup/corpus-dedup/jsonl"
	"github.com/faithful-dedup/corpus-dedup/metrics"
	"github.com/faithful-dedup/corpus-dedup/minhash"
)

// DedupConfig configures a RunDedup pass.
type DedupConfig struct {
	Workers uint
}

func (c DedupConfig) workers() uint {
	if c.Workers == 0 {
		return uint(runtime.NumCPU())
	}
	return c.Workers
}

// RunDedup reads each of inputFiles, decodes the "minhashes" field
// RunMinhash wrote, and checks each document's bucket signatures against
// store, writing a "duplicate" boolean per document. A document whose
// "minhashes" field is missing or malformed is treated like a
// per-document TextPrep failure (§7): logged, counted, passed through
// unannotated, and not fatal to the file. Observe runs on the single
// reassembly goroutine per file to preserve document order (§5); base64
// decoding itself is parallelized across the worker pool.
func RunDedup(ctx context.Context, inputFiles []string, outDir string, store *dedupstore.Store, cfg DedupConfig) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range inputFiles {
		path := path
		g.Go(func() error {
			return runDedupFile(ctx, path, outDir, store, cfg)
		})
	}
	return g.Wait()
}

type dedupWork struct {
	doc  jsonl.Document
	done func()
}

type dedupResult struct {
	doc      jsonl.Document
	buckets  []minhash.BucketSignature
	decodeOK bool
}

func (w dedupWork) Run(ctx context.Context) interface{} {
	defer w.done()
	raw, ok := w.doc.Fields[minhashesFieldKey]
	if !ok {
		return dedupResult{doc: w.doc}
	}
	var encoded []string
	if err := jsonUnmarshalStrings(raw, &encoded); err != nil {
		return dedupResult{doc: w.doc}
	}
	buckets := make([]minhash.BucketSignature, len(encoded))
	for i, e := range encoded {
		b, err := base64.RawStdEncoding.DecodeString(e)
		if err != nil {
			return dedupResult{doc: w.doc}
		}
		buckets[i] = b
	}
	return dedupResult{doc: w.doc, buckets: buckets, decodeOK: true}
}

func runDedupFile(ctx context.Context, path, outDir string, store *dedupstore.Store, cfg DedupConfig) error {
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
	var dupCount atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range outputChan {
			v, ok := result.Value.(dedupResult)
			if !ok {
				writeErr.Store(fmt.Errorf("pipeline: unexpected result type %T", result.Value))
				continue
			}
			if !v.decodeOK {
				klog.Errorf("skipping document with missing or malformed %q in %s", minhashesFieldKey, path)
				metrics.DocumentsFailed.WithLabelValues("dedup", path).Inc()
				if err := writeUnannotated(w, v.doc); err != nil {
					writeErr.Store(err)
				}
				continue
			}
			dup, err := annotateDedupAndWrite(w, v, store)
			if err != nil {
				writeErr.Store(err)
				continue
			}
			if dup {
				dupCount.Add(1)
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

		doc, err := jsonl.Decode(cp, jsonl.DefaultTextKey)
		if err != nil {
			klog.Errorf("skipping malformed document in %s: %s", path, err)
			metrics.DocumentsFailed.WithLabelValues("dedup", path).Inc()
			continue
		}
		numDocs++
		wg.Add(1)
		workerInputChan <- dedupWork{doc: doc, done: wg.Done}
	}
	wg.Wait()
	close(workerInputChan)
	<-done

	if v := writeErr.Load(); v != nil {
		return v.(error)
	}
	metrics.DocumentsProcessed.WithLabelValues("dedup", path).Add(float64(numDocs))
	metrics.HashStoreSize.Set(float64(store.Len()))
	if numDocs > 0 {
		metrics.DuplicateRate.WithLabelValues(path).Set(float64(dupCount.Load()) / float64(numDocs))
	}
	klog.Infof("%s: processed %s documents, store holds %s entries", path, humanize.Comma(int64(numDocs)), humanize.Comma(store.Len()))
	return nil
}

func annotateDedupAndWrite(w *corpusio.Writer, res dedupResult, store *dedupstore.Store) (bool, error) {
	doc := res.doc
	dup, err := store.Observe(res.buckets)
	if err != nil {
		return false, fmt.Errorf("dedupstore: %w", err)
	}
	if err := doc.SetField("duplicate", dup); err != nil {
		return false, err
	}
	line, err := doc.Encode()
	if err != nil {
		return false, err
	}
	if err := w.WriteLine(line); err != nil {
		return false, err
	}
	return dup, nil
}

func writeUnannotated(w *corpusio.Writer, doc jsonl.Document) error {
	line, err := doc.Encode()
	if err != nil {
		return err
	}
	return w.WriteLine(line)
}

func jsonUnmarshalStrings(raw []byte, out *[]string) error {
	return json.Unmarshal(raw, out)
}
