// Package dedupstore implements the streaming set of seen LSH bucket
// signatures used to decide, for each document, whether it duplicates one
// already observed. Entries are never evicted; the set only grows for the
// lifetime of a run. The store is sharded by band id and, within each band,
// into 16 sub-shards by a hash of the signature (one mutex-guarded map per
// sub-shard) rather than a single global lock, to
// reduce contention under the teacher's worker-pool concurrency model.
package dedupstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/faithful-dedup/corpus-dedup/minhash"
)

// ErrHashStoreFull is returned by Observe when inserting a document's
// previously-unseen signatures would take the store past its configured
// MaxEntries.
var ErrHashStoreFull = errors.New("dedupstore: hash store is full")

const numShardsPerBand = 16

type shard struct {
	mu      sync.Mutex
	entries map[uint64]struct{}
}

// Store is a concurrency-safe set of minhash.BucketSignature values,
// sharded by band id and then by a hash of the signature bytes. Callers
// may invoke Observe from multiple goroutines; each shard's mutex
// linearizes the insertions that land in it.
type Store struct {
	bands      int
	maxEntries int64
	count      atomic.Int64
	shards     [][]*shard // [band][sub-shard]
}

// New creates a Store for LSH runs with the given number of bands. A
// maxEntries of 0 means unbounded.
func New(bands int, maxEntries int64) *Store {
	s := &Store{
		bands:      bands,
		maxEntries: maxEntries,
		shards:     make([][]*shard, bands),
	}
	for b := 0; b < bands; b++ {
		subshards := make([]*shard, numShardsPerBand)
		for i := range subshards {
			subshards[i] = &shard{entries: make(map[uint64]struct{})}
		}
		s.shards[b] = subshards
	}
	return s
}

// Observe checks whether any of the given BucketSignatures already exist
// in the store, then inserts all of them. It returns duplicate=true iff
// at least one signature was already present. Per §5, the first document
// to be linearized against a given signature wins: it is reported as
// non-duplicate and its signatures populate the store for every document
// observed afterward.
func (s *Store) Observe(buckets []minhash.BucketSignature) (duplicate bool, err error) {
	if len(buckets) != s.bands {
		return false, fmt.Errorf("dedupstore: got %d bucket signatures, store configured for %d bands", len(buckets), s.bands)
	}

	type shardKey struct {
		idx int // band*numShardsPerBand + sub, a stable global shard index
		sub int
		key uint64
	}
	keys := make([]shardKey, len(buckets))
	for i, b := range buckets {
		band := int(b[0])
		h := xxhash.Sum64(b)
		sub := int(h % numShardsPerBand)
		keys[i] = shardKey{idx: band*numShardsPerBand + sub, sub: sub, key: h}
	}

	// Check-then-insert must be serialized per shard to linearize
	// consistently; lock distinct shards in ascending global-index order
	// to avoid deadlock when two documents' bucket sets overlap the same
	// pair of shards.
	seen := make(map[int]bool, len(buckets))
	uniqueIdx := make([]int, 0, len(buckets))
	for _, k := range keys {
		if !seen[k.idx] {
			seen[k.idx] = true
			uniqueIdx = append(uniqueIdx, k.idx)
		}
	}
	sortInts(uniqueIdx)
	for _, idx := range uniqueIdx {
		sh := s.shards[idx/numShardsPerBand][idx%numShardsPerBand]
		sh.mu.Lock()
		defer sh.mu.Unlock()
	}

	newKeys := 0
	for _, k := range keys {
		sh := s.shards[k.idx/numShardsPerBand][k.sub]
		if _, ok := sh.entries[k.key]; ok {
			duplicate = true
		} else {
			newKeys++
		}
	}

	if newKeys > 0 && s.maxEntries > 0 && s.count.Load()+int64(newKeys) > s.maxEntries {
		return false, ErrHashStoreFull
	}
	for _, k := range keys {
		sh := s.shards[k.idx/numShardsPerBand][k.sub]
		if _, ok := sh.entries[k.key]; !ok {
			sh.entries[k.key] = struct{}{}
			s.count.Add(1)
		}
	}

	return duplicate, nil
}

// Len returns the number of distinct bucket signatures currently held.
func (s *Store) Len() int64 {
	return s.count.Load()
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
