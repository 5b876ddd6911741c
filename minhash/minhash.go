// Package minhash computes per-document MinHash signatures and buckets
// them into LSH bands for fuzzy-duplicate detection, grounded on the
// MurmurHash3 x86-32 based LSH scheme in dedup.cc. Operations are pure
// functions of their input; there is no shared state and no observable
// side effects.
package minhash

import (
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/faithful-dedup/corpus-dedup/internal/textprep"
)

// Config holds the band/row/n-gram parameters for a MinHash-LSH run. K =
// B*R hash seeds are used per document; P_collide(J) = 1-(1-J^R)^B is the
// probability two documents with Jaccard similarity J collide in at
// least one band.
type Config struct {
	B int // number of bands
	R int // rows per band
	N int // n-gram length
}

// K returns the total number of hash seeds, B*R.
func (c Config) K() int {
	return c.B * c.R
}

var (
	// ConfigDefault is the baseline band/row schedule (20 bands of 10
	// rows, 5-gram shingles): ~0.74 Jaccard threshold.
	ConfigDefault = Config{B: 20, R: 10, N: 5}

	// ConfigLoose trades recall for precision with more rows per band
	// (~0.9 Jaccard threshold), per --hashconfig=1 in the original
	// progressive_minhashing driver.
	ConfigLoose = Config{B: 20, R: 40, N: 5}

	// ConfigTight requires very high similarity to collide (~0.99
	// Jaccard threshold at far higher row count), per --hashconfig=0 in
	// the original progressive_minhashing driver.
	ConfigTight = Config{B: 20, R: 450, N: 5}
)

// Signature is an array of K = B*R 32-bit minhash values, one per random
// hash seed (seed s is the row index in [0, K)).
type Signature []uint32

// ComputeSignature computes the MinHash signature of ngrams under cfg:
// for each seed s in [0, K), it hashes every n-gram with a stable
// seeded 32-bit hash and keeps the minimum. If ngrams is empty, the
// signature is all-zero, and per §4.2 the caller must treat the
// document as a no-op (it will bucketize identically for every empty
// input).
func ComputeSignature(ngrams []textprep.NGramWindow, cfg Config) Signature {
	k := cfg.K()
	sig := make(Signature, k)
	if len(ngrams) == 0 {
		return sig
	}
	for s := 0; s < k; s++ {
		var min uint32
		for i, g := range ngrams {
			h := murmur3.Sum32WithSeed([]byte(g.Bytes), uint32(s))
			if i == 0 || h < min {
				min = h
			}
		}
		sig[s] = min
	}
	return sig
}

// BucketSignature is the byte string for one LSH band: a 1-byte band id
// followed by the low 16 bits (big-endian) of each of the band's R rows.
// Its width is 1+2*R bytes. Two documents collide in a band iff their
// BucketSignature for that band is byte-identical.
type BucketSignature []byte

// Bucketize splits sig into cfg.B BucketSignatures, one per band of
// cfg.R consecutive rows.
func Bucketize(sig Signature, cfg Config) ([]BucketSignature, error) {
	if len(sig) != cfg.K() {
		return nil, fmt.Errorf("minhash: signature has %d values, want %d (B=%d R=%d)", len(sig), cfg.K(), cfg.B, cfg.R)
	}
	buckets := make([]BucketSignature, cfg.B)
	for b := 0; b < cfg.B; b++ {
		buf := make([]byte, 1+2*cfg.R)
		buf[0] = byte(b)
		for r := 0; r < cfg.R; r++ {
			v := sig[b*cfg.R+r]
			low16 := uint16(v & 0xffff)
			buf[1+2*r] = byte(low16 >> 8)
			buf[1+2*r+1] = byte(low16)
		}
		buckets[b] = buf
	}
	return buckets, nil
}
