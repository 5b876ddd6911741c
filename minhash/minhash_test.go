package minhash

import (
	"testing"

	"github.com/faithful-dedup/corpus-dedup/internal/textprep"
)

func ngramsOrFail(t *testing.T, s string, n int) []textprep.NGramWindow {
	t.Helper()
	w, err := textprep.NGrams(s, n)
	if err != nil {
		t.Fatalf("NGrams(%q, %d): %v", s, n, err)
	}
	return w
}

func TestComputeSignatureDeterministic(t *testing.T) {
	cfg := Config{B: 4, R: 5, N: 5}
	ngrams := ngramsOrFail(t, "the quick brown fox jumps over the lazy dog", cfg.N)

	sig1 := ComputeSignature(ngrams, cfg)
	sig2 := ComputeSignature(ngrams, cfg)

	if len(sig1) != cfg.K() {
		t.Fatalf("len(sig1) = %d, want %d", len(sig1), cfg.K())
	}
	for i := range sig1 {
		if sig1[i] != sig2[i] {
			t.Fatalf("signature not deterministic at row %d: %d != %d", i, sig1[i], sig2[i])
		}
	}
}

func TestComputeSignatureEmptyIsAllZero(t *testing.T) {
	cfg := ConfigDefault
	sig := ComputeSignature(nil, cfg)
	if len(sig) != cfg.K() {
		t.Fatalf("len(sig) = %d, want %d", len(sig), cfg.K())
	}
	for i, v := range sig {
		if v != 0 {
			t.Fatalf("sig[%d] = %d, want 0 for empty n-gram input", i, v)
		}
	}
}

func TestBucketizeWidthAndBandID(t *testing.T) {
	cfg := Config{B: 3, R: 4, N: 5}
	ngrams := ngramsOrFail(t, "some reasonably long string of text to shingle", cfg.N)
	sig := ComputeSignature(ngrams, cfg)

	buckets, err := Bucketize(sig, cfg)
	if err != nil {
		t.Fatalf("Bucketize: %v", err)
	}
	if len(buckets) != cfg.B {
		t.Fatalf("got %d buckets, want %d", len(buckets), cfg.B)
	}
	wantWidth := 1 + 2*cfg.R
	for b, bucket := range buckets {
		if len(bucket) != wantWidth {
			t.Errorf("bucket %d has width %d, want %d", b, len(bucket), wantWidth)
		}
		if bucket[0] != byte(b) {
			t.Errorf("bucket %d has band id %d, want %d", b, bucket[0], b)
		}
	}
}

func TestBucketizeSizeMismatch(t *testing.T) {
	cfg := Config{B: 2, R: 2, N: 5}
	_, err := Bucketize(make(Signature, 3), cfg)
	if err == nil {
		t.Fatal("expected an error for mismatched signature size")
	}
}

// TestJaccardBoundApprox exercises the MinHash-Jaccard collision bound
// loosely: near-duplicate documents A and B (one character changed) must
// share more matching signature rows than A and C, whose n-gram sets are
// disjoint. It does not compare the match fraction with the Jaccard
// similarity itself.
func TestJaccardBoundApprox(t *testing.T) {
	cfg := Config{B: 20, R: 10, N: 5}
	a := "the quick brown fox jumps over the lazy dog repeatedly and with great enthusiasm"
	b := "the quick brown fox jumps over the lazy cog repeatedly and with great enthusiasm"
	c := "zzz qqq xxx yyy www vvv uuu ttt sss rrr ppp ooo nnn mmm lll kkk jjj iii hhh ggg"

	sigA := ComputeSignature(ngramsOrFail(t, a, cfg.N), cfg)
	sigB := ComputeSignature(ngramsOrFail(t, b, cfg.N), cfg)
	sigC := ComputeSignature(ngramsOrFail(t, c, cfg.N), cfg)

	matchAB := 0
	matchAC := 0
	for i := range sigA {
		if sigA[i] == sigB[i] {
			matchAB++
		}
		if sigA[i] == sigC[i] {
			matchAC++
		}
	}

	if matchAB <= matchAC {
		t.Fatalf("expected A,B (near-duplicates) to share more signature rows than A,C (disjoint): matchAB=%d matchAC=%d", matchAB, matchAC)
	}
}
