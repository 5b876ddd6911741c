package suffixarray

import (
	"math/rand"
	"testing"

	"github.com/faithful-dedup/corpus-dedup/suffixarray/internal/naive"
)

func TestBuildBytesEmpty(t *testing.T) {
	sa, err := BuildBytes(nil)
	if err != nil {
		t.Fatalf("BuildBytes(nil): %v", err)
	}
	if len(sa) != 0 {
		t.Fatalf("len(sa) = %d, want 0", len(sa))
	}
}

func TestBuildBytesSingle(t *testing.T) {
	sa, err := BuildBytes([]byte("x"))
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	if len(sa) != 1 || sa[0] != 0 {
		t.Fatalf("sa = %v, want [0]", sa)
	}
}

func TestBuildBytesBanana(t *testing.T) {
	sa, err := BuildBytes([]byte("banana"))
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	want := []uint32{5, 3, 1, 0, 4, 2}
	assertEqualSA(t, sa, want)
}

func TestBuildBytesMississippi(t *testing.T) {
	sa, err := BuildBytes([]byte("mississippi"))
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	want := []uint32{10, 7, 4, 1, 0, 9, 8, 6, 3, 5, 2}
	assertEqualSA(t, sa, want)
}

func assertEqualSA(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// TestBuildBytesIsPermutation checks the SA-permutation invariant.
func TestBuildBytesIsPermutation(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	sa, err := BuildBytes(data)
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	seen := make([]bool, len(data))
	for _, idx := range sa {
		if idx >= uint32(len(data)) || seen[idx] {
			t.Fatalf("sa is not a permutation of [0, %d): duplicate or out-of-range index %d", len(data), idx)
		}
		seen[idx] = true
	}
}

// TestBuildBytesOrder checks the SA order invariant: each suffix is
// lexicographically <= the next.
func TestBuildBytesOrder(t *testing.T) {
	data := []byte("abracadabra abracadabra banana mississippi")
	sa, err := BuildBytes(data)
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	for i := 0; i < len(sa)-1; i++ {
		if !lessOrEqualSuffix(data, sa[i], sa[i+1]) {
			t.Fatalf("suffix(%d) > suffix(%d): SA order violated at i=%d", sa[i], sa[i+1], i)
		}
	}
}

func lessOrEqualSuffix(data []byte, i, j uint32) bool {
	a, b := data[i:], data[j:]
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for k := 0; k < n; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) <= len(b)
}

// TestBuildBytesAgreesWithNaive checks the SA-agreement-with-naive-oracle
// property for a range of small, randomly generated inputs (n <= 1000).
func TestBuildBytesAgreesWithNaive(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	// byteAlphabets includes a NUL-bearing alphabet so the fuzz trials
	// exercise byte 0x00, the value most likely to collide with the
	// builder's virtual past-end rank if that rank is handled wrong.
	byteAlphabets := [][]byte{
		[]byte("ab"), []byte("abc"), []byte("abcdefghij"),
		{0, 1}, {0, 1, 2},
	}
	for trial := 0; trial < 30; trial++ {
		alphabet := byteAlphabets[trial%len(byteAlphabets)]
		n := r.Intn(200) + 1
		data := make([]byte, n)
		for i := range data {
			data[i] = alphabet[r.Intn(len(alphabet))]
		}
		got, err := BuildBytes(data)
		if err != nil {
			t.Fatalf("BuildBytes: %v", err)
		}
		want := naive.BuildBytes(data)
		assertEqualSA(t, got, want)
	}
}

// TestBuildTokensAgreesWithNaive is the token-mode counterpart of
// TestBuildBytesAgreesWithNaive, likewise including the token sentinel
// value 0 in its alphabet.
func TestBuildTokensAgreesWithNaive(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	tokenAlphabets := [][]uint16{
		{0, 1}, {0, 1, 2}, {0, 3, 5, 9},
	}
	for trial := 0; trial < 30; trial++ {
		alphabet := tokenAlphabets[trial%len(tokenAlphabets)]
		n := r.Intn(200) + 1
		tokens := make([]uint16, n)
		for i := range tokens {
			tokens[i] = alphabet[r.Intn(len(alphabet))]
		}
		got, err := BuildTokens(tokens)
		if err != nil {
			t.Fatalf("BuildTokens: %v", err)
		}
		want := naive.BuildTokens(tokens)
		assertEqualSA(t, got, want)
	}
}

func TestBuildTokens(t *testing.T) {
	tokens := []uint16{5, 3, 5, 3, 9, 1}
	got, err := BuildTokens(tokens)
	if err != nil {
		t.Fatalf("BuildTokens: %v", err)
	}
	want := naive.BuildTokens(tokens)
	assertEqualSA(t, got, want)
}

// TestBuildBytesZeroByte guards against treating the past-end virtual
// symbol as equal to a real byte 0x00: the SA of two NUL bytes must
// order the shorter (past-end) suffix first, just like any other
// repeated-byte input.
func TestBuildBytesZeroByte(t *testing.T) {
	sa, err := BuildBytes([]byte{0, 0})
	if err != nil {
		t.Fatalf("BuildBytes: %v", err)
	}
	assertEqualSA(t, sa, naive.BuildBytes([]byte{0, 0}))
}

// TestBuildTokensSentinelBetweenDocuments mirrors exact_dedup's
// sentinelToken = 0 inserted between concatenated documents: three
// identical single-token documents concatenate to [1, 0, 1, 0, 1].
func TestBuildTokensSentinelBetweenDocuments(t *testing.T) {
	tokens := []uint16{1, 0, 1, 0, 1}
	got, err := BuildTokens(tokens)
	if err != nil {
		t.Fatalf("BuildTokens: %v", err)
	}
	want := naive.BuildTokens(tokens)
	assertEqualSA(t, got, want)
}

func TestBuildTokensEmpty(t *testing.T) {
	sa, err := BuildTokens(nil)
	if err != nil {
		t.Fatalf("BuildTokens(nil): %v", err)
	}
	if len(sa) != 0 {
		t.Fatalf("len(sa) = %d, want 0", len(sa))
	}
}
