// Package suffixarray builds suffix arrays over a concatenated corpus,
// either as a raw byte sequence or as a 16-bit token sequence, using
// prefix doubling (Manber-Myers). The two input modes share one generic
// core; only the initial rank-widening step differs, which is where the
// internal/simdrank package is consulted.
package suffixarray

import (
	"errors"
	"fmt"
	"sort"

	"github.com/faithful-dedup/corpus-dedup/suffixarray/internal/simdrank"
)

// ErrInputTooLarge is returned when the input sequence has 2^32 or more
// elements: the suffix array's element type is a full-range uint32 and
// cannot address more.
var ErrInputTooLarge = errors.New("suffixarray: input exceeds 2^32-1 elements")

const maxLen = 1<<32 - 1

// BuildBytes constructs the suffix array of data in byte mode. The
// returned slice is a permutation of [0, len(data)) ordered so that
// data[SA[i]:] <= data[SA[i+1]:] lexicographically for every i.
func BuildBytes(data []byte) ([]uint32, error) {
	n := len(data)
	if n > maxLen {
		return nil, fmt.Errorf("%w: got %d", ErrInputTooLarge, n)
	}
	if n == 0 {
		return []uint32{}, nil
	}
	if n == 1 {
		return []uint32{0}, nil
	}
	rank := make([]uint32, n)
	simdrank.CopyRanksBytes(data, rank)
	return buildPrefixDoubling(rank), nil
}

// BuildTokens constructs the suffix array of tokens in token mode, the
// same way as BuildBytes but over a 16-bit token alphabet.
func BuildTokens(tokens []uint16) ([]uint32, error) {
	n := len(tokens)
	if n > maxLen {
		return nil, fmt.Errorf("%w: got %d", ErrInputTooLarge, n)
	}
	if n == 0 {
		return []uint32{}, nil
	}
	if n == 1 {
		return []uint32{0}, nil
	}
	rank := make([]uint32, n)
	simdrank.CopyRanksTokens(tokens, rank)
	return buildPrefixDoubling(rank), nil
}

// buildPrefixDoubling runs the Manber-Myers prefix-doubling algorithm
// given an initial rank assignment (rank[i] is the 1-based order of the
// length-1 prefix starting at i; CopyRanksBytes/CopyRanksTokens produce
// this). Ranks stay 1-based across every iteration below, which keeps 0
// free as the virtual past-end rank: secondKey must compare strictly
// below any real symbol or rank, including a real rank/symbol of 0 (the
// NUL byte, or the token sentinel exact-match dedup inserts between
// documents), so 0 can never be assigned to a real suffix. It repeatedly
// doubles the compared prefix length until every suffix has a unique
// rank or the prefix length reaches n.
func buildPrefixDoubling(rank []uint32) []uint32 {
	n := len(rank)
	sa := make([]uint32, n)
	for i := range sa {
		sa[i] = uint32(i)
	}

	tmpRank := make([]uint32, n)
	secondKey := func(i, k int) uint32 {
		if i+k < n {
			return rank[i+k]
		}
		return 0
	}

	for k := 1; k < n; k *= 2 {
		sort.Slice(sa, func(a, b int) bool {
			i, j := int(sa[a]), int(sa[b])
			if rank[i] != rank[j] {
				return rank[i] < rank[j]
			}
			return secondKey(i, k) < secondKey(j, k)
		})

		tmpRank[sa[0]] = 1
		for i := 1; i < n; i++ {
			tmpRank[sa[i]] = tmpRank[sa[i-1]]
			prev, cur := int(sa[i-1]), int(sa[i])
			if rank[prev] != rank[cur] || secondKey(prev, k) != secondKey(cur, k) {
				tmpRank[sa[i]]++
			}
		}
		unchanged := simdrank.CountEqual(rank, tmpRank)
		copy(rank, tmpRank)

		if rank[sa[n-1]] == uint32(n) {
			break
		}
		if unchanged == n {
			// No pair separated this round; further doubling can't help.
			break
		}
	}

	return sa
}
