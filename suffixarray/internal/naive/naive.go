// Package naive provides an O(n^2 log n) suffix array oracle used only to
// cross-check the prefix-doubling builder in tests. It is not meant to be
// fast; it exists to be obviously correct.
package naive

import "sort"

// BuildBytes sorts all n suffixes of data directly and returns their
// starting offsets in lexicographic order. Intended for n <= 1000.
func BuildBytes(data []byte) []uint32 {
	n := len(data)
	sa := make([]uint32, n)
	for i := range sa {
		sa[i] = uint32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return lessBytes(data, sa[i], sa[j])
	})
	return sa
}

func lessBytes(data []byte, i, j uint32) bool {
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
	return len(a) < len(b)
}

// BuildTokens is the token-mode counterpart of BuildBytes.
func BuildTokens(tokens []uint16) []uint32 {
	n := len(tokens)
	sa := make([]uint32, n)
	for i := range sa {
		sa[i] = uint32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return lessTokens(tokens, sa[i], sa[j])
	})
	return sa
}

func lessTokens(tokens []uint16, i, j uint32) bool {
	a, b := tokens[i:], tokens[j:]
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for k := 0; k < n; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}
