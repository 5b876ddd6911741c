package textprep

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ErrNormalizationFailed is returned by NFKC when SplitChars rejects s (an
// invalid UTF-8 lead byte or a truncated multi-byte sequence).
var ErrNormalizationFailed = fmt.Errorf("textprep: NFKC normalization failed")

// NFKC normalizes s to Unicode Normalization Form KC. Normalization itself
// is an external collaborator (golang.org/x/text/unicode/norm); this is
// the single seam where this package defers to it.
func NFKC(s string) (string, error) {
	if _, err := SplitChars(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNormalizationFailed, err)
	}
	return norm.NFKC.String(s), nil
}
