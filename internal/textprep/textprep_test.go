package textprep

import (
	"errors"
	"testing"
)

func TestUtf8Len(t *testing.T) {
	cases := []struct {
		b    byte
		want int
	}{
		{'a', 1},
		{0xC2, 2}, // lead byte of e.g. U+00A9
		{0xE4, 3}, // lead byte of a CJK character
		{0xF0, 4}, // lead byte of an emoji / astral character
		{0x80, 0}, // continuation byte, invalid as a lead byte
		{0xFF, 0},
	}
	for _, c := range cases {
		if got := Utf8Len(c.b); got != c.want {
			t.Errorf("Utf8Len(%#x) = %d, want %d", c.b, got, c.want)
		}
	}
}

func TestSplitChars(t *testing.T) {
	chars, err := SplitChars("a日b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "日", "b"}
	if len(chars) != len(want) {
		t.Fatalf("got %d chars, want %d", len(chars), len(want))
	}
	for i := range want {
		if chars[i] != want[i] {
			t.Errorf("chars[%d] = %q, want %q", i, chars[i], want[i])
		}
	}
}

func TestSplitCharsInvalid(t *testing.T) {
	_, err := SplitChars(string([]byte{0xFF, 0x00}))
	if !errors.Is(err, ErrInvalidUtf8) {
		t.Fatalf("expected ErrInvalidUtf8, got %v", err)
	}
}

func TestNGramsCount(t *testing.T) {
	// "hello" has 5 chars; 5-grams with N=5 produce exactly one window.
	windows, err := NGrams("hello", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	if windows[0].Bytes != "hello" {
		t.Errorf("windows[0].Bytes = %q, want %q", windows[0].Bytes, "hello")
	}
}

func TestNGramsEmptyWhenShort(t *testing.T) {
	windows, err := NGrams("hi", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("got %d windows, want 0", len(windows))
	}
}

func TestNGramsSlidingWindow(t *testing.T) {
	windows, err := NGrams("abcdef", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"abc", "bcd", "cde", "def"}
	if len(windows) != len(want) {
		t.Fatalf("got %d windows, want %d", len(windows), len(want))
	}
	for i := range want {
		if windows[i].Bytes != want[i] {
			t.Errorf("windows[%d] = %q, want %q", i, windows[i].Bytes, want[i])
		}
	}
}
