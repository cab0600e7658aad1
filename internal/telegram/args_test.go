package telegram

import "testing"

func TestCommandRemainder(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/ai hello world", "hello world"},
		{"/ai@SomeBot hello", "hello"},
		{"/ai", ""},
		{"  /resize 800x600 ", "800x600"},
	}
	for _, tc := range cases {
		if got := commandRemainder(tc.in); got != tc.want {
			t.Fatalf("commandRemainder(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDimensions(t *testing.T) {
	h, w, err := parseDimensions("800x600")
	if err != nil || h != 800 || w != 600 {
		t.Fatalf("parse 800x600: h=%d w=%d err=%v", h, w, err)
	}

	h, w, err = parseDimensions("200X50")
	if err != nil || h != 200 || w != 50 {
		t.Fatalf("parse should be case-insensitive: h=%d w=%d err=%v", h, w, err)
	}

	for _, bad := range []string{"800", "x600", "800x", "axb", "800x600x400", ""} {
		if _, _, err := parseDimensions(bad); err == nil {
			t.Fatalf("parseDimensions(%q) should fail", bad)
		}
	}

	// Negative numbers parse here; range checks belong to the caller.
	h, w, err = parseDimensions("-5x10")
	if err != nil || h != -5 || w != 10 {
		t.Fatalf("parse -5x10: h=%d w=%d err=%v", h, w, err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("no-op truncation changed %q", got)
	}
	got := truncateRunes("abcdefghij", 4)
	if got != "abcd…" {
		t.Fatalf("truncation got %q", got)
	}
	// Rune-safe, not byte-safe.
	got = truncateRunes("ééééé", 3)
	if got != "ééé…" {
		t.Fatalf("rune truncation got %q", got)
	}
}
