package textutil

import (
	"strings"
	"testing"
	"unicode/utf16"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01 - Speak to Me.flac", "01 - Speak to Me.flac"},
		{"AC/DC: Back in Black", "AC-DC- Back in Black"},
		{"what?.flac", "what.flac"},
		{"  padded  ", "padded"},
		{"", ""},
		{"a*b|c<d>e", "a-bcde"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeTextUTF8(t *testing.T) {
	in := "TITLE \"Mäßige Höhe\"\n"
	if got := DecodeText([]byte(in)); got != in {
		t.Errorf("plain utf-8 changed: %q", got)
	}
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(in)...)
	if got := DecodeText(withBOM); got != in {
		t.Errorf("utf-8 BOM not stripped: %q", got)
	}
}

func TestDecodeTextUTF16(t *testing.T) {
	text := "PERFORMER \"Алиса\""
	units := utf16.Encode([]rune(text))
	raw := []byte{0xFF, 0xFE}
	for _, u := range units {
		raw = append(raw, byte(u), byte(u>>8))
	}
	if got := DecodeText(raw); got != text {
		t.Errorf("utf-16le decode = %q, want %q", got, text)
	}
}

func TestDecodeTextLegacyFallback(t *testing.T) {
	// "café" in windows-1252: é = 0xE9, invalid as UTF-8.
	raw := []byte{'c', 'a', 'f', 0xE9}
	got := DecodeText(raw)
	if !strings.Contains(got, "café") {
		t.Errorf("windows-1252 fallback = %q", got)
	}
}
