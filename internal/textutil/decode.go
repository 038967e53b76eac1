package textutil

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeText converts raw bytes into a string, guessing the charset.
// Cue sheets in the wild arrive in UTF-8 (with or without BOM), UTF-16,
// and assorted single-byte legacy encodings; rippers rarely agree.
//
// Order: BOM-declared encoding, then valid UTF-8, then windows-1252.
// The single-byte fallback cannot fail, so every input decodes to
// something usable; worst case a few metadata runes are wrong, which
// never affects split boundaries.
func DecodeText(raw []byte) string {
	if enc, trimmed := bomEncoding(raw); enc != nil {
		if out, err := enc.NewDecoder().Bytes(trimmed); err == nil {
			return string(out)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		// Windows1252 decodes any byte sequence; this path is for
		// safety only.
		return string(raw)
	}
	return string(out)
}

func bomEncoding(raw []byte) (encoding.Encoding, []byte) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8, raw[3:]
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), raw[2:]
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), raw[2:]
	default:
		return nil, raw
	}
}
