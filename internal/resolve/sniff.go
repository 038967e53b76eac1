package resolve

import "bytes"

// Type identifies a lossless audio container, detected by content.
type Type string

const (
	TypeUnknown Type = ""
	TypeFLAC    Type = "flac"
	TypeAPE     Type = "ape"
	TypeWAV     Type = "wav"
	TypeALAC    Type = "alac"
	TypeTTA     Type = "tta"
)

// SniffLen is the number of leading bytes Sniff needs to classify a
// file.
const SniffLen = 16

// Sniff classifies a file by its leading bytes, independent of its
// name. Returns TypeUnknown when no supported signature matches.
func Sniff(head []byte) Type {
	switch {
	case bytes.HasPrefix(head, []byte("fLaC")):
		return TypeFLAC
	case bytes.HasPrefix(head, []byte("MAC ")):
		return TypeAPE
	case bytes.HasPrefix(head, []byte("RIFF")) && len(head) >= 12 && bytes.Equal(head[8:12], []byte("WAVE")):
		return TypeWAV
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		// MP4 container; ALAC is the only lossless audio we expect in
		// one. The codec itself is the transcoder's problem.
		return TypeALAC
	case bytes.HasPrefix(head, []byte("TTA1")):
		return TypeTTA
	default:
		return TypeUnknown
	}
}

// extensionsByType maps detected types back to their customary
// extensions, used for candidate filtering only.
var supportedExtensions = map[string]Type{
	".flac": TypeFLAC,
	".ape":  TypeAPE,
	".wav":  TypeWAV,
	".m4a":  TypeALAC,
	".tta":  TypeTTA,
}

// SupportedExtension reports whether ext (with leading dot, lowercase)
// names a lossless container this tool splits.
func SupportedExtension(ext string) bool {
	_, ok := supportedExtensions[ext]
	return ok
}
