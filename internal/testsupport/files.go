package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var audioSignatures = map[string][]byte{
	".flac": []byte("fLaC\x00\x00\x00\x22"),
	".ape":  []byte("MAC \x96\x00\x00\x00"),
	".wav":  []byte("RIFF\x24\x00\x00\x00WAVE"),
	".m4a":  []byte("\x00\x00\x00\x20ftypM4A "),
	".tta":  []byte("TTA1\x01\x00\x00\x00"),
}

// WriteAudio creates path with the magic bytes matching its extension
// followed by padding, so content sniffing classifies it correctly.
func WriteAudio(t testing.TB, path string) {
	t.Helper()

	sig, ok := audioSignatures[strings.ToLower(filepath.Ext(path))]
	if !ok {
		t.Fatalf("no known signature for %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := append(append([]byte{}, sig...), make([]byte, 64)...)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CueTrack describes one track in a generated cue sheet.
type CueTrack struct {
	Title string
	Start string // INDEX 01 timestamp, mm:ss:ff
}

// CueText renders a minimal single-FILE cue sheet.
func CueText(performer, album, fileName string, tracks []CueTrack) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PERFORMER \"%s\"\n", performer)
	fmt.Fprintf(&b, "TITLE \"%s\"\n", album)
	fmt.Fprintf(&b, "FILE \"%s\" WAVE\n", fileName)
	for i, track := range tracks {
		fmt.Fprintf(&b, "  TRACK %02d AUDIO\n", i+1)
		fmt.Fprintf(&b, "    TITLE \"%s\"\n", track.Title)
		fmt.Fprintf(&b, "    INDEX 01 %s\n", track.Start)
	}
	return b.String()
}

// WriteCue writes a generated cue sheet to path.
func WriteCue(t testing.TB, path, performer, album, fileName string, tracks []CueTrack) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(CueText(performer, album, fileName, tracks)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
