package resolve_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vladkar/flac-belcher/internal/resolve"
)

var signatures = map[string][]byte{
	"flac": []byte("fLaC\x00\x00\x00\x22................"),
	"ape":  []byte("MAC \x96\x0f\x00\x00................"),
	"wav":  []byte("RIFF\x24\x00\x00\x00WAVEfmt "),
	"alac": []byte("\x00\x00\x00\x20ftypM4A \x00\x00\x00\x00"),
	"tta":  []byte("TTA1\x01\x00\x02\x00\x44\xac\x00\x00"),
}

type fixedProber struct {
	heads map[string][]byte
}

func (p fixedProber) Head(path string, n int) ([]byte, error) {
	head, ok := p.heads[filepath.Base(path)]
	if !ok {
		return nil, os.ErrNotExist
	}
	if len(head) > n {
		head = head[:n]
	}
	return head, nil
}

func TestSniff(t *testing.T) {
	want := map[string]resolve.Type{
		"flac": resolve.TypeFLAC,
		"ape":  resolve.TypeAPE,
		"wav":  resolve.TypeWAV,
		"alac": resolve.TypeALAC,
		"tta":  resolve.TypeTTA,
	}
	for name, head := range signatures {
		if got := resolve.Sniff(head); got != want[name] {
			t.Errorf("Sniff(%s) = %q, want %q", name, got, want[name])
		}
	}
	if got := resolve.Sniff([]byte("ID3\x04rubbish.........")); got != resolve.TypeUnknown {
		t.Errorf("Sniff(mp3) = %q, want unknown", got)
	}
	if got := resolve.Sniff(nil); got != resolve.TypeUnknown {
		t.Errorf("Sniff(nil) = %q, want unknown", got)
	}
}

func TestResolveExactMatch(t *testing.T) {
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{
		"album.flac": signatures["flac"],
	}}))
	res, err := r.Resolve("/music/a", "album.flac", []string{"album.flac", "album.cue"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(res.Path) != "album.flac" || res.Type != resolve.TypeFLAC {
		t.Fatalf("res = %+v", res)
	}
}

func TestResolveWrongExtension(t *testing.T) {
	// Cue declares album.wav; only album.flac exists, with FLAC magic.
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{
		"album.flac": signatures["flac"],
	}}))
	res, err := r.Resolve("/music/a", "album.wav", []string{"album.flac", "album.cue"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(res.Path) != "album.flac" {
		t.Errorf("picked %s", res.Path)
	}
	if res.Type != resolve.TypeFLAC {
		t.Errorf("type = %q, want flac (sniffed, not declared)", res.Type)
	}
	if res.DeclaredName != "album.wav" {
		t.Errorf("declared = %q", res.DeclaredName)
	}
}

func TestResolveSniffBreaksTie(t *testing.T) {
	// Two same-base candidates, but only one carries a lossless
	// signature; sniffing must break the tie.
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{
		"album.wav":  []byte("garbage-no-signature"),
		"album.flac": signatures["flac"],
	}}))
	res, err := r.Resolve("/music/a", "album.ape", []string{"album.wav", "album.flac"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(res.Path) != "album.flac" {
		t.Errorf("picked %s", res.Path)
	}
}

func TestResolveNoNameMatchFallsBackToSniffing(t *testing.T) {
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{
		"totally-different.ape": signatures["ape"],
	}}))
	res, err := r.Resolve("/music/a", "album.wav", []string{"totally-different.ape", "cover.jpg"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Type != resolve.TypeAPE {
		t.Errorf("type = %q", res.Type)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{}}))
	_, err := r.Resolve("/music/a", "album.wav", []string{"cover.jpg", "notes.txt"})
	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	r := resolve.New(resolve.WithProber(fixedProber{heads: map[string][]byte{
		"cd1.flac": signatures["flac"],
		"cd2.flac": signatures["flac"],
	}}))
	_, err := r.Resolve("/music/a", "album.wav", []string{"cd1.flac", "cd2.flac"})
	if !errors.Is(err, resolve.ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestResolveDeterministicOrder(t *testing.T) {
	heads := map[string][]byte{"b.flac": signatures["flac"], "a.wav": []byte("junk")}
	r := resolve.New(resolve.WithProber(fixedProber{heads: heads}))
	first, err := r.Resolve("/m", "x.ape", []string{"b.flac", "a.wav"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve("/m", "x.ape", []string{"a.wav", "b.flac"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Path != second.Path {
		t.Fatalf("resolution depends on listing order: %s vs %s", first.Path, second.Path)
	}
}
