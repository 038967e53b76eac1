package resolve

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates no plausible audio file exists for the
	// declared name.
	ErrNotFound = errors.New("audio file not found")
	// ErrAmbiguous indicates several candidates remain and no signal
	// disambiguates them.
	ErrAmbiguous = errors.New("ambiguous audio file candidates")
)

// Resolved is an audio file matched to a cue sheet declaration.
type Resolved struct {
	// Path is absolute.
	Path string
	// Type is the sniffed container type. Downstream codec decisions
	// trust this, never the extension.
	Type Type
	// DeclaredName is the filename the cue sheet asked for.
	DeclaredName string
}

// Prober reads the leading bytes of a file for sniffing. The
// production implementation hits the filesystem; tests inject fixed
// signatures.
type Prober interface {
	Head(path string, n int) ([]byte, error)
}

type fsProber struct{}

func (fsProber) Head(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

// Resolver matches declared cue filenames against directory contents.
type Resolver struct {
	prober Prober
}

// Option configures the resolver.
type Option func(*Resolver)

// WithProber injects a custom head reader (primarily for tests).
func WithProber(p Prober) Option {
	return func(r *Resolver) {
		if p != nil {
			r.prober = p
		}
	}
}

// New constructs a resolver backed by the real filesystem.
func New(opts ...Option) *Resolver {
	r := &Resolver{prober: fsProber{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the audio file for declaredName inside dir. entries is
// the directory's file listing (names only); passing it in keeps the
// resolver deterministic for a given directory snapshot and spares a
// re-scan.
//
// Matching order: exact name, then same base name with any supported
// extension, then content sniffing across the remaining audio
// candidates. The sniffed type is authoritative either way.
func (r *Resolver) Resolve(dir, declaredName string, entries []string) (Resolved, error) {
	if declaredName == "" {
		return Resolved{}, fmt.Errorf("%w: cue sheet declares no filename", ErrNotFound)
	}

	byName := make(map[string]string, len(entries))
	for _, name := range entries {
		byName[strings.ToLower(name)] = name
	}

	// Exact match wins, but the sniffed type still overrides the
	// extension.
	if actual, ok := byName[strings.ToLower(declaredName)]; ok {
		return r.finish(dir, actual, declaredName)
	}

	base := strings.TrimSuffix(declaredName, filepath.Ext(declaredName))
	var candidates []string
	for _, name := range entries {
		ext := strings.ToLower(filepath.Ext(name))
		if !SupportedExtension(ext) {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), base) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	if len(candidates) == 1 {
		return r.finish(dir, candidates[0], declaredName)
	}
	if len(candidates) == 0 {
		// No name similarity at all; fall back to every audio file in
		// the directory and let sniffing decide.
		for _, name := range entries {
			if SupportedExtension(strings.ToLower(filepath.Ext(name))) {
				candidates = append(candidates, name)
			}
		}
		sort.Strings(candidates)
	}
	if len(candidates) == 0 {
		return Resolved{}, fmt.Errorf("%w: %q in %s", ErrNotFound, declaredName, dir)
	}

	// Several candidates: keep the ones whose content sniffs to a
	// supported lossless type. Sniffed confidence beats name shape.
	var sniffed []Resolved
	for _, name := range candidates {
		res, err := r.finish(dir, name, declaredName)
		if err != nil {
			continue
		}
		if res.Type != TypeUnknown {
			sniffed = append(sniffed, res)
		}
	}
	switch len(sniffed) {
	case 1:
		return sniffed[0], nil
	case 0:
		return Resolved{}, fmt.Errorf("%w: %q in %s (no candidate has a lossless signature)", ErrNotFound, declaredName, dir)
	default:
		names := make([]string, len(sniffed))
		for i, s := range sniffed {
			names[i] = filepath.Base(s.Path)
		}
		return Resolved{}, fmt.Errorf("%w: %q in %s matches %s", ErrAmbiguous, declaredName, dir, strings.Join(names, ", "))
	}
}

// Classify sniffs a standalone audio file that no cue sheet declares.
func (r *Resolver) Classify(dir, name string) (Resolved, error) {
	return r.finish(dir, name, "")
}

func (r *Resolver) finish(dir, actualName, declaredName string) (Resolved, error) {
	path := filepath.Join(dir, actualName)
	abs, err := filepath.Abs(path)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve path %s: %w", path, err)
	}
	head, err := r.prober.Head(abs, SniffLen)
	if err != nil {
		return Resolved{}, fmt.Errorf("sniff %s: %w", abs, err)
	}
	return Resolved{Path: abs, Type: Sniff(head), DeclaredName: declaredName}, nil
}
