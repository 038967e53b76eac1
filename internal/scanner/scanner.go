// Package scanner walks a music library and reports, per directory,
// the audio files and decoded cue sheets found there. Traversal policy
// (depth, hidden entries, symlinks) lives here so the planning core
// never touches the directory tree itself.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/resolve"
	"github.com/vladkar/flac-belcher/internal/textutil"
)

// CueFile is one cue sheet's decoded text.
type CueFile struct {
	Name string // base name within the directory
	Path string
	Text string
}

// Directory is a scanned music directory. AudioFiles and CueFiles are
// sorted by name, so downstream processing is deterministic for a
// given tree snapshot.
type Directory struct {
	Path       string
	AudioFiles []string // base names with supported extensions
	CueFiles   []CueFile
	OtherFiles []string
}

// HasMusic reports whether the directory holds anything worth
// processing.
func (d Directory) HasMusic() bool {
	return len(d.AudioFiles) > 0 || len(d.CueFiles) > 0
}

// CueOnly marks directories that declare cues with no audio at all;
// the original rip got separated from its sheet.
func (d Directory) CueOnly() bool {
	return len(d.CueFiles) > 0 && len(d.AudioFiles) == 0
}

// Scanner walks library trees.
type Scanner struct {
	logger *slog.Logger
}

// New constructs a scanner.
func New(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logging.NewComponentLogger(logger, "scanner")}
}

// Scan walks root and returns every directory that contains music
// material, in walk order. Hidden files and directories are skipped;
// symlinks are not followed. Unreadable cue files are logged and
// dropped rather than failing the scan.
func (s *Scanner) Scan(root string) ([]Directory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	byDir := make(map[string]*Directory)
	order := []string{}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("skipping unreadable entry", logging.String("path", path), logging.Error(walkErr))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		dirPath := filepath.Dir(path)
		dir, ok := byDir[dirPath]
		if !ok {
			dir = &Directory{Path: dirPath}
			byDir[dirPath] = dir
			order = append(order, dirPath)
		}

		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case ext == ".cue":
			raw, readErr := os.ReadFile(path)
			if readErr != nil {
				s.logger.Warn("cannot read cue file", logging.String("path", path), logging.Error(readErr))
				return nil
			}
			dir.CueFiles = append(dir.CueFiles, CueFile{
				Name: name,
				Path: path,
				Text: textutil.DecodeText(raw),
			})
		case resolve.SupportedExtension(ext):
			dir.AudioFiles = append(dir.AudioFiles, name)
		default:
			dir.OtherFiles = append(dir.OtherFiles, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	dirs := make([]Directory, 0, len(order))
	audio, cues := 0, 0
	for _, dirPath := range order {
		dir := byDir[dirPath]
		if !dir.HasMusic() {
			continue
		}
		sort.Strings(dir.AudioFiles)
		sort.Strings(dir.OtherFiles)
		sort.Slice(dir.CueFiles, func(i, j int) bool { return dir.CueFiles[i].Name < dir.CueFiles[j].Name })
		audio += len(dir.AudioFiles)
		cues += len(dir.CueFiles)
		dirs = append(dirs, *dir)
	}
	s.logger.Info("scan complete",
		logging.String("root", root),
		logging.Int("directories", len(dirs)),
		logging.Int("audio_files", audio),
		logging.Int("cue_files", cues))
	return dirs, nil
}

// Entries lists every file name in the directory, for the resolver.
func (d Directory) Entries() []string {
	entries := make([]string, 0, len(d.AudioFiles)+len(d.OtherFiles)+len(d.CueFiles))
	entries = append(entries, d.AudioFiles...)
	entries = append(entries, d.OtherFiles...)
	for _, cue := range d.CueFiles {
		entries = append(entries, cue.Name)
	}
	return entries
}
