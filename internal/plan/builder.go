package plan

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vladkar/flac-belcher/internal/cuesheet"
	"github.com/vladkar/flac-belcher/internal/logging"
	"github.com/vladkar/flac-belcher/internal/resolve"
	"github.com/vladkar/flac-belcher/internal/textutil"
)

var (
	// ErrNoCueSheet signals a directory with nothing to split. Callers
	// treat it as a skip, not a failure.
	ErrNoCueSheet = errors.New("no cue sheet")
	// ErrConflictingCues signals two cue sources claiming the same
	// audio file with incompatible track layouts.
	ErrConflictingCues = errors.New("conflicting cue sheets")
)

// SheetInput pairs a parsed sheet with the resolution of each of its
// file blocks. Blocks is parallel to Sheet.Files.
type SheetInput struct {
	Sheet  *cuesheet.Sheet
	Blocks []resolve.Resolved
}

// Builder constructs split plans for one directory at a time.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a builder logging decisions to the given logger.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logging.NewComponentLogger(logger, "plan")}
}

// cd is one logical disc after the multi-CD policy has been applied.
type cd struct {
	index  int // 1-based; 0 until assigned
	sheet  *cuesheet.Sheet
	blocks []cuesheet.FileBlock
	srcs   []resolve.Resolved // parallel to blocks
}

// Build produces the ordered job list for a directory. outDir is where
// track files land.
//
// Multi-CD policy: more than one sheet means one CD per sheet; a single
// sheet whose file blocks each resolve to a distinct audio file is also
// treated as multi-CD. A single sheet whose blocks share sources keeps
// one CD with per-block segments. Either way track offsets stay local
// to their block and end times never cross a block boundary.
func (b *Builder) Build(outDir string, sheets []SheetInput) ([]Job, error) {
	if len(sheets) == 0 {
		return nil, ErrNoCueSheet
	}
	for _, in := range sheets {
		if in.Sheet == nil || len(in.Blocks) != len(in.Sheet.Files) {
			return nil, fmt.Errorf("sheet %q: block resolutions do not match file blocks", sheetName(in.Sheet))
		}
	}

	cds, err := b.assembleCDs(sheets)
	if err != nil {
		return nil, err
	}
	if err := checkSourceClaims(cds); err != nil {
		return nil, err
	}
	cds, err = dedupeCDs(b.logger, cds)
	if err != nil {
		return nil, err
	}
	assignIndexes(cds)
	multiCD := len(cds) > 1

	var jobs []Job
	destSeen := make(map[string]string)
	for _, disc := range cds {
		total := 0
		for _, block := range disc.blocks {
			total += len(block.Tracks)
		}
		for bi, block := range disc.blocks {
			src := disc.srcs[bi]
			for ti, track := range block.Tracks {
				end := ToEnd
				if ti+1 < len(block.Tracks) {
					end = block.Tracks[ti+1].Start
				}
				dest := filepath.Join(outDir, trackFileName(multiCD, disc.index, track))
				label := trackLabel(multiCD, disc.index, track)
				if prev, dup := destSeen[dest]; dup {
					return nil, fmt.Errorf("destination %s claimed by both %q and %q", dest, prev, label)
				}
				destSeen[dest] = label

				jobs = append(jobs, Job{
					Kind:       KindSplit,
					Source:     src.Path,
					SourceType: src.Type,
					Start:      track.Start,
					End:        end,
					Dest:       dest,
					Label:      label,
					Meta:       trackMetadata(disc.sheet, track, total),
				})
			}
		}
	}
	return jobs, nil
}

// ConversionJobs builds whole-file transcode jobs for directories that
// carry loose audio files and no usable cue sheet.
func ConversionJobs(outDir string, files []resolve.Resolved) []Job {
	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
		name := textutil.SanitizeFileName(base) + ".flac"
		jobs = append(jobs, Job{
			Kind:       KindConvert,
			Source:     f.Path,
			SourceType: f.Type,
			End:        ToEnd,
			Dest:       filepath.Join(outDir, name),
			Label:      filepath.Base(f.Path),
		})
	}
	return jobs
}

func (b *Builder) assembleCDs(sheets []SheetInput) ([]*cd, error) {
	// Stable order: by cue source path, so plans are deterministic for
	// a given directory snapshot.
	ordered := make([]SheetInput, len(sheets))
	copy(ordered, sheets)
	sort.Slice(ordered, func(i, j int) bool {
		return sheetName(ordered[i].Sheet) < sheetName(ordered[j].Sheet)
	})

	var cds []*cd
	for _, in := range ordered {
		sheet := in.Sheet
		if len(ordered) == 1 && len(sheet.Files) > 1 && distinctSources(in.Blocks) {
			// One sheet, several blocks, each with its own audio file:
			// treat each block as a disc, but say so, because the
			// sheet itself does not state a CD count.
			b.logger.Warn("inferring multi-CD layout from distinct FILE blocks",
				logging.String("cue", sheet.Source),
				logging.Int("blocks", len(sheet.Files)))
			for i := range sheet.Files {
				cds = append(cds, &cd{
					sheet:  sheet,
					blocks: sheet.Files[i : i+1],
					srcs:   in.Blocks[i : i+1],
				})
			}
			continue
		}
		if len(sheet.Files) > 1 {
			b.logger.Warn("treating FILE blocks as segments of one disc",
				logging.String("cue", sheet.Source),
				logging.Int("blocks", len(sheet.Files)))
		}
		cds = append(cds, &cd{sheet: sheet, blocks: sheet.Files, srcs: in.Blocks})
	}
	return cds, nil
}

// checkSourceClaims rejects a single disc whose segment blocks point at
// the same audio file: their locally-zeroed offsets would overlap.
func checkSourceClaims(cds []*cd) error {
	for _, disc := range cds {
		seen := make(map[string]string, len(disc.srcs))
		for i, src := range disc.srcs {
			if len(disc.blocks[i].Tracks) == 0 {
				continue
			}
			if prev, ok := seen[src.Path]; ok {
				return fmt.Errorf("%w: blocks %q and %q of %s share source %s",
					ErrConflictingCues, prev, disc.blocks[i].Name, sheetName(disc.sheet), src.Path)
			}
			seen[src.Path] = disc.blocks[i].Name
		}
	}
	return nil
}

// dedupeCDs drops later discs that claim an already-claimed source.
// Identical track layouts are common when a directory carries both a
// per-album cue and a rip-log duplicate; those collapse to the first
// occurrence. Diverging layouts are a hard conflict.
func dedupeCDs(logger *slog.Logger, cds []*cd) ([]*cd, error) {
	type claim struct {
		cue    string
		layout string
	}
	claims := make(map[string]claim)
	kept := cds[:0]
	for _, disc := range cds {
		duplicate := false
		for bi, src := range disc.srcs {
			layout := layoutSignature(disc.blocks[bi])
			prev, ok := claims[src.Path]
			if !ok {
				claims[src.Path] = claim{cue: sheetName(disc.sheet), layout: layout}
				continue
			}
			if prev.layout != layout {
				return nil, fmt.Errorf("%w: %s and %s disagree about %s",
					ErrConflictingCues, prev.cue, sheetName(disc.sheet), src.Path)
			}
			duplicate = true
		}
		if duplicate {
			logger.Warn("dropping duplicate cue sheet for already-claimed source",
				logging.String("cue", sheetName(disc.sheet)))
			continue
		}
		kept = append(kept, disc)
	}
	return kept, nil
}

func assignIndexes(cds []*cd) {
	used := make(map[int]bool)
	for _, disc := range cds {
		if n := disc.sheet.DiscNumber; n > 0 && !used[n] {
			disc.index = n
			used[n] = true
		}
	}
	next := 1
	for _, disc := range cds {
		if disc.index != 0 {
			continue
		}
		for used[next] {
			next++
		}
		disc.index = next
		used[next] = true
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].index < cds[j].index })
}

func distinctSources(blocks []resolve.Resolved) bool {
	seen := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if _, ok := seen[b.Path]; ok {
			return false
		}
		seen[b.Path] = struct{}{}
	}
	return true
}

func layoutSignature(block cuesheet.FileBlock) string {
	var sb strings.Builder
	for _, t := range block.Tracks {
		fmt.Fprintf(&sb, "%d@%d;", t.Number, t.Start)
	}
	return sb.String()
}

func trackFileName(multiCD bool, cdIndex int, track cuesheet.Track) string {
	title := track.Title
	if title == "" {
		title = fmt.Sprintf("Track %02d", track.Number)
	}
	name := fmt.Sprintf("%02d - %s.flac", track.Number, title)
	if multiCD {
		name = fmt.Sprintf("CD%d - %s", cdIndex, name)
	}
	return textutil.SanitizeFileName(name)
}

func trackLabel(multiCD bool, cdIndex int, track cuesheet.Track) string {
	label := fmt.Sprintf("track %02d", track.Number)
	if track.Title != "" {
		label += " - " + track.Title
	}
	if multiCD {
		label = fmt.Sprintf("CD%d %s", cdIndex, label)
	}
	return label
}

func trackMetadata(sheet *cuesheet.Sheet, track cuesheet.Track, total int) Metadata {
	artist := track.Performer
	if artist == "" {
		artist = sheet.Performer
	}
	return Metadata{
		Artist:     artist,
		Album:      sheet.Title,
		Title:      track.Title,
		Genre:      sheet.Genre,
		Date:       sheet.Date,
		TrackNum:   track.Number,
		TrackTotal: total,
	}
}

func sheetName(sheet *cuesheet.Sheet) string {
	if sheet == nil {
		return "<nil>"
	}
	return sheet.Source
}
