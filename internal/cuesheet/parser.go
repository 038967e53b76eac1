package cuesheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoTracks marks sheets whose global structure is unusable: no
	// TRACK directive survived parsing.
	ErrNoTracks = errors.New("cue sheet declares no tracks")
	// ErrUnorderedTracks marks offsets that do not increase strictly
	// within one FILE block.
	ErrUnorderedTracks = errors.New("track offsets not strictly increasing")
)

// ParseError wraps a failure with the sheet's source path.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// directiveKind tags recognized cue directives. Anything else becomes
// directiveUnknown carrying the raw line, so vendor extensions are
// skipped instead of failing the sheet.
type directiveKind int

const (
	directiveUnknown directiveKind = iota
	directiveFile
	directiveTrack
	directiveIndex
	directiveTitle
	directivePerformer
	directiveRem
	directiveIgnored // PREGAP, POSTGAP, FLAGS, ISRC and friends
)

type directive struct {
	kind directiveKind
	args string // remainder after the keyword, quotes intact
	raw  string
}

func classify(line string) directive {
	trimmed := strings.TrimSpace(line)
	keyword, rest, _ := strings.Cut(trimmed, " ")
	d := directive{args: strings.TrimSpace(rest), raw: trimmed}
	switch strings.ToUpper(keyword) {
	case "FILE":
		d.kind = directiveFile
	case "TRACK":
		d.kind = directiveTrack
	case "INDEX":
		d.kind = directiveIndex
	case "TITLE":
		d.kind = directiveTitle
	case "PERFORMER":
		d.kind = directivePerformer
	case "REM":
		d.kind = directiveRem
	case "PREGAP", "POSTGAP", "FLAGS", "ISRC", "CATALOG", "CDTEXTFILE", "SONGWRITER":
		d.kind = directiveIgnored
	default:
		d.kind = directiveUnknown
	}
	return d
}

// Parse interprets raw cue text. source is recorded on the sheet and in
// errors; it does not have to exist on disk.
//
// The parse is tolerant: unknown directives produce warnings, not
// errors. It fails only when the global structure is unusable (no
// tracks, malformed TRACK/INDEX operands) or the ordering invariant is
// violated within a FILE block.
func Parse(source, text string) (*Sheet, error) {
	sheet := &Sheet{Source: source}

	var (
		curFile  *FileBlock
		curTrack *Track
		// track numbers must be unique within a FILE block; multi-CD
		// sheets restart numbering at each new FILE
		seenTracks = map[int]struct{}{}
	)

	flushTrack := func() {
		if curTrack == nil || curFile == nil {
			return
		}
		curFile.Tracks = append(curFile.Tracks, *curTrack)
		curTrack = nil
	}
	flushFile := func() {
		flushTrack()
		if curFile == nil {
			return
		}
		sheet.Files = append(sheet.Files, *curFile)
		curFile = nil
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if trimmed == "" {
			continue
		}

		d := classify(trimmed)
		switch d.kind {
		case directiveFile:
			name, fileType := splitFileArgs(d.args)
			if name == "" {
				return nil, &ParseError{Source: source, Line: lineNo, Err: errors.New("FILE directive without filename")}
			}
			flushFile()
			curFile = &FileBlock{Name: name, FileType: fileType}
			seenTracks = map[int]struct{}{}

		case directiveTrack:
			if curFile == nil {
				return nil, &ParseError{Source: source, Line: lineNo, Err: errors.New("TRACK before any FILE directive")}
			}
			fields := strings.Fields(d.args)
			if len(fields) == 0 {
				return nil, &ParseError{Source: source, Line: lineNo, Err: errors.New("TRACK directive without number")}
			}
			if len(fields) > 1 && !strings.EqualFold(fields[1], "AUDIO") {
				// Data tracks (MODE1/2352 etc.) carry no audio to split.
				sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("line %d: skipping non-audio track: %s", lineNo, d.raw))
				flushTrack()
				continue
			}
			number, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, &ParseError{Source: source, Line: lineNo, Err: fmt.Errorf("track number: %w", err)}
			}
			if _, dup := seenTracks[number]; dup {
				return nil, &ParseError{Source: source, Line: lineNo, Err: fmt.Errorf("duplicate track number %d in FILE %q", number, curFile.Name)}
			}
			seenTracks[number] = struct{}{}
			flushTrack()
			curTrack = &Track{Number: number, Start: -1}

		case directiveIndex:
			if curTrack == nil {
				sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("line %d: INDEX outside a track: %s", lineNo, d.raw))
				continue
			}
			idx, stamp, _ := strings.Cut(d.args, " ")
			// INDEX 01 is the track start; INDEX 00 (pregap start) and
			// higher sub-indexes do not move the split boundary.
			if idx != "01" && idx != "1" {
				continue
			}
			start, err := ParseTimestamp(stamp)
			if err != nil {
				return nil, &ParseError{Source: source, Line: lineNo, Err: err}
			}
			curTrack.Start = start

		case directiveTitle:
			if curTrack != nil {
				curTrack.Title = unquote(d.args)
			} else {
				sheet.Title = unquote(d.args)
			}

		case directivePerformer:
			if curTrack != nil {
				curTrack.Performer = unquote(d.args)
			} else {
				sheet.Performer = unquote(d.args)
			}

		case directiveRem:
			parseRem(sheet, d.args)

		case directiveIgnored:
			// recognized but irrelevant to split planning

		default:
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("line %d: unrecognized directive: %s", lineNo, d.raw))
		}
	}
	flushFile()

	if err := finalize(sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

// finalize drops tracks that never received an INDEX 01 and checks the
// per-block ordering invariant.
func finalize(sheet *Sheet) error {
	blocks := sheet.Files[:0]
	for _, block := range sheet.Files {
		kept := block.Tracks[:0]
		for _, track := range block.Tracks {
			if track.Start < 0 {
				sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("track %d has no INDEX 01, dropped", track.Number))
				continue
			}
			kept = append(kept, track)
		}
		block.Tracks = kept
		if len(block.Tracks) == 0 {
			continue
		}
		for i := 1; i < len(block.Tracks); i++ {
			if block.Tracks[i].Start <= block.Tracks[i-1].Start {
				return &ParseError{Source: sheet.Source, Err: fmt.Errorf("%w: track %d at %s, track %d at %s",
					ErrUnorderedTracks,
					block.Tracks[i-1].Number, block.Tracks[i-1].Start,
					block.Tracks[i].Number, block.Tracks[i].Start)}
			}
		}
		blocks = append(blocks, block)
	}
	sheet.Files = blocks
	if sheet.TrackCount() == 0 {
		return &ParseError{Source: sheet.Source, Err: ErrNoTracks}
	}
	return nil
}

// splitFileArgs separates `FILE "some name.wav" WAVE` into the filename
// and the trailing type token. The name may be unquoted.
func splitFileArgs(args string) (name, fileType string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	if strings.HasPrefix(args, "\"") {
		if end := strings.LastIndex(args, "\""); end > 0 {
			name = args[1:end]
			fileType = strings.TrimSpace(args[end+1:])
			return name, strings.ToUpper(fileType)
		}
	}
	fields := strings.Fields(args)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return strings.Join(fields[:len(fields)-1], " "), strings.ToUpper(fields[len(fields)-1])
}

func parseRem(sheet *Sheet, args string) {
	key, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	value := unquote(rest)
	switch strings.ToUpper(key) {
	case "GENRE":
		sheet.Genre = value
	case "DATE":
		sheet.Date = value
	case "DISCNUMBER":
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
			sheet.DiscNumber = n
		}
	}
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	return strings.Trim(value, "\"")
}
