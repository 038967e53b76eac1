package cuesheet

// Sheet is the parsed form of one cue file. Disc-level metadata is kept
// for transcoder metadata pass-through; it never affects split logic.
type Sheet struct {
	Performer  string
	Title      string
	Genre      string
	Date       string
	DiscNumber int // from REM DISCNUMBER, 0 when absent

	Files []FileBlock

	// Source is the path the sheet was read from, for error messages.
	Source string

	// Warnings collects per-line notes for directives that were
	// tolerated but not understood.
	Warnings []string
}

// FileBlock groups the tracks declared under one FILE directive. Track
// start offsets are relative to this block's audio file, not to the
// sheet as a whole.
type FileBlock struct {
	Name     string // filename as written in the sheet, extension untrusted
	FileType string // WAVE, BINARY, MP3, ... as written
	Tracks   []Track
}

// Track is a single split boundary. The end of a track is implicit: the
// next track's start within the same block, or end-of-file for the last
// track of a block.
type Track struct {
	Number    int
	Title     string
	Performer string
	Start     Frames
}

// TrackCount returns the number of tracks across all file blocks.
func (s *Sheet) TrackCount() int {
	n := 0
	for _, f := range s.Files {
		n += len(f.Tracks)
	}
	return n
}

// DeclaredFiles lists the distinct declared filenames in block order.
func (s *Sheet) DeclaredFiles() []string {
	seen := make(map[string]struct{}, len(s.Files))
	names := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}
