// Package cuesheet parses CUE sheet text into an ordered in-memory
// representation of tracks with frame-exact start offsets.
//
// A sheet may contain several FILE blocks; track offsets are local to
// the block that declares them, so the parser tags every track with the
// block it belongs to rather than flattening the sheet. Unrecognized
// directives are tolerated (vendor extensions are common in the wild)
// and surfaced as per-line warnings instead of parse failures.
package cuesheet
