// Package plan turns parsed cue sheets and resolved audio files into an
// ordered list of non-overlapping extraction jobs. It owns the
// multi-CD policy: deciding whether a directory's cue material
// describes one disc or several, and namespacing output names so discs
// never collide.
package plan
