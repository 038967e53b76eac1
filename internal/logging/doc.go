// Package logging assembles the structured slog loggers used across
// flac-belcher. It owns the console and JSON handlers, level plumbing,
// and component tagging, plus a no-op logger for tests and wiring code
// that cannot fail.
package logging
