// Package journal persists split run history in a SQLite database
// under the configured log directory. Each run records the jobs it
// dispatched and their outcomes so past runs can be inspected from the
// command line.
package journal
