// Package runner orchestrates a split run: walk the input tree, plan
// each directory, dispatch the combined job list, and record outcomes.
// Directory-level problems become logged skips; only configuration and
// environment errors abort the run.
package runner
