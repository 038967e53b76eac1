// Package config loads, normalizes, and validates flac-belcher
// configuration from TOML, with environment variable overrides kept
// compatible with the original tool (FFMPEG_PATH, DIR_IN, DIR_OUT,
// DRY_RUN, HIDE_FFMPEG_LOGS).
package config
