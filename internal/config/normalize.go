package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()

	var err error
	if c.Paths.DirIn, err = expandPath(c.Paths.DirIn); err != nil {
		return fmt.Errorf("paths.dir_in: %w", err)
	}
	if c.Paths.DirOut, err = expandPath(c.Paths.DirOut); err != nil {
		return fmt.Errorf("paths.dir_out: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Transcoder.FFmpegPath = strings.TrimSpace(c.Transcoder.FFmpegPath)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// applyEnvOverrides honors the environment surface of the original
// tool, so existing container deployments keep working unchanged.
func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Transcoder.FFmpegPath = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("DIR_IN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DirIn = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("DIR_OUT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DirOut = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("DRY_RUN"); ok {
		c.Split.DryRun = parseBool(value)
	}
	if value, ok := os.LookupEnv("HIDE_FFMPEG_LOGS"); ok {
		c.Transcoder.HideLogs = parseBool(value)
	}
	if value, ok := os.LookupEnv("BELCHER_WORKERS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Split.Workers = n
		}
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
