package config

import (
	"fmt"
	"strings"
)

var validLogFormats = map[string]bool{
	"console": true,
	"json":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for missing or inconsistent
// values. It assumes normalize has already run.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DirIn) == "" {
		problems = append(problems, "paths.dir_in must be set")
	}
	if strings.TrimSpace(c.Paths.DirOut) == "" {
		problems = append(problems, "paths.dir_out must be set")
	}
	if strings.TrimSpace(c.Transcoder.FFmpegPath) == "" {
		problems = append(problems, "transcoder.ffmpeg_path must be set")
	}
	if c.Split.Workers < 0 {
		problems = append(problems, "split.workers must be zero or positive")
	}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
