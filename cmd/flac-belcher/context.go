package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/vladkar/flac-belcher/internal/config"
	"github.com/vladkar/flac-belcher/internal/logging"
)

// commandContext loads configuration once and shares it across
// subcommands.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the run logger from config, with an optional file
// sink under the log directory.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	opts := logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Writers: []io.Writer{os.Stderr},
	}
	cleanup := func() {}
	if path := cfg.LogFilePath(); path != "" {
		if file, err := logging.OpenLogFile(path); err == nil {
			opts.Writers = append(opts.Writers, file)
			cleanup = func() { _ = file.Close() }
		}
	}
	logger, err := logging.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return logger, cleanup, nil
}
