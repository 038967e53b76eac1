package config

const (
	defaultDirIn      = "/music/in"
	defaultDirOut     = "/music/out"
	defaultLogDir     = "~/.local/share/flac-belcher/logs"
	defaultFFmpegPath = "ffmpeg"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
)

// Default returns a Config populated with repository defaults. The
// directory defaults match the container layout the original tool
// shipped with.
func Default() Config {
	return Config{
		Paths: Paths{
			DirIn:  defaultDirIn,
			DirOut: defaultDirOut,
			LogDir: defaultLogDir,
		},
		Transcoder: Transcoder{
			FFmpegPath: defaultFFmpegPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
