package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep.
	MaxFiles int
	// Stderr, when set, also receives every record.
	Stderr io.Writer
	// SyncEveryWrite fsyncs the file after each record.
	SyncEveryWrite bool
}

// DefaultConfig returns file logging defaults.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// DebugConfig returns configuration for --debug runs.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Stderr = os.Stderr
	cfg.SyncEveryWrite = true
	return cfg
}

// Setup builds a JSON logger writing to the rotating file and, if set, to
// cfg.Stderr. The returned cleanup closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		out := cfg.Stderr
		if out == nil {
			out = io.Discard
		}
		return newJSONLogger(out, cfg.Level), func() {}, nil
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}
	writer.SetImmediateSync(cfg.SyncEveryWrite)

	var output io.Writer = writer
	if cfg.Stderr != nil {
		output = io.MultiWriter(writer, cfg.Stderr)
	}

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return newJSONLogger(output, cfg.Level), cleanup, nil
}

// SetupDefault installs the logger built from cfg as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// SetupStderr installs a logger writing records at or above level to w.
func SetupStderr(w io.Writer, level string) {
	slog.SetDefault(newJSONLogger(w, level))
}

func newJSONLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
