package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log destination and verbosity.
type Options struct {
	// File enables rotated file logging when non-empty.
	File string
	// Debug lowers the level to slog.LevelDebug.
	Debug bool
}

// Setup installs the process-wide slog default: JSON records to stdout,
// teed into a size-capped rotating file when one is configured.
func Setup(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    25, // MiB per file
			MaxBackups: 4,
			Compress:   true,
		})
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
