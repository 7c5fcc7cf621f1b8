package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger returned by [New].
type Options struct {
	// Level is one of debug, info, warn or error. Empty means debug.
	Level string
	// File is an optional path that receives a copy of the log output. The file is rotated by size and the
	// rotated files are compressed.
	File string
}

const maxLogFileMegabytes = 50

// New builds the application logger writing text records to stdout and, when [Options.File] is set, to a rotating
// log file. The returned close function flushes and closes the log file.
func New(stdout io.Writer, opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := stdout
	closeFn := func() error { return nil }
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogFileMegabytes,
			MaxBackups: 0,
			MaxAge:     0,
			LocalTime:  false,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, file)
		closeFn = file.Close
	}

	handler := NewContextHandler(slog.NewTextHandler(out, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	}))
	return slog.New(handler), closeFn, nil
}

// ParseLevel parses the textual level names used in configuration.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelDebug, fmt.Errorf("unknown log level %q", s)
	}
}
