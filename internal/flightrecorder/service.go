// Package flightrecorder keeps a rolling runtime trace in memory and writes it to disk when a request times out.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/wodcoach/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 32 * 1024 * 1024
	cooldown        = 30 * time.Minute
)

// Recorder captures the recent execution trace of the process. A nil *Recorder is valid and does nothing, which
// is what callers get when no traces directory is configured.
type Recorder struct {
	logger      *slog.Logger
	recorder    *trace.FlightRecorder
	directory   string
	lastCapture atomic.Int64
}

// New creates a recorder that writes trace files to directory. It returns nil when directory is empty.
func New(logger *slog.Logger, directory string) (*Recorder, error) {
	if directory == "" {
		return nil, nil //nolint:nilnil // recording is optional.
	}
	if err := os.MkdirAll(directory, 0o750); err != nil { //nolint:mnd // owner and group.
		return nil, errors.Wrap(err, "create traces directory", slog.String("directory", directory))
	}
	return &Recorder{
		logger: logger,
		recorder: trace.NewFlightRecorder(trace.FlightRecorderConfig{
			MinAge:   defaultMinAge,
			MaxBytes: defaultMaxBytes,
		}),
		directory:   directory,
		lastCapture: atomic.Int64{},
	}, nil
}

// Start begins recording. Only one recorder can run in a process at a time.
func (r *Recorder) Start(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if err := r.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started", slog.String("directory", r.directory))
	return nil
}

func (r *Recorder) Stop() {
	if r == nil {
		return
	}
	r.recorder.Stop()
}

// Capture writes the recorded trace to a file named after reason. Captures within the cooldown of the previous
// one are skipped. The path of the written file is returned, or an empty string when nothing was written.
func (r *Recorder) Capture(ctx context.Context, reason string) string {
	if r == nil || !r.recorder.Enabled() {
		return ""
	}
	now := time.Now()
	last := r.lastCapture.Load()
	if last != 0 && now.Sub(time.Unix(last, 0)) < cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.Time("last_capture", time.Unix(last, 0)))
		return ""
	}
	if !r.lastCapture.CompareAndSwap(last, now.Unix()) {
		return ""
	}

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	file, err := os.Create(path) //nolint:gosec // path is built from configuration.
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "create trace file", slog.String("file", path), slog.Any("error", err))
		return ""
	}
	defer func() {
		if err = file.Close(); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "close trace file", slog.String("file", path),
				slog.Any("error", err))
		}
	}()

	n, err := r.recorder.WriteTo(file)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "write trace", slog.String("file", path), slog.Any("error", err))
		return ""
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("file", path), slog.String("reason", reason), slog.Int64("bytes", n))
	return path
}
