package flightrecorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/wodcoach/internal/flightrecorder"
	"github.com/myrjola/wodcoach/internal/testhelpers"
)

// The runtime allows a single active flight recorder, so these tests do not run in parallel.

func TestRecorder_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	recorder, err := flightrecorder.New(logger, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err = recorder.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer recorder.Stop()

	path := recorder.Capture(t.Context(), "suggestion-timeout")
	if path == "" {
		t.Fatal("no trace captured")
	}
	if name := filepath.Base(path); !strings.HasPrefix(name, "suggestion-timeout-") || !strings.HasSuffix(name, ".trace") {
		t.Errorf("unexpected trace file name %s", name)
	}

	if again := recorder.Capture(t.Context(), "suggestion-timeout"); again != "" {
		t.Errorf("captured %s during cooldown", again)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read traces directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d trace files, want 1", len(entries))
	}
}

func TestRecorder_disabled(t *testing.T) {
	recorder, err := flightrecorder.New(testhelpers.NewLogger(testhelpers.NewWriter(t)), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if recorder != nil {
		t.Fatal("want nil recorder without a directory")
	}
	if err = recorder.Start(t.Context()); err != nil {
		t.Errorf("Start on nil recorder: %v", err)
	}
	if path := recorder.Capture(t.Context(), "timeout"); path != "" {
		t.Errorf("nil recorder captured %s", path)
	}
	recorder.Stop()
}
