package testhelpers

import (
	"strings"
	"sync"
	"testing"
)

// Writer implements io.Writer by forwarding every line to t.Log so that logs are only shown for failing tests.
// It also keeps the lines so that tests can assert on what was logged.
type Writer struct {
	t        *testing.T
	testDone chan struct{}

	mu    sync.Mutex
	lines []string
}

// NewWriter creates a new Writer bound to t.
func NewWriter(t *testing.T) *Writer {
	w := &Writer{
		t:        t,
		testDone: make(chan struct{}),
		mu:       sync.Mutex{},
		lines:    nil,
	}
	t.Cleanup(func() {
		close(w.testDone)
	})
	return w
}

// Write implements io.Writer by writing to t.Log.
func (w *Writer) Write(p []byte) (int, error) {
	select {
	case <-w.testDone:
		panic("testwriter: attempted to write after test completion. Did you remember to t.Cleanup(server.Shutdown)?")
	default:
		output := strings.TrimSuffix(string(p), "\n")
		if output != "" {
			w.t.Log(output)
			w.mu.Lock()
			w.lines = append(w.lines, output)
			w.mu.Unlock()
		}
		return len(p), nil
	}
}

// Contains reports whether any logged line contains all of the given substrings.
func (w *Writer) Contains(substrings ...string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, line := range w.lines {
		matches := true
		for _, s := range substrings {
			if !strings.Contains(line, s) {
				matches = false
				break
			}
		}
		if matches {
			return true
		}
	}
	return false
}
