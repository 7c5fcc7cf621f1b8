package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/wodcoach/internal/contexthelpers"
	"github.com/myrjola/wodcoach/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	templatePath, err := resolveAndVerifyTemplatePath("")
	if err != nil {
		t.Fatalf("resolve template path: %v", err)
	}
	m, _ := metrics.NewTestManager()
	return &application{ //nolint:exhaustruct // only what the middleware needs.
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:           m,
		templateFS:        os.DirFS(templatePath),
		suggestionTimeout: 23 * time.Second,
	}
}

func sleeper(d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(d)
		_, _ = w.Write([]byte("done"))
	})
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleep    time.Duration
		slow     bool
		timesOut bool
	}{
		{name: "completes within timeout", sleep: 500 * time.Millisecond, slow: false, timesOut: false},
		{name: "times out", sleep: 3 * time.Second, slow: false, timesOut: true},
		{name: "suggestion routes wait for the model", sleep: 20 * time.Second, slow: true, timesOut: false},
		{name: "suggestion routes time out", sleep: 25 * time.Second, slow: true, timesOut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := newTestApplication(t)
				handler := app.timeout(sleeper(tt.sleep))
				if tt.slow {
					handler = app.slowTimeout(sleeper(tt.sleep))
				}
				req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)
				time.Sleep(tt.sleep)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "Timeout") {
						t.Errorf("Expected timeout page in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_mustAuthenticate(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t)
	handler := app.mustAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secret"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preferences", nil))
	if w.Code != http.StatusSeeOther {
		t.Errorf("anonymous status = %d, want 303", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Error("anonymous request reached the handler")
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, contexthelpers.AuthenticateContext(httptest.NewRequest(http.MethodGet, "/preferences", nil), 1))
	if w.Code != http.StatusOK || w.Body.String() != "secret" {
		t.Errorf("authenticated response = %d %q", w.Code, w.Body.String())
	}
}

func Test_application_recoverPanic(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t)
	handler := app.logAndTraceRequest(secureHeaders(app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter,
		*http.Request) {
		panic("boom")
	}))))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if v := testutil.ToFloat64(app.metrics.CounterHandleRequestPanic); v != 1 {
		t.Errorf("panics = %v, want 1", v)
	}
	if v := testutil.ToFloat64(app.metrics.CounterRequests.WithLabelValues(http.MethodGet, "500")); v != 1 {
		t.Errorf("GET 500 requests = %v, want 1", v)
	}
}
