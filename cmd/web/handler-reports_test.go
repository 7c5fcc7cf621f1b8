package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func Test_application_reports(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		logContains []string
	}{
		{
			name: "reporting API batch",
			body: `[{"age":0,"body":{"blockedURL":"eval","disposition":"enforce",` +
				`"documentURL":"https://example.com/","effectiveDirective":"script-src"},` +
				`"type":"csp-violation","url":"https://example.com/"}]`,
			contentType: "application/reports+json",
			wantStatus:  http.StatusNoContent,
			logContains: []string{"received browser report", "csp-violation", "script-src"},
		},
		{
			name: "legacy report-uri document",
			body: `{"csp-report": {"document-uri": "https://example.com/suggestions", ` +
				`"violated-directive": "script-src", "blocked-uri": "https://evil.example/x.js"}}`,
			contentType: "application/csp-report",
			wantStatus:  http.StatusNoContent,
			logContains: []string{"received browser report", "https://evil.example/x.js"},
		},
		{
			name:        "invalid JSON",
			body:        `{"csp-report": `,
			contentType: "application/csp-report",
			wantStatus:  http.StatusBadRequest,
			logContains: []string{"parse report"},
		},
		{
			name:        "unexpected content type",
			body:        `{}`,
			contentType: "text/plain",
			wantStatus:  http.StatusNoContent,
			logContains: []string{"report with unexpected content type", "text/plain"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var logs bytes.Buffer
			app := &application{ //nolint:exhaustruct // only the logger is used.
				logger: slog.New(slog.NewTextHandler(&logs, nil)),
			}
			req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			app.reports(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			for _, want := range tt.logContains {
				if !strings.Contains(logs.String(), want) {
					t.Errorf("log does not contain %q:\n%s", want, logs.String())
				}
			}
		})
	}
}
