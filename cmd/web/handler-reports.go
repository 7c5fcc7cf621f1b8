package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const maxReportBytes = 64 * 1024

// reports receives Content Security Policy violations, both the legacy report-uri documents and the Reporting API
// batches, and logs them.
func (app *application) reports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch contentType := r.Header.Get("Content-Type"); contentType {
	case "", "application/csp-report", "application/json", "application/reports+json":
	default:
		app.logger.LogAttrs(ctx, slog.LevelWarn, "report with unexpected content type",
			slog.String("content_type", contentType))
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes))
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "read report body", slog.Any("error", err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var payload any
	if err = json.Unmarshal(body, &payload); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "parse report",
			slog.Any("error", err), slog.String("body", string(body)))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	app.logger.LogAttrs(ctx, slog.LevelWarn, "received browser report",
		slog.Any("payload", payload), slog.String("user_agent", r.Header.Get("User-Agent")))
	w.WriteHeader(http.StatusNoContent)
}
