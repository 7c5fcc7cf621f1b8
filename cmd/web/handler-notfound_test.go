package main

import (
	"net/http"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/wodcoach/internal/e2etest"
	"github.com/myrjola/wodcoach/internal/testhelpers"
)

func Test_application_notFound(t *testing.T) {
	ctx := t.Context()

	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	client := server.Client()
	if _, err = client.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "Unknown page", path: "/nonexistent"},
		{name: "Unknown static file", path: "/missing.css"},
		{name: "Directory listing", path: "/static/"},
		{name: "Unknown workout", path: "/workouts/unknown-id"},
		{name: "Unknown workout performance form", path: "/workouts/unknown-id/modify"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(ctx, tt.path)
			if err != nil {
				t.Fatalf("Failed to get %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
			}

			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				t.Fatalf("Failed to parse 404 document: %v", err)
			}
			checkCustom404Content(t, doc)
		})
	}

	t.Run("Repeating unknown workout", func(t *testing.T) {
		resp, err := client.Do(ctx, http.MethodPost, "/workouts/unknown-id/repeat",
			"application/x-www-form-urlencoded", nil)
		if err != nil {
			t.Fatalf("Failed to repeat: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})
}

func checkCustom404Content(t *testing.T, doc *goquery.Document) {
	t.Helper()

	if got := doc.Find("h1").Text(); got != "404" {
		t.Errorf("Expected h1 '404', got %q", got)
	}
	if got := doc.Find("h2").Text(); got != "Page Not Found" {
		t.Errorf("Expected h2 'Page Not Found', got %q", got)
	}
	if doc.Find("a[href='/']:contains('Go Home')").Length() == 0 {
		t.Error("Expected a 'Go Home' link")
	}
	if doc.Find("button:contains('Go Back')").Length() == 0 {
		t.Error("Expected a 'Go Back' button")
	}
}
