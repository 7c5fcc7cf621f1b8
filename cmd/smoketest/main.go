package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/myrjola/wodcoach/internal/e2etest"
	"github.com/myrjola/wodcoach/internal/logging"
	"github.com/myrjola/wodcoach/internal/testhelpers"
)

func TestAuth(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err = client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// TestSuggestion generates a template workout, saves it and deletes it again. The model is not called so that
// the smoke test stays fast and free.
func TestSuggestion(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	doc, err := client.PostForm(ctx, "/suggestions", url.Values{
		"fitness_level":  {"beginner"},
		"focus_area":     {"full body"},
		"duration":       {"30"},
		"intensity":      {"moderate"},
		"exercise_count": {"4"},
		"mode":           {"template"},
	})
	if err != nil {
		return fmt.Errorf("generate suggestion: %w", err)
	}
	document := doc.Find("article.suggestion input[name='workout']").First().AttrOr("value", "")
	if document == "" {
		return errors.New("no suggestion generated")
	}

	if doc, err = client.PostForm(ctx, "/workouts", url.Values{"workout": {document}}); err != nil {
		return fmt.Errorf("save suggestion: %w", err)
	}
	id := path.Base(doc.Url.Path)
	if doc, err = client.SubmitForm(ctx, doc, "/workouts/"+id+"/delete", nil); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if got := strings.TrimSpace(doc.Find("#total-workouts").Text()); got != "0" {
		return fmt.Errorf("expected no workouts after deletion, got %s", got)
	}
	return nil
}

// deleteAccount removes the smoke test user.
func deleteAccount(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/preferences")
	if err != nil {
		return fmt.Errorf("get preferences: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/preferences/delete-user", nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	baseURL := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		baseURL = "http://" + hostname
		hostname = "localhost"
	}

	if client, err = e2etest.NewClient(baseURL, hostname, baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestAuth(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestSuggestion(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing suggestions", slog.Any("error", err))
		os.Exit(1)
	}
	if err = deleteAccount(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error deleting smoke test user", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
