package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myrjola/wodcoach/internal/e2etest"
	"github.com/myrjola/wodcoach/internal/logging"
	"github.com/myrjola/wodcoach/internal/testhelpers"
	"github.com/myrjola/wodcoach/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	testTimeout                = 10 * time.Second
	userRegistrationTimeout    = 30 * time.Second
	scenarioTimeout            = 30 * time.Second
	historyTimeout             = 2 * time.Minute
	maxConcurrentRegistrations = 10
	maxConcurrentOperations    = 20
	numUsers                   = 10
	historyWorkouts            = 20
	baseWeight                 = 40
	weightRange                = 40
	successRateThreshold       = 95.0
	expectedArgsCount          = 2
	percentageMultiplier       = 100
)

// AuthenticatedUser holds a client with valid session.
type AuthenticatedUser struct {
	Client *e2etest.Client
	UserID string
}

func TestAuth(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
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

// SetupUsers registers the specified number of users concurrently.
func SetupUsers(ctx context.Context, baseURL, hostname string, logger *slog.Logger) ([]*AuthenticatedUser, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user registration", slog.Int("num_users", numUsers))

	var (
		users   = make([]*AuthenticatedUser, 0, numUsers)
		usersMu sync.Mutex
		g       errgroup.Group
	)
	g.SetLimit(maxConcurrentRegistrations)

	for i := range numUsers {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(ctx, userRegistrationTimeout)
			defer cancel()

			client, err := e2etest.NewClient(baseURL, hostname, baseURL)
			if err != nil {
				return fmt.Errorf("creating client for user %d: %w", i, err)
			}
			if _, err = client.Register(userCtx); err != nil {
				return fmt.Errorf("registering user %d: %w", i, err)
			}

			usersMu.Lock()
			users = append(users, &AuthenticatedUser{Client: client, UserID: fmt.Sprintf("user_%d", i)})
			usersMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "Some user registrations failed",
			slog.Int("successful_count", len(users)))
		return users, fmt.Errorf("registration failures: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users registered successfully", slog.Int("total_users", len(users)))
	return users, nil
}

// GenerateWorkoutHistory logs manual workouts so that the dashboard and the personalized suggestions have data
// to work with.
func GenerateWorkoutHistory(ctx context.Context, user *AuthenticatedUser) error {
	for i := range historyWorkouts {
		focus := workout.FocusAreas[i%len(workout.FocusAreas)]
		weight := baseWeight + (i*7)%weightRange //nolint:mnd // spread the weights.
		values := url.Values{
			"name":              {fmt.Sprintf("History %d", i+1)},
			"focus_area":        {string(focus)},
			"duration":          {"45"},
			"exercise_name":     {"Back Squat", "Pull-ups", "Rowing"},
			"exercise_sets":     {"5", "4", ""},
			"exercise_reps":     {"5", "8", ""},
			"exercise_duration": {"", "", "10 min"},
			"exercise_weight":   {strconv.Itoa(weight) + "kg", "", ""},
			"exercise_rest":     {"2min", "90s", ""},
		}
		if _, err := user.Client.PostForm(ctx, "/workouts", values); err != nil {
			return fmt.Errorf("log history workout %d: %w", i, err)
		}
	}
	return nil
}

// GenerateWorkoutHistoryForUsers generates workout history for all users concurrently.
func GenerateWorkoutHistoryForUsers(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	var failures atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRegistrations)

	for _, user := range users {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()

			if err := GenerateWorkoutHistory(historyCtx, user); err != nil {
				failures.Add(1)
				logger.LogAttrs(historyCtx, slog.LevelWarn, "Workout history generation failed",
					slog.String("user_id", user.UserID), slog.Any("error", err))
				return nil
			}
			logger.LogAttrs(historyCtx, slog.LevelDebug, "Generated workout history", slog.String("user_id", user.UserID))
			return nil
		})
	}
	_ = g.Wait()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("workout history generation failed for %d users", n)
	}
	return nil
}

// WorkoutScenario asks for a personalized suggestion, saves it, records the performance and views the
// dashboard.
func WorkoutScenario(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client

	doc, err := client.GetDoc(ctx, "/suggestions")
	if err != nil {
		return fmt.Errorf("get suggestions: %w", err)
	}
	if doc, err = client.PostForm(ctx, "/suggestions", url.Values{
		"fitness_level":  {"intermediate"},
		"focus_area":     {"full body"},
		"duration":       {"45"},
		"intensity":      {"high"},
		"exercise_count": {"5"},
		"equipment":      {"barbell", "dumbbells", "pullup_bar", "rowing_machine"},
		"mode":           {"personalized"},
	}); err != nil {
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

	if doc, err = client.GetDoc(ctx, "/workouts/"+id+"/modify"); err != nil {
		return fmt.Errorf("get performance form: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/workouts/"+id+"/modify", map[string]string{
		"Actual duration (minutes)": "42",
		"Completed":                 "on",
	}); err != nil {
		return fmt.Errorf("record performance: %w", err)
	}

	if doc, err = client.GetDoc(ctx, "/"); err != nil {
		return fmt.Errorf("get dashboard: %w", err)
	}
	if strings.TrimSpace(doc.Find("#total-workouts").Text()) == "0" {
		return errors.New("dashboard shows no workouts")
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Workout scenario completed",
		slog.String("user_id", user.UserID), slog.String("workout_id", id))
	return nil
}

// RunLoadTest runs the workout scenario for every user concurrently.
func RunLoadTest(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := WorkoutScenario(scenarioCtx, user, logger); err != nil {
				failureCount.Add(1)
				// One failing scenario must not stop the others.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("user_id", user.UserID),
					slog.Any("error", err))
				return nil
			}

			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)

	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	logger.LogAttrs(ctx, slog.LevelInfo, "Running smoke test first...")
	baseURL := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		baseURL = "http://" + hostname
		hostname = "localhost"
	}
	client, err := e2etest.NewClient(baseURL, hostname, baseURL)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}

	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err = TestAuth(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test passed")

	setupStart := time.Now()
	users, err := SetupUsers(ctx, baseURL, hostname, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("authenticated_users", len(users)))

	historyStart := time.Now()
	if err = GenerateWorkoutHistoryForUsers(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some workout history generation failed, continuing with load test",
			slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Workout history generation completed",
		slog.Duration("history_duration", time.Since(historyStart)),
		slog.Int("workouts_per_user", historyWorkouts))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
