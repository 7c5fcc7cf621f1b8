package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/wodcoach/internal/ai"
	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/metrics"
	"github.com/myrjola/wodcoach/internal/workout"
	"golang.org/x/sync/errgroup"
)

// Model turns a prompt into free text. *ai.Client satisfies it.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggester runs the template and model suggestion paths and records what they produced.
type Suggester struct {
	generator  *Generator
	normalizer *Normalizer
	model      Model
	metrics    *metrics.Manager
	logger     *slog.Logger
	timeout    time.Duration
	rand       Rand
}

// NewSuggester wires the suggestion paths. A nil model disables the model path and every model suggestion
// is the synthetic fallback workout. A nil rng is seeded randomly.
func NewSuggester(
	c *catalog.Catalog,
	model Model,
	m *metrics.Manager,
	logger *slog.Logger,
	timeout time.Duration,
	rng *rand.Rand,
) *Suggester {
	r := newLockedRand(rng)
	return &Suggester{
		generator:  &Generator{catalog: c, rand: r},
		normalizer: &Normalizer{catalog: c, rand: r, logger: logger},
		model:      model,
		metrics:    m,
		logger:     logger,
		timeout:    timeout,
		rand:       r,
	}
}

// Suggestions is the answer to one suggestion request.
type Suggestions struct {
	// RequestToken identifies the request. Responses to overlapping requests can be told apart by it.
	RequestToken uuid.UUID
	Options      []workout.Workout
	AI           Result
}

// Suggest generates the template options and the model workout concurrently. It fails only when ctx is
// done before both are ready.
func (s *Suggester) Suggest(ctx context.Context, prefs workout.Preferences, history []workout.Workout) (Suggestions, error) {
	suggestions := Suggestions{RequestToken: uuid.New()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		suggestions.Options = s.Options(prefs)
		return nil
	})
	g.Go(func() error {
		suggestions.AI = s.AI(gctx, prefs, history)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Suggestions{}, fmt.Errorf("suggest workouts: %w", err)
	}
	return suggestions, nil
}

// AI asks the model for a workout and normalizes the answer. A disabled, failing or silent model gives
// the fallback workout.
func (s *Suggester) AI(ctx context.Context, prefs workout.Preferences, history []workout.Workout) Result {
	prefs = prefs.Normalize()
	s.metrics.CounterSuggestions.WithLabelValues(metrics.SourceAI).Inc()

	result := s.ask(ctx, prefs, history)
	s.metrics.CounterNormalizerResults.WithLabelValues(string(result.Tier)).Inc()
	return result
}

func (s *Suggester) ask(ctx context.Context, prefs workout.Preferences, history []workout.Workout) Result {
	fallback := Result{Workout: s.normalizer.Fallback(prefs), Tier: TierFallback}
	if s.model == nil {
		return fallback
	}

	prompt := BuildPrompt(prefs, history, NewEntropy(s.rand, time.Now()))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	raw, err := s.model.Generate(ctx, prompt)
	if errors.Is(err, ai.ErrDisabled) {
		return fallback
	}
	s.metrics.HistAIRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "model request failed", errors.SlogError(err))
		return fallback
	}
	if strings.TrimSpace(raw) == "" {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "model returned an empty response")
		return fallback
	}
	return s.normalizer.Normalize(ctx, raw, prefs)
}

// Template generates a single template workout.
func (s *Suggester) Template(prefs workout.Preferences) workout.Workout {
	s.metrics.CounterSuggestions.WithLabelValues(metrics.SourceTemplate).Inc()
	return s.generator.Generate(prefs)
}

// Options generates a template workout for every focus area.
func (s *Suggester) Options(prefs workout.Preferences) []workout.Workout {
	s.metrics.CounterSuggestions.WithLabelValues(metrics.SourceOptions).Inc()
	return s.generator.Options(prefs)
}

// Personalized generates a template workout for the focus area least trained recently.
func (s *Suggester) Personalized(prefs workout.Preferences, history []workout.Workout) workout.Workout {
	s.metrics.CounterSuggestions.WithLabelValues(metrics.SourcePersonalized).Inc()
	return s.generator.Personalized(prefs, history)
}

// Quick generates a short template workout.
func (s *Suggester) Quick(prefs workout.Preferences) workout.Workout {
	s.metrics.CounterSuggestions.WithLabelValues(metrics.SourceQuick).Inc()
	return s.generator.Quick(prefs)
}
