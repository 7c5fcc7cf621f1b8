package suggest_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/myrjola/wodcoach/internal/ai"
	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/metrics"
	"github.com/myrjola/wodcoach/internal/suggest"
	"github.com/myrjola/wodcoach/internal/testhelpers"
	"github.com/myrjola/wodcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type modelFunc func(ctx context.Context, prompt string) (string, error)

func (f modelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newSuggester(t *testing.T, model suggest.Model, timeout time.Duration) (*suggest.Suggester, *metrics.Manager) {
	t.Helper()
	m, _ := metrics.NewTestManager()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	s := suggest.NewSuggester(catalog.Default(), model, m, logger, timeout, rand.New(rand.NewPCG(11, 12)))
	return s, m
}

func TestSuggester_Suggest(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	model := modelFunc(func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return structuredResponse, nil
	})
	s, m := newSuggester(t, model, time.Second)

	got, err := s.Suggest(t.Context(), workout.DefaultPreferences(), nil)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	if len(got.Options) != 5 {
		t.Errorf("got %d options, want 5", len(got.Options))
	}
	if got.AI.Tier != suggest.TierStrictJSON {
		t.Errorf("tier = %q, want strict_json", got.AI.Tier)
	}
	if got.AI.Workout.Name != "Iron Lungs" {
		t.Errorf("name = %q", got.AI.Workout.Name)
	}
	if calls.Load() != 1 {
		t.Errorf("model called %d times, want 1", calls.Load())
	}
	if v := testutil.ToFloat64(m.CounterSuggestions.WithLabelValues(metrics.SourceAI)); v != 1 {
		t.Errorf("ai suggestions = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.CounterSuggestions.WithLabelValues(metrics.SourceOptions)); v != 1 {
		t.Errorf("options suggestions = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.CounterNormalizerResults.WithLabelValues(string(suggest.TierStrictJSON))); v != 1 {
		t.Errorf("strict_json results = %v, want 1", v)
	}
}

func TestSuggester_AI_fallsBack(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		model suggest.Model
	}{
		{name: "no model", model: nil},
		{name: "disabled", model: modelFunc(func(context.Context, string) (string, error) {
			return "", ai.ErrDisabled
		})},
		{name: "error", model: modelFunc(func(context.Context, string) (string, error) {
			return "", errors.New("status 503")
		})},
		{name: "empty response", model: modelFunc(func(context.Context, string) (string, error) {
			return "\n", nil
		})},
		{name: "timeout", model: modelFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, m := newSuggester(t, tt.model, 10*time.Millisecond)
			result := s.AI(t.Context(), workout.DefaultPreferences(), nil)
			if result.Tier != suggest.TierFallback {
				t.Errorf("tier = %q, want fallback", result.Tier)
			}
			if result.Workout.Type != workout.TypeAIGeneratedFallback {
				t.Errorf("type = %q", result.Workout.Type)
			}
			if v := testutil.ToFloat64(m.CounterNormalizerResults.WithLabelValues(string(suggest.TierFallback))); v != 1 {
				t.Errorf("fallback results = %v, want 1", v)
			}
		})
	}
}

func TestSuggester_Suggest_cancelled(t *testing.T) {
	t.Parallel()
	model := modelFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s, _ := newSuggester(t, model, time.Minute)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := s.Suggest(ctx, workout.DefaultPreferences(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSuggester_templateSources(t *testing.T) {
	t.Parallel()
	s, m := newSuggester(t, nil, time.Second)
	prefs := workout.DefaultPreferences()

	s.Template(prefs)
	s.Quick(prefs)
	s.Personalized(prefs, nil)

	for _, source := range []string{metrics.SourceTemplate, metrics.SourceQuick, metrics.SourcePersonalized} {
		if v := testutil.ToFloat64(m.CounterSuggestions.WithLabelValues(source)); v != 1 {
			t.Errorf("%s suggestions = %v, want 1", source, v)
		}
	}
}
