package suggest_test

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/suggest"
	"github.com/myrjola/wodcoach/internal/workout"
)

func newGenerator() *suggest.Generator {
	return suggest.NewGenerator(catalog.Default(), rand.New(rand.NewPCG(1, 2)))
}

func names(exercises []workout.PlannedExercise) []string {
	out := make([]string, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, e.Name)
	}
	return out
}

func TestGenerator_Generate_exerciseCount(t *testing.T) {
	t.Parallel()
	g := newGenerator()
	for _, focus := range workout.FocusAreas {
		for _, level := range workout.FitnessLevels {
			for count := workout.MinExerciseCount; count <= workout.MaxExerciseCount; count++ {
				prefs := workout.Preferences{
					FitnessLevel:       level,
					FocusArea:          focus,
					Duration:           30,
					Intensity:          workout.IntensityModerate,
					ExerciseCount:      count,
					AvailableEquipment: []string{"dumbbells", "barbell", "bench", "box_platform"},
				}
				w := g.Generate(prefs)
				if len(w.Exercises) > count {
					t.Errorf("%s/%s/%d: got %d exercises", focus, level, count, len(w.Exercises))
				}
				if len(w.Exercises) == 0 {
					t.Errorf("%s/%s/%d: got no exercises", focus, level, count)
				}
				if w.Type != workout.TypeTemplate {
					t.Errorf("type = %q, want %q", w.Type, workout.TypeTemplate)
				}
				if err := workout.Validate(w); err != nil {
					t.Errorf("%s/%s/%d: %v", focus, level, count, err)
				}
			}
		}
	}
}

func TestGenerator_Generate_fullBodySplitsStrengthAndCardio(t *testing.T) {
	t.Parallel()
	w := newGenerator().Generate(workout.Preferences{
		FitnessLevel:       workout.LevelBeginner,
		FocusArea:          workout.FocusFullBody,
		Duration:           45,
		Intensity:          workout.IntensityModerate,
		ExerciseCount:      5,
		AvailableEquipment: []string{"dumbbells", "barbell"},
	})

	want := []string{
		"Barbell Back Squats", "Dumbbell Push-ups", "Dumbbell Squats",
		"Barbell Thrusters", "Dumbbell Thrusters",
	}
	if diff := cmp.Diff(want, names(w.Exercises)); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}
	if w.Name != "Full Body Beginner Workout" {
		t.Errorf("name = %q", w.Name)
	}
}

func TestGenerator_Generate_coreWithoutEquipment(t *testing.T) {
	t.Parallel()
	w := newGenerator().Generate(workout.Preferences{
		FitnessLevel:       workout.LevelBeginner,
		FocusArea:          workout.FocusCore,
		Duration:           20,
		Intensity:          workout.IntensityModerate,
		ExerciseCount:      3,
		AvailableEquipment: []string{},
	})

	if diff := cmp.Diff([]string{"Plank", "Crunches", "Leg Raises"}, names(w.Exercises)); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}
	for _, e := range w.Exercises {
		if e.Category != "core" {
			t.Errorf("%s: category = %q, want core", e.Name, e.Category)
		}
		if e.Reps != "8-12" || e.Rest != "60 seconds" {
			t.Errorf("%s: reps %q rest %q, want beginner defaults", e.Name, e.Reps, e.Rest)
		}
	}
}

func TestGenerator_Generate_neverNeedsMissingEquipment(t *testing.T) {
	t.Parallel()
	c := catalog.Default()
	g := newGenerator()
	owned := []string{"dumbbells"}
	for _, focus := range workout.FocusAreas {
		w := g.Generate(workout.Preferences{
			FitnessLevel:       workout.LevelIntermediate,
			FocusArea:          focus,
			Intensity:          workout.IntensityHigh,
			ExerciseCount:      8,
			AvailableEquipment: owned,
		})
		for _, e := range w.Exercises {
			for _, tag := range c.Requirements(e.Name) {
				if !slices.Contains(owned, tag) {
					t.Errorf("%s: %s needs %s", focus, e.Name, tag)
				}
			}
		}
	}
}

func TestGenerator_Options(t *testing.T) {
	t.Parallel()
	options := newGenerator().Options(workout.DefaultPreferences())

	got := make([]workout.FocusArea, 0, len(options))
	for _, w := range options {
		got = append(got, w.FocusArea)
	}
	want := []workout.FocusArea{
		workout.FocusUpperBody, workout.FocusLowerBody, workout.FocusCore, workout.FocusCardio, workout.FocusFullBody,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("focus areas mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerator_Quick(t *testing.T) {
	t.Parallel()
	prefs := workout.DefaultPreferences()
	prefs.ExerciseCount = 8
	prefs.Intensity = workout.IntensityHigh
	w := newGenerator().Quick(prefs)

	if len(w.Exercises) > 4 {
		t.Errorf("got %d exercises, want at most 4", len(w.Exercises))
	}
	if w.EstimatedDuration != 15 {
		t.Errorf("estimated duration = %d, want 15", w.EstimatedDuration)
	}
	if w.Intensity != workout.IntensityModerate {
		t.Errorf("intensity = %q, want moderate", w.Intensity)
	}
	if !strings.HasPrefix(w.Name, "Quick ") {
		t.Errorf("name = %q, want Quick prefix", w.Name)
	}
}

func TestGenerator_Personalized(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	workoutWith := func(categories ...string) workout.Workout {
		w := workout.Workout{Name: "w", CreatedAt: now}
		for _, c := range categories {
			w.Exercises = append(w.Exercises, workout.PlannedExercise{Name: c, Reps: "10", Category: c})
		}
		return w
	}

	tests := []struct {
		name    string
		history []workout.Workout
		want    workout.FocusArea
	}{
		{name: "no history", history: nil, want: workout.FocusFullBody},
		{
			name: "least counted valid focus area",
			history: []workout.Workout{
				workoutWith("upper body", "upper body", "core"),
				workoutWith("upper body", "core", "lower body", "strength"),
			},
			want: workout.FocusLowerBody,
		},
		{
			name:    "uncategorized exercises count as full body",
			history: []workout.Workout{workoutWith("", "", "cardio")},
			want:    workout.FocusCardio,
		},
		{
			name: "only the five most recent count",
			history: []workout.Workout{
				workoutWith("core", "core"), workoutWith("core"), workoutWith("core"), workoutWith("core"),
				workoutWith("core", "cardio"), workoutWith("upper body"),
			},
			want: workout.FocusCardio,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := newGenerator().Personalized(workout.DefaultPreferences(), tt.history)
			if w.FocusArea != tt.want {
				t.Errorf("focus area = %q, want %q", w.FocusArea, tt.want)
			}
		})
	}
}
