package stats_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/wodcoach/internal/stats"
	"github.com/myrjola/wodcoach/internal/workout"
)

func TestNormalizeExerciseName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaced variant", in: "Push Ups", want: "push-ups"},
		{name: "singular", in: "pushup", want: "push-ups"},
		{name: "upper case", in: "PUSHUPS", want: "push-ups"},
		{name: "surrounding whitespace", in: "  KB Swing ", want: "kettlebell swings"},
		{name: "whole words inside a longer name", in: "Barbell Back Squat", want: "back squats"},
		{name: "longest key wins", in: "wall balls 20lb", want: "wall balls"},
		{name: "no match inside a word", in: "Arrow Drill", want: "Arrow drill"},
		{name: "unknown is capitalized", in: "turkish GET-UP", want: "Turkish get-up"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stats.NormalizeExerciseName(tt.in); got != tt.want {
				t.Errorf("NormalizeExerciseName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStreak(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC)
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n).Add(-3 * time.Hour) }

	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "no workouts", dates: nil, want: 0},
		{name: "today and yesterday", dates: []time.Time{daysAgo(0), daysAgo(1)}, want: 2},
		{name: "today and three days ago", dates: []time.Time{daysAgo(0), daysAgo(3)}, want: 1},
		{name: "nothing today", dates: []time.Time{daysAgo(1), daysAgo(2)}, want: 0},
		{name: "several workouts on one day", dates: []time.Time{daysAgo(0), now, daysAgo(1), daysAgo(1)}, want: 2},
		{name: "unsorted input", dates: []time.Time{daysAgo(2), daysAgo(0), daysAgo(1)}, want: 3},
		{name: "future days ignored", dates: []time.Time{now.AddDate(0, 0, 1), daysAgo(0)}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stats.Streak(tt.dates, now); got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreak_usesCalendarDaysOfNow(t *testing.T) {
	t.Parallel()
	helsinki := time.FixedZone("EET", 2*60*60)
	now := time.Date(2025, 3, 12, 0, 30, 0, 0, helsinki)
	// 23:00 UTC on the 11th is already the 12th in Helsinki.
	lateWorkout := time.Date(2025, 3, 11, 23, 0, 0, 0, time.UTC)
	yesterday := time.Date(2025, 3, 11, 8, 0, 0, 0, helsinki)

	if got := stats.Streak([]time.Time{lateWorkout, yesterday}, now); got != 2 {
		t.Errorf("Streak() = %d, want 2", got)
	}
}

func TestComputeExerciseStats(t *testing.T) {
	t.Parallel()
	older := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	workouts := []workout.Workout{
		{
			Name:      "Newer",
			CreatedAt: newer,
			Strength: &workout.StrengthSection{Exercises: []workout.PlannedExercise{
				{Name: "Back Squat", Sets: "5", Reps: "5", ActualSets: "5", ActualReps: "5", ActualWeight: "100kg"},
			}},
			WOD: &workout.WODSection{Exercises: []workout.PlannedExercise{
				{Name: "Burpees", Reps: "15", ActualReps: "12"},
			}},
		},
		{
			Name:      "Older",
			CreatedAt: older,
			Exercises: []workout.PlannedExercise{
				{Name: "back squats", Sets: "3", Reps: "8", ActualSets: "3", ActualReps: "8", ActualWeight: "80"},
				{Name: "Push Ups", Reps: "10", Category: "upper body"},
			},
		},
	}

	got := stats.ComputeExerciseStats(workouts)
	want := map[string]stats.ExerciseStat{
		"back squats": {
			Name: "back squats", MaxWeight: 100, MaxReps: 8, MaxSets: 5, TotalWorkouts: 2,
			LastPerformed: newer, Category: "strength",
		},
		"burpees": {
			Name: "burpees", MaxWeight: 0, MaxReps: 12, MaxSets: 0, TotalWorkouts: 1,
			LastPerformed: newer, Category: "wod",
		},
		"push-ups": {
			Name: "push-ups", MaxWeight: 0, MaxReps: 0, MaxSets: 0, TotalWorkouts: 1,
			LastPerformed: older, Category: "upper body",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeExerciseStats() mismatch (-want +got):\n%s", diff)
	}

	sorted := stats.SortedExerciseStats(got)
	var names []string
	for _, s := range sorted {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"back squats", "burpees", "push-ups"}, names); diff != "" {
		t.Errorf("SortedExerciseStats() order mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	t.Run("no workouts", func(t *testing.T) {
		t.Parallel()
		want := stats.Summary{MostUsedFocusArea: stats.NoFocusArea}
		if diff := cmp.Diff(want, stats.ComputeStats(nil, now)); diff != "" {
			t.Errorf("ComputeStats() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()
		workouts := []workout.Workout{
			{
				Name: "a", FocusArea: workout.FocusCore, CreatedAt: now.Add(-time.Hour),
				EstimatedDuration: 30, ActualDuration: 35,
				Exercises: []workout.PlannedExercise{{Name: "Plank", Duration: "60 seconds"}},
			},
			{
				Name: "b", FocusArea: workout.FocusFullBody, CreatedAt: now.AddDate(0, 0, -1),
				EstimatedDuration: 45,
				Exercises: []workout.PlannedExercise{{Name: "planks"}, {Name: "Thruster", Reps: "21"}},
			},
			{
				Name: "c", FocusArea: workout.FocusFullBody, CreatedAt: now.AddDate(0, 0, -4),
				EstimatedDuration: 40,
				Exercises: []workout.PlannedExercise{{Name: "Row", Duration: "500m"}},
			},
		}
		want := stats.Summary{
			TotalWorkouts:          3,
			TotalExercises:         3,
			AverageWorkoutDuration: 40,
			MostUsedFocusArea:      string(workout.FocusFullBody),
			StreakDays:             2,
		}
		if diff := cmp.Diff(want, stats.ComputeStats(workouts, now)); diff != "" {
			t.Errorf("ComputeStats() mismatch (-want +got):\n%s", diff)
		}
	})
}
