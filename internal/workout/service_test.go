package workout_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/wodcoach/internal/contexthelpers"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/sqlite"
	"github.com/myrjola/wodcoach/internal/testhelpers"
	"github.com/myrjola/wodcoach/internal/workout"
)

// newTestService creates a service backed by an in-memory database with one registered user. The returned
// context is authenticated as that user.
func newTestService(t *testing.T) (context.Context, *workout.Service, *sqlite.Database) {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	return authenticatedAs(t, ctx, db, "athlete"), workout.NewService(db, logger), db
}

func authenticatedAs(t *testing.T, ctx context.Context, db *sqlite.Database, name string) context.Context {
	t.Helper()
	var userID int
	err := db.ReadWrite.QueryRowContext(ctx,
		"INSERT INTO users (webauthn_user_id, display_name) VALUES (?, ?) RETURNING id",
		[]byte(name+"-webauthn-id"), name).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}
	return contexthelpers.WithAuthenticatedUser(ctx, userID)
}

func structuredWorkout() workout.Workout {
	return workout.Workout{
		Name:              "Barbell Complex",
		FocusArea:         workout.FocusFullBody,
		EstimatedDuration: 45,
		Difficulty:        workout.LevelIntermediate,
		Intensity:         workout.IntensityModerate,
		Type:              workout.TypeAIGenerated,
		Warmup: &workout.Section{
			Duration: "10 minutes",
			Exercises: []workout.SectionExercise{
				{Name: "Row", Duration: "5 minutes", Instructions: "Easy pace"},
				{Name: "Air Squats", Duration: "2 minutes"},
			},
		},
		Strength: &workout.StrengthSection{
			Duration: "15 minutes",
			Focus:    "Back Squat",
			Exercises: []workout.PlannedExercise{
				{Name: "Back Squat", Sets: "5", Reps: "5", Rest: "3 minutes", Category: "strength"},
			},
		},
		WOD: &workout.WODSection{
			Duration:    "12 minutes",
			WorkoutType: "AMRAP",
			Description: "As many rounds as possible in 12 minutes",
			Exercises: []workout.PlannedExercise{
				{Name: "Pull-ups", Reps: "10", Category: "wod"},
				{Name: "Burpees", Reps: "15", Category: "wod"},
			},
		},
		Cooldown: &workout.Section{
			Duration:  "5 minutes",
			Exercises: []workout.SectionExercise{{Name: "Stretch", Duration: "5 minutes"}},
		},
	}
}

func Test_Create_ManualWorkoutDropsIncompleteExercises(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	created, err := svc.Create(ctx, workout.Workout{
		Name: "  Monday  ",
		Exercises: []workout.PlannedExercise{
			{Name: "Push-ups", Sets: "3", Reps: "10"},
			{Name: "", Sets: "3", Reps: "10"},
			{Name: "Plank", Duration: "60 seconds"},
			{Name: "Lunges", Sets: "3"},
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if created.Name != "Monday" {
		t.Errorf("Name = %q, want %q", created.Name, "Monday")
	}
	if created.Type != workout.TypeManual {
		t.Errorf("Type = %q, want %q", created.Type, workout.TypeManual)
	}
	var names []string
	for _, e := range created.Exercises {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"Push-ups", "Plank"}, names); diff != "" {
		t.Errorf("exercise names mismatch (-want +got):\n%s", diff)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", created.CreatedAt, created.UpdatedAt)
	}
}

func Test_Create_RejectsInvalidWorkouts(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	tests := []struct {
		name    string
		workout workout.Workout
		want    []string
	}{
		{
			name:    "missing name",
			workout: workout.Workout{Exercises: []workout.PlannedExercise{{Name: "Squat", Reps: "10"}}},
			want:    []string{workout.ProblemNameRequired},
		},
		{
			name:    "no exercises",
			workout: workout.Workout{Name: "Empty"},
			want:    []string{workout.ProblemNoExercises},
		},
		{
			name: "only incomplete exercises",
			workout: workout.Workout{Name: "Sloppy", Exercises: []workout.PlannedExercise{
				{Name: "Squat"},
				{Reps: "10"},
			}},
			want: []string{workout.ProblemNoValidExercises},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.workout)
			if !errors.Is(err, workout.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			var verr *workout.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() error %v is not a ValidationError", err)
			}
			if diff := cmp.Diff(tt.want, verr.Problems); diff != "" {
				t.Errorf("problems mismatch (-want +got):\n%s", diff)
			}
		})
	}

	workouts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(workouts) != 0 {
		t.Errorf("List() returned %d workouts after rejected creates, want 0", len(workouts))
	}
}

func Test_CreateThenGet_RoundTripsStructuredWorkout(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	created, err := svc.Create(ctx, structuredWorkout())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if got.ExerciseCount() != 3 {
		t.Errorf("ExerciseCount() = %d, want 3", got.ExerciseCount())
	}
}

func Test_List_NewestFirstAndScopedToUser(t *testing.T) {
	ctx, svc, db := newTestService(t)

	for _, name := range []string{"first", "second", "third"} {
		w := workout.Workout{Name: name, Exercises: []workout.PlannedExercise{{Name: "Squat", Reps: "10"}}}
		if _, err := svc.Create(ctx, w); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	workouts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(workouts) != 3 {
		t.Fatalf("List() returned %d workouts, want 3", len(workouts))
	}
	for i := 1; i < len(workouts); i++ {
		if workouts[i].CreatedAt.After(workouts[i-1].CreatedAt) {
			t.Errorf("workout %d created at %v is newer than workout %d created at %v",
				i, workouts[i].CreatedAt, i-1, workouts[i-1].CreatedAt)
		}
	}

	otherCtx := authenticatedAs(t, ctx, db, "other")
	others, err := svc.List(otherCtx)
	if err != nil {
		t.Fatalf("List() for other user error = %v", err)
	}
	if len(others) != 0 {
		t.Errorf("other user sees %d workouts, want 0", len(others))
	}
	if _, err = svc.Get(otherCtx, workouts[0].ID); !workout.IsNotFound(err) {
		t.Errorf("Get() for other user error = %v, want not found", err)
	}
}

func Test_Get_UnknownWorkout(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	_, err := svc.Get(ctx, "missing")
	if !workout.IsNotFound(err) {
		t.Fatalf("Get() error = %v, want not found", err)
	}
	if !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("Get() error %v does not wrap ErrNotFound", err)
	}
	attrs := errors.SlogError(err).Value.Group()
	if len(attrs) == 0 || attrs[0].Key != "message" {
		t.Fatalf("SlogError() attributes = %v, want a message first", attrs)
	}
	if got, want := attrs[0].Value.String(), "get workout missing: workout not found"; got != want {
		t.Errorf("SlogError() message = %q, want %q", got, want)
	}
}

func Test_Update_MergesFields(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	created, err := svc.Create(ctx, structuredWorkout())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	updated, err := svc.Update(ctx, created.ID, workout.Workout{Name: "Renamed", Notes: "felt strong"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Name != "Renamed" || updated.Notes != "felt strong" {
		t.Errorf("Update() name %q notes %q, want Renamed and felt strong", updated.Name, updated.Notes)
	}
	if updated.WOD == nil || updated.WOD.WorkoutType != "AMRAP" {
		t.Errorf("Update() dropped the WOD section: %+v", updated.WOD)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v is before %v", updated.UpdatedAt, created.UpdatedAt)
	}

	if _, err = svc.Update(ctx, "missing", workout.Workout{Name: "x"}); !workout.IsNotFound(err) {
		t.Errorf("Update() of missing workout error = %v, want not found", err)
	}
}

func Test_RecordPerformance(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	created, err := svc.Create(ctx, structuredWorkout())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.RecordPerformance(ctx, created.ID, workout.Performance{
		Exercises: []workout.ExercisePerformance{
			{Section: workout.SectionStrength, Index: 0, ActualSets: "5", ActualReps: "5", ActualWeight: "100kg"},
			{Section: workout.SectionWOD, Index: 1, ActualReps: "12", Notes: "scaled"},
		},
		Items:          []workout.ItemPerformance{{Section: workout.SectionWarmup, Index: 0, Completed: true}},
		ActualDuration: 50,
		Notes:          "good session",
		Completed:      true,
	})
	if err != nil {
		t.Fatalf("RecordPerformance() error = %v", err)
	}

	squat := got.Strength.Exercises[0]
	if squat.Sets != "5" || squat.ActualWeight != "100kg" || squat.ActualReps != "5" {
		t.Errorf("squat = %+v, want planned sets kept and actuals recorded", squat)
	}
	if burpees := got.WOD.Exercises[1]; burpees.ActualReps != "12" || burpees.Notes != "scaled" {
		t.Errorf("burpees = %+v, want actual reps 12 and notes", burpees)
	}
	if !got.Warmup.Exercises[0].Completed || got.Warmup.Exercises[1].Completed {
		t.Errorf("warmup completion = %+v", got.Warmup.Exercises)
	}
	if got.ActualDuration != 50 || got.Duration() != 50 || !got.Completed || got.Notes != "good session" {
		t.Errorf("workout level performance not recorded: %+v", got)
	}

	// Empty values keep what was recorded before.
	got, err = svc.RecordPerformance(ctx, created.ID, workout.Performance{
		Exercises: []workout.ExercisePerformance{{Section: workout.SectionStrength, Index: 0, ActualReps: "4"}},
		Completed: true,
	})
	if err != nil {
		t.Fatalf("second RecordPerformance() error = %v", err)
	}
	squat = got.Strength.Exercises[0]
	if squat.ActualWeight != "100kg" || squat.ActualReps != "4" {
		t.Errorf("squat after second record = %+v, want weight kept and reps replaced", squat)
	}
	if got.Notes != "good session" || got.ActualDuration != 50 {
		t.Errorf("workout notes %q duration %d were cleared", got.Notes, got.ActualDuration)
	}

	_, err = svc.RecordPerformance(ctx, created.ID, workout.Performance{
		Exercises: []workout.ExercisePerformance{{Section: workout.SectionWOD, Index: 7, ActualReps: "1"}},
	})
	if !errors.Is(err, workout.ErrValidation) {
		t.Errorf("RecordPerformance() with bad index error = %v, want ErrValidation", err)
	}
}

func Test_DeleteAndRepeat(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	created, err := svc.Create(ctx, structuredWorkout())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	repeated, err := svc.Repeat(ctx, created.ID)
	if err != nil {
		t.Fatalf("Repeat() error = %v", err)
	}
	if repeated.ID == created.ID {
		t.Error("Repeat() reused the original id")
	}
	if repeated.Name != "Barbell Complex (Repeated)" {
		t.Errorf("Repeat() name = %q", repeated.Name)
	}
	if diff := cmp.Diff(created.WOD, repeated.WOD); diff != "" {
		t.Errorf("Repeat() WOD mismatch (-want +got):\n%s", diff)
	}

	if err = svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err = svc.Get(ctx, created.ID); !workout.IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
	if err = svc.Delete(ctx, created.ID); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
	if _, err = svc.Repeat(ctx, created.ID); !workout.IsNotFound(err) {
		t.Errorf("Repeat() of deleted workout error = %v, want not found", err)
	}
}

func Test_Preferences(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	prefs, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if diff := cmp.Diff(workout.DefaultPreferences(), prefs); diff != "" {
		t.Errorf("default preferences mismatch (-want +got):\n%s", diff)
	}

	saved, err := svc.SavePreferences(ctx, workout.Preferences{
		FitnessLevel:       workout.LevelAdvanced,
		FocusArea:          workout.FocusCore,
		Duration:           30,
		Intensity:          workout.IntensityHigh,
		ExerciseCount:      20,
		AvailableEquipment: []string{"kettlebells"},
	})
	if err != nil {
		t.Fatalf("SavePreferences() error = %v", err)
	}
	if saved.ExerciseCount != workout.MaxExerciseCount {
		t.Errorf("ExerciseCount = %d, want clamped to %d", saved.ExerciseCount, workout.MaxExerciseCount)
	}
	got, err := svc.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("saved preferences mismatch (-want +got):\n%s", diff)
	}
}

func Test_Export(t *testing.T) {
	ctx, svc, _ := newTestService(t)

	if _, err := svc.Create(ctx, structuredWorkout()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	export, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(export.Workouts) != 1 || !strings.HasPrefix(export.Workouts[0].Name, "Barbell") {
		t.Errorf("Export() workouts = %+v", export.Workouts)
	}
	if export.Preferences.FitnessLevel != workout.LevelBeginner {
		t.Errorf("Export() preferences = %+v, want defaults", export.Preferences)
	}
}
