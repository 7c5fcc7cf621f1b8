package workout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/logging"
	"github.com/myrjola/wodcoach/internal/sqlite"
)

// Service handles the business logic for workout management.
type Service struct {
	workouts *sqliteWorkoutRepository
	prefs    *sqlitePreferencesRepository
	logger   *slog.Logger
}

// NewService creates a new workout service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	return &Service{
		workouts: newSQLiteWorkoutRepository(db, logger),
		prefs:    newSQLitePreferencesRepository(db, logger),
		logger:   logger,
	}
}

// Create validates and saves a workout. Manual workouts are cleaned of incomplete exercises first.
func (s *Service) Create(ctx context.Context, w Workout) (Workout, error) {
	var err error
	if w.Type == "" || w.Type == TypeManual {
		if w, err = PrepareManual(w); err != nil {
			return Workout{}, err
		}
	} else if err = Validate(w); err != nil {
		return Workout{}, err
	}
	w.Name = strings.TrimSpace(w.Name)

	created, err := s.workouts.Create(ctx, w)
	if err != nil {
		return Workout{}, fmt.Errorf("create workout: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created workout",
		slog.String("workout_id", created.ID), slog.String("type", string(created.Type)))
	return created, nil
}

// List returns all workouts of the user, newest first.
func (s *Service) List(ctx context.Context) ([]Workout, error) {
	workouts, err := s.workouts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}

// Get returns a single workout. A missing workout gives [ErrNotFound].
func (s *Service) Get(ctx context.Context, id string) (Workout, error) {
	w, err := s.workouts.Get(ctx, id)
	if err != nil {
		return Workout{}, fmt.Errorf("get workout %s: %w", id, err)
	}
	return w, nil
}

// Update merges the non-zero fields of patch into the stored workout.
func (s *Service) Update(ctx context.Context, id string, patch Workout) (Workout, error) {
	w, err := s.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		merged := merge(*w, patch)
		if err := Validate(merged); err != nil {
			return false, err
		}
		*w = merged
		return true, nil
	})
	if err != nil {
		return Workout{}, fmt.Errorf("update workout %s: %w", id, err)
	}
	return w, nil
}

func merge(w Workout, patch Workout) Workout {
	w = w.Clone()
	patch = patch.Clone()
	if patch.Name != "" {
		w.Name = patch.Name
	}
	if patch.FocusArea != "" {
		w.FocusArea = patch.FocusArea
	}
	if patch.EstimatedDuration != 0 {
		w.EstimatedDuration = patch.EstimatedDuration
	}
	if patch.Difficulty != "" {
		w.Difficulty = patch.Difficulty
	}
	if patch.Intensity != "" {
		w.Intensity = patch.Intensity
	}
	if patch.Type != "" {
		w.Type = patch.Type
	}
	if patch.Warmup != nil {
		w.Warmup = patch.Warmup
	}
	if patch.Strength != nil {
		w.Strength = patch.Strength
	}
	if patch.WOD != nil {
		w.WOD = patch.WOD
	}
	if patch.Exercises != nil {
		w.Exercises = patch.Exercises
	}
	if patch.Cooldown != nil {
		w.Cooldown = patch.Cooldown
	}
	if patch.ActualDuration != 0 {
		w.ActualDuration = patch.ActualDuration
	}
	if patch.Notes != "" {
		w.Notes = patch.Notes
	}
	if patch.Completed {
		w.Completed = true
	}
	if patch.Preferences != nil {
		w.Preferences = patch.Preferences
	}
	return w
}

// RecordPerformance stores what the user did. Planned values are kept, and empty values leave previously
// recorded ones in place.
func (s *Service) RecordPerformance(ctx context.Context, id string, perf Performance) (Workout, error) {
	w, err := s.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		return true, applyPerformance(w, perf)
	})
	if err != nil {
		return Workout{}, fmt.Errorf("record performance %s: %w", id, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "recorded performance",
		slog.String("workout_id", id), slog.Bool("completed", w.Completed))
	return w, nil
}

func overwrite[T ~string](dst *T, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = T(value)
	}
}

func exerciseList(w *Workout, section SectionName) []PlannedExercise {
	switch section { //nolint:exhaustive // only sections with planned exercises.
	case SectionExercises:
		return w.Exercises
	case SectionStrength:
		if w.Strength != nil {
			return w.Strength.Exercises
		}
	case SectionWOD:
		if w.WOD != nil {
			return w.WOD.Exercises
		}
	}
	return nil
}

func itemList(w *Workout, section SectionName) []SectionExercise {
	switch section { //nolint:exhaustive // only warmup and cooldown have items.
	case SectionWarmup:
		if w.Warmup != nil {
			return w.Warmup.Exercises
		}
	case SectionCooldown:
		if w.Cooldown != nil {
			return w.Cooldown.Exercises
		}
	}
	return nil
}

func applyPerformance(w *Workout, perf Performance) error {
	var problems []string
	for _, p := range perf.Exercises {
		list := exerciseList(w, p.Section)
		if p.Index < 0 || p.Index >= len(list) {
			problems = append(problems, fmt.Sprintf("no exercise %d in %s", p.Index, p.Section))
			continue
		}
		e := &list[p.Index]
		overwrite(&e.ActualSets, p.ActualSets)
		overwrite(&e.ActualReps, p.ActualReps)
		overwrite(&e.ActualWeight, p.ActualWeight)
		overwrite(&e.ActualRest, p.ActualRest)
		overwrite(&e.Notes, p.Notes)
	}
	for _, p := range perf.Items {
		list := itemList(w, p.Section)
		if p.Index < 0 || p.Index >= len(list) {
			problems = append(problems, fmt.Sprintf("no item %d in %s", p.Index, p.Section))
			continue
		}
		list[p.Index].Completed = p.Completed
		overwrite(&list[p.Index].Notes, p.Notes)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	if perf.ActualDuration > 0 {
		w.ActualDuration = Minutes(perf.ActualDuration)
	}
	overwrite(&w.Notes, perf.Notes)
	w.Completed = perf.Completed
	return nil
}

// Delete removes a workout. Deleting a workout that does not exist succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	existed, err := s.workouts.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete workout %s: %w", id, err)
	}
	if !existed {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "workout to delete does not exist", slog.String("workout_id", id))
	}
	return nil
}

const repeatedSuffix = " (Repeated)"

// Repeat saves a copy of a workout under a new id with fresh timestamps.
func (s *Service) Repeat(ctx context.Context, id string) (Workout, error) {
	original, err := s.workouts.Get(ctx, id)
	if err != nil {
		return Workout{}, fmt.Errorf("get workout to repeat %s: %w", id, err)
	}
	repeated := original.Clone()
	repeated.ID = ""
	repeated.CreatedAt = time.Time{}
	repeated.UpdatedAt = time.Time{}
	repeated.Name = original.Name + repeatedSuffix

	created, err := s.workouts.Create(ctx, repeated)
	if err != nil {
		return Workout{}, fmt.Errorf("create repeated workout: %w", err)
	}
	return created, nil
}

// Preferences returns the saved suggestion preferences of the user.
func (s *Service) Preferences(ctx context.Context) (Preferences, error) {
	prefs, err := s.prefs.Get(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs.Normalize(), nil
}

// SavePreferences normalizes and stores the suggestion preferences of the user.
func (s *Service) SavePreferences(ctx context.Context, prefs Preferences) (Preferences, error) {
	prefs = prefs.Normalize()
	if err := s.prefs.Set(ctx, prefs); err != nil {
		return Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return prefs, nil
}

// Export is everything stored about the user's training.
type Export struct {
	ExportedAt  time.Time   `json:"exportedAt"`
	Preferences Preferences `json:"preferences"`
	Workouts    []Workout   `json:"workouts"`
}

// Export collects the user's preferences and workouts for download.
func (s *Service) Export(ctx context.Context) (Export, error) {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return Export{}, err
	}
	workouts, err := s.List(ctx)
	if err != nil {
		return Export{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.Int("workouts", len(workouts)))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "exported user data")
	return Export{ExportedAt: time.Now().UTC(), Preferences: prefs, Workouts: workouts}, nil
}

// IsNotFound reports whether err means the workout does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
