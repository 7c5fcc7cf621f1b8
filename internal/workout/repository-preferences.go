package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/wodcoach/internal/contexthelpers"
	"github.com/myrjola/wodcoach/internal/sqlite"
)

// sqlitePreferencesRepository stores the suggestion form defaults of each user.
type sqlitePreferencesRepository struct {
	baseRepository
}

func newSQLitePreferencesRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePreferencesRepository {
	return &sqlitePreferencesRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Get returns the saved preferences or [DefaultPreferences] when the user has not saved any.
func (r *sqlitePreferencesRepository) Get(ctx context.Context) (Preferences, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var (
		prefs     Preferences
		equipment string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT fitness_level, focus_area, duration_minutes, intensity, exercise_count, available_equipment
		FROM suggestion_preferences
		WHERE user_id = ?`, userID).Scan(
		&prefs.FitnessLevel, &prefs.FocusArea, &prefs.Duration, &prefs.Intensity, &prefs.ExerciseCount, &equipment,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("query suggestion preferences: %w", err)
	}
	if err = json.Unmarshal([]byte(equipment), &prefs.AvailableEquipment); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal available equipment: %w", err)
	}
	return prefs, nil
}

// Set saves the preferences of the user.
func (r *sqlitePreferencesRepository) Set(ctx context.Context, prefs Preferences) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	equipment, err := json.Marshal(prefs.AvailableEquipment)
	if err != nil {
		return fmt.Errorf("marshal available equipment: %w", err)
	}
	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO suggestion_preferences (
			user_id, fitness_level, focus_area, duration_minutes, intensity, exercise_count, available_equipment
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			fitness_level = excluded.fitness_level,
			focus_area = excluded.focus_area,
			duration_minutes = excluded.duration_minutes,
			intensity = excluded.intensity,
			exercise_count = excluded.exercise_count,
			available_equipment = excluded.available_equipment`,
		userID, prefs.FitnessLevel, prefs.FocusArea, prefs.Duration, prefs.Intensity, prefs.ExerciseCount,
		string(equipment),
	)
	if err != nil {
		return fmt.Errorf("save suggestion preferences: %w", err)
	}
	return nil
}
