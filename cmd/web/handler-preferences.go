package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/myrjola/wodcoach/internal/workout"
)

type equipmentOption struct {
	Tag     string
	Label   string
	Checked bool
}

// preferencesForm is the suggestion preference fieldset shared by the suggestion and preferences pages.
type preferencesForm struct {
	Preferences   workout.Preferences
	FitnessLevels []workout.FitnessLevel
	FocusAreas    []workout.FocusArea
	Intensities   []workout.Intensity
	Equipment     []equipmentOption
	MinExercises  int
	MaxExercises  int
}

func (app *application) newPreferencesForm(prefs workout.Preferences) preferencesForm {
	tags := app.catalog.EquipmentTags()
	equipment := make([]equipmentOption, len(tags))
	for i, t := range tags {
		equipment[i] = equipmentOption{
			Tag:     t.Tag,
			Label:   t.Label,
			Checked: slices.Contains(prefs.AvailableEquipment, t.Tag),
		}
	}
	return preferencesForm{
		Preferences:   prefs,
		FitnessLevels: workout.FitnessLevels,
		FocusAreas:    workout.FocusAreas,
		Intensities:   workout.Intensities,
		Equipment:     equipment,
		MinExercises:  workout.MinExerciseCount,
		MaxExercises:  workout.MaxExerciseCount,
	}
}

// parsePreferencesForm reads the preference fieldset. Unknown values are replaced by the defaults and unknown
// equipment is dropped.
func (app *application) parsePreferencesForm(r *http.Request) workout.Preferences {
	duration, _ := strconv.Atoi(r.PostForm.Get("duration"))
	exerciseCount, _ := strconv.Atoi(r.PostForm.Get("exercise_count"))
	equipment := make([]string, 0, len(r.PostForm["equipment"]))
	for _, tag := range r.PostForm["equipment"] {
		if app.catalog.KnownEquipment(tag) && !slices.Contains(equipment, tag) {
			equipment = append(equipment, tag)
		}
	}
	return workout.Preferences{
		FitnessLevel:       workout.FitnessLevel(r.PostForm.Get("fitness_level")),
		FocusArea:          workout.FocusArea(r.PostForm.Get("focus_area")),
		Duration:           duration,
		Intensity:          workout.Intensity(r.PostForm.Get("intensity")),
		ExerciseCount:      exerciseCount,
		AvailableEquipment: equipment,
	}.Normalize()
}

type preferencesTemplateData struct {
	BaseTemplateData
	Form  preferencesForm
	Saved bool
}

func (app *application) preferencesGET(w http.ResponseWriter, r *http.Request) {
	prefs, err := app.workoutService.Preferences(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := preferencesTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Form:             app.newPreferencesForm(prefs),
		Saved:            r.URL.Query().Has("saved"),
	}
	app.render(w, r, http.StatusOK, "preferences", data)
}

func (app *application) preferencesPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	prefs := app.parsePreferencesForm(r)
	if _, err := app.workoutService.SavePreferences(r.Context(), prefs); err != nil {
		app.serverError(w, r, err)
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "preferences details", slog.Any("preferences", prefs))
		return
	}

	redirect(w, r, "/preferences?saved")
}

func (app *application) deleteUserPOST(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.DeleteUser(r.Context()); err != nil {
		app.serverError(w, r, fmt.Errorf("delete user: %w", err))
		return
	}

	redirect(w, r, "/")
}

func (app *application) exportUserDataGET(w http.ResponseWriter, r *http.Request) {
	export, err := app.workoutService.Export(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		app.serverError(w, r, fmt.Errorf("JSON encode export: %w", err))
		return
	}

	filename := fmt.Sprintf("wodcoach-export-%s.json", export.ExportedAt.Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	_, _ = w.Write(out)
}
