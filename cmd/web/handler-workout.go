package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/workout"
)

// manualExerciseRows is the number of blank exercise rows of the manual workout form.
const manualExerciseRows = 6

type manualExerciseRow struct {
	Name     string
	Sets     string
	Reps     string
	Duration string
	Weight   string
	Rest     string
}

type workoutNewTemplateData struct {
	BaseTemplateData
	Problems   []string
	Name       string
	FocusArea  workout.FocusArea
	FocusAreas []workout.FocusArea
	Duration   string
	Notes      string
	Rows       []manualExerciseRow
}

func newWorkoutNewTemplateData(r *http.Request) workoutNewTemplateData {
	return workoutNewTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Problems:         nil,
		Name:             "",
		FocusArea:        workout.FocusFullBody,
		FocusAreas:       workout.FocusAreas,
		Duration:         "",
		Notes:            "",
		Rows:             make([]manualExerciseRow, manualExerciseRows),
	}
}

func (app *application) workoutNewGET(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "workout-new", newWorkoutNewTemplateData(r))
}

// workoutCreatePOST saves either a generated workout posted as a JSON document in the "workout" field or a
// manual workout typed into the form.
func (app *application) workoutCreatePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	if doc := r.PostForm.Get("workout"); doc != "" {
		var generated workout.Workout
		if err := json.Unmarshal([]byte(doc), &generated); err != nil {
			http.Error(w, "Invalid workout document", http.StatusBadRequest)
			return
		}
		app.createWorkout(w, r, generated, nil)
		return
	}

	data := newWorkoutNewTemplateData(r)
	data.Name = r.PostForm.Get("name")
	data.FocusArea = workout.FocusArea(r.PostForm.Get("focus_area"))
	data.Duration = r.PostForm.Get("duration")
	data.Notes = r.PostForm.Get("notes")
	data.Rows = manualRows(r)
	app.createWorkout(w, r, manualWorkout(data), &data)
}

// createWorkout stores the workout and shows it. Validation problems re-render the manual form when there is
// one.
func (app *application) createWorkout(w http.ResponseWriter, r *http.Request, doc workout.Workout,
	form *workoutNewTemplateData) {
	created, err := app.workoutService.Create(r.Context(), doc)
	var verr *workout.ValidationError
	switch {
	case errors.As(err, &verr) && form != nil:
		form.Problems = verr.Problems
		app.render(w, r, http.StatusUnprocessableEntity, "workout-new", *form)
		return
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/workouts/"+created.ID)
}

func manualRows(r *http.Request) []manualExerciseRow {
	field := func(name string, i int) string {
		values := r.PostForm[name]
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	n := len(r.PostForm["exercise_name"])
	rows := make([]manualExerciseRow, max(n, manualExerciseRows))
	for i := range n {
		rows[i] = manualExerciseRow{
			Name:     field("exercise_name", i),
			Sets:     field("exercise_sets", i),
			Reps:     field("exercise_reps", i),
			Duration: field("exercise_duration", i),
			Weight:   field("exercise_weight", i),
			Rest:     field("exercise_rest", i),
		}
	}
	return rows
}

func manualWorkout(form workoutNewTemplateData) workout.Workout {
	duration, _ := strconv.Atoi(form.Duration)
	exercises := make([]workout.PlannedExercise, 0, len(form.Rows))
	for _, row := range form.Rows {
		if row == (manualExerciseRow{}) {
			continue
		}
		exercises = append(exercises, workout.PlannedExercise{ //nolint:exhaustruct // actuals are recorded later.
			Name:     row.Name,
			Sets:     workout.Text(row.Sets),
			Reps:     workout.Text(row.Reps),
			Duration: workout.Text(row.Duration),
			Weight:   workout.Text(row.Weight),
			Rest:     workout.Text(row.Rest),
		})
	}
	return workout.Workout{ //nolint:exhaustruct // manual workouts have no sections.
		Name:              form.Name,
		FocusArea:         form.FocusArea,
		EstimatedDuration: workout.Minutes(max(duration, 0)),
		Type:              workout.TypeManual,
		Exercises:         exercises,
		Notes:             form.Notes,
	}
}

// workoutFromPath loads the workout named by the id path parameter. It responds with the not found page and
// returns false when there is no such workout.
func (app *application) workoutFromPath(w http.ResponseWriter, r *http.Request) (workout.Workout, bool) {
	wo, err := app.workoutService.Get(r.Context(), r.PathValue("id"))
	switch {
	case workout.IsNotFound(err):
		app.notFound(w, r)
		return workout.Workout{}, false
	case err != nil:
		app.serverError(w, r, err)
		return workout.Workout{}, false
	}
	return wo, true
}

type workoutTemplateData struct {
	BaseTemplateData
	Workout workout.Workout
}

func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	wo, ok := app.workoutFromPath(w, r)
	if !ok {
		return
	}
	app.render(w, r, http.StatusOK, "workout", workoutTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Workout:          wo,
	})
}

// exerciseSectionView is a list of planned exercises on the performance form. Inputs are named
// "<section>-<index>-<field>".
type exerciseSectionView struct {
	Section   workout.SectionName
	Title     string
	Exercises []workout.PlannedExercise
}

type itemSectionView struct {
	Section workout.SectionName
	Title   string
	Items   []workout.SectionExercise
}

type workoutModifyTemplateData struct {
	BaseTemplateData
	Workout          workout.Workout
	ExerciseSections []exerciseSectionView
	ItemSections     []itemSectionView
	Problems         []string
}

func exerciseSections(wo workout.Workout) []exerciseSectionView {
	var sections []exerciseSectionView
	if wo.Strength != nil && len(wo.Strength.Exercises) > 0 {
		sections = append(sections, exerciseSectionView{workout.SectionStrength, "Strength", wo.Strength.Exercises})
	}
	if wo.WOD != nil && len(wo.WOD.Exercises) > 0 {
		sections = append(sections, exerciseSectionView{workout.SectionWOD, "WOD", wo.WOD.Exercises})
	}
	if len(wo.Exercises) > 0 {
		sections = append(sections, exerciseSectionView{workout.SectionExercises, "Exercises", wo.Exercises})
	}
	return sections
}

func itemSections(wo workout.Workout) []itemSectionView {
	var sections []itemSectionView
	if wo.Warmup != nil && len(wo.Warmup.Exercises) > 0 {
		sections = append(sections, itemSectionView{workout.SectionWarmup, "Warmup", wo.Warmup.Exercises})
	}
	if wo.Cooldown != nil && len(wo.Cooldown.Exercises) > 0 {
		sections = append(sections, itemSectionView{workout.SectionCooldown, "Cooldown", wo.Cooldown.Exercises})
	}
	return sections
}

func newWorkoutModifyTemplateData(r *http.Request, wo workout.Workout) workoutModifyTemplateData {
	return workoutModifyTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Workout:          wo,
		ExerciseSections: exerciseSections(wo),
		ItemSections:     itemSections(wo),
		Problems:         nil,
	}
}

func (app *application) workoutModifyGET(w http.ResponseWriter, r *http.Request) {
	wo, ok := app.workoutFromPath(w, r)
	if !ok {
		return
	}
	app.render(w, r, http.StatusOK, "workout-modify", newWorkoutModifyTemplateData(r, wo))
}

// parsePerformance reads the performance form of wo.
func parsePerformance(r *http.Request, wo workout.Workout) workout.Performance {
	field := func(section workout.SectionName, i int, name string) string {
		return r.PostForm.Get(fmt.Sprintf("%s-%d-%s", section, i, name))
	}
	duration, _ := strconv.Atoi(r.PostForm.Get("actual_duration"))
	perf := workout.Performance{
		Exercises:      nil,
		Items:          nil,
		ActualDuration: duration,
		Notes:          r.PostForm.Get("notes"),
		Completed:      r.PostForm.Get("completed") != "",
	}
	for _, s := range exerciseSections(wo) {
		for i := range s.Exercises {
			perf.Exercises = append(perf.Exercises, workout.ExercisePerformance{
				Section:      s.Section,
				Index:        i,
				ActualSets:   field(s.Section, i, "actual_sets"),
				ActualReps:   field(s.Section, i, "actual_reps"),
				ActualWeight: field(s.Section, i, "actual_weight"),
				ActualRest:   field(s.Section, i, "actual_rest"),
				Notes:        field(s.Section, i, "notes"),
			})
		}
	}
	for _, s := range itemSections(wo) {
		for i := range s.Items {
			perf.Items = append(perf.Items, workout.ItemPerformance{
				Section:   s.Section,
				Index:     i,
				Completed: field(s.Section, i, "completed") != "",
				Notes:     field(s.Section, i, "notes"),
			})
		}
	}
	return perf
}

func (app *application) workoutModifyPOST(w http.ResponseWriter, r *http.Request) {
	wo, ok := app.workoutFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	updated, err := app.workoutService.RecordPerformance(r.Context(), wo.ID, parsePerformance(r, wo))
	var verr *workout.ValidationError
	switch {
	case errors.As(err, &verr):
		data := newWorkoutModifyTemplateData(r, wo)
		data.Problems = verr.Problems
		app.render(w, r, http.StatusUnprocessableEntity, "workout-modify", data)
		return
	case workout.IsNotFound(err):
		app.notFound(w, r)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/workouts/"+updated.ID)
}

func (app *application) workoutDeletePOST(w http.ResponseWriter, r *http.Request) {
	if err := app.workoutService.Delete(r.Context(), r.PathValue("id")); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

func (app *application) workoutRepeatPOST(w http.ResponseWriter, r *http.Request) {
	repeated, err := app.workoutService.Repeat(r.Context(), r.PathValue("id"))
	switch {
	case workout.IsNotFound(err):
		app.notFound(w, r)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/workouts/"+repeated.ID)
}
