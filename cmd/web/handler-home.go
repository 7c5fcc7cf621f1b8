package main

import (
	"net/http"
	"time"

	"github.com/myrjola/wodcoach/internal/stats"
	"github.com/myrjola/wodcoach/internal/workout"
)

type homeTemplateData struct {
	BaseTemplateData
	Summary       stats.Summary
	ExerciseStats []stats.ExerciseStat
	Workouts      []workoutView
}

// workoutView is a row of the workout history.
type workoutView struct {
	ID            string
	Name          string
	FocusArea     workout.FocusArea
	Type          workout.Type
	Date          time.Time
	Duration      int
	ExerciseCount int
	Completed     bool
}

func toWorkoutViews(workouts []workout.Workout) []workoutView {
	views := make([]workoutView, len(workouts))
	for i, w := range workouts {
		views[i] = workoutView{
			ID:            w.ID,
			Name:          w.Name,
			FocusArea:     w.FocusArea,
			Type:          w.Type,
			Date:          w.CreatedAt,
			Duration:      w.Duration(),
			ExerciseCount: w.ExerciseCount(),
			Completed:     w.Completed,
		}
	}
	return views
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Summary:          stats.Summary{}, //nolint:exhaustruct // anonymous users see no dashboard.
		ExerciseStats:    nil,
		Workouts:         nil,
	}

	if data.Authenticated {
		workouts, err := app.workoutService.List(r.Context())
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.Summary = stats.ComputeStats(workouts, time.Now())
		data.ExerciseStats = stats.SortedExerciseStats(stats.ComputeExerciseStats(workouts))
		data.Workouts = toWorkoutViews(workouts)
	}

	app.render(w, r, http.StatusOK, "home", data)
}
