package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/myrjola/wodcoach/internal/suggest"
	"github.com/myrjola/wodcoach/internal/workout"
)

const (
	modeAll          = "all"
	modeTemplate     = "template"
	modePersonalized = "personalized"
	modeQuick        = "quick"
	modeAI           = "ai"
)

// suggestionView is a generated workout ready to be saved. JSON is the workout document posted back by the save
// form.
type suggestionView struct {
	Label   string
	Tier    suggest.Tier
	Workout workout.Workout
	JSON    string
}

type suggestionsTemplateData struct {
	BaseTemplateData
	Form         preferencesForm
	Mode         string
	RequestToken string
	Suggestions  []suggestionView
}

func (app *application) newSuggestionView(label string, tier suggest.Tier, w workout.Workout) (suggestionView, error) {
	out, err := json.Marshal(w)
	if err != nil {
		return suggestionView{}, fmt.Errorf("JSON encode suggestion: %w", err)
	}
	return suggestionView{Label: label, Tier: tier, Workout: w, JSON: string(out)}, nil
}

func (app *application) suggestionsGET(w http.ResponseWriter, r *http.Request) {
	prefs, err := app.workoutService.Preferences(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := suggestionsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Form:             app.newPreferencesForm(prefs),
		Mode:             "",
		RequestToken:     "",
		Suggestions:      nil,
	}
	app.render(w, r, http.StatusOK, "suggestions", data)
}

type labeledWorkout struct {
	label string
	tier  suggest.Tier
	w     workout.Workout
}

func (app *application) suggestionsPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	prefs := app.parsePreferencesForm(r)
	mode := r.PostForm.Get("mode")

	var history []workout.Workout
	if mode == modeAll || mode == modePersonalized || mode == modeAI {
		var err error
		if history, err = app.workoutService.List(ctx); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	var (
		generated []labeledWorkout
		token     = uuid.New()
	)
	switch mode {
	case modeTemplate:
		generated = append(generated, labeledWorkout{"Template workout", "", app.suggester.Template(prefs)})
	case modePersonalized:
		generated = append(generated, labeledWorkout{"Personalized workout", "", app.suggester.Personalized(prefs, history)})
	case modeQuick:
		generated = append(generated, labeledWorkout{"Quick workout", "", app.suggester.Quick(prefs)})
	case modeAI:
		result := app.suggester.AI(ctx, prefs, history)
		generated = append(generated, labeledWorkout{"AI workout", result.Tier, result.Workout})
	default:
		mode = modeAll
		suggestions, err := app.suggester.Suggest(ctx, prefs, history)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		token = suggestions.RequestToken
		generated = append(generated, labeledWorkout{"AI workout", suggestions.AI.Tier, suggestions.AI.Workout})
		for _, option := range suggestions.Options {
			generated = append(generated, labeledWorkout{string(option.FocusArea) + " option", "", option})
		}
	}

	views := make([]suggestionView, 0, len(generated))
	for _, g := range generated {
		view, err := app.newSuggestionView(g.label, g.tier, g.w)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		views = append(views, view)
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "generated suggestions",
		slog.String("mode", mode), slog.String("request_token", token.String()), slog.Int("count", len(views)))

	data := suggestionsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Form:             app.newPreferencesForm(prefs),
		Mode:             mode,
		RequestToken:     token.String(),
		Suggestions:      views,
	}
	app.render(w, r, http.StatusOK, "suggestions", data)
}
