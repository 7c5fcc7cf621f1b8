// Package suggest composes workout suggestions from the exercise catalog and from a language model.
package suggest

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/workout"
)

const (
	// strengthPercent of a full body workout is strength work and the rest is cardio.
	strengthPercent = 60
	// recentWorkouts is how much history personalization looks at.
	recentWorkouts = 5

	quickDuration         = 15
	quickMaxExerciseCount = 4
	syntheticSets         = 3
)

// optionFocusAreas is the order of the workout options offered side by side.
var optionFocusAreas = []workout.FocusArea{ //nolint:gochecknoglobals // static order.
	workout.FocusUpperBody,
	workout.FocusLowerBody,
	workout.FocusCore,
	workout.FocusCardio,
	workout.FocusFullBody,
}

// Generator composes template workouts from the catalog.
type Generator struct {
	catalog *catalog.Catalog
	rand    Rand
}

// NewGenerator creates a generator. A nil rng is seeded randomly; tests pass a seeded one.
func NewGenerator(c *catalog.Catalog, rng *rand.Rand) *Generator {
	return &Generator{
		catalog: c,
		rand:    newLockedRand(rng),
	}
}

// Generate builds a template workout for the preferences.
//
// Full body workouts take 60% of the exercises, rounded up, from the strength templates of the level and
// the rest from the cardio templates. Other focus areas take the exercises listed for the area. In both cases
// exercises that need equipment the user lacks are dropped and those using most of the user's equipment come
// first. Missing slots are backfilled at random from every eligible template of the level.
func (g *Generator) Generate(prefs workout.Preferences) workout.Workout {
	prefs = prefs.Normalize()
	n := prefs.ExerciseCount
	level := string(prefs.FitnessLevel)
	owned := prefs.AvailableEquipment
	strength, cardio := g.catalog.Templates(level)

	var entries []catalog.Entry
	if prefs.FocusArea == workout.FocusFullBody {
		strengthCount := (n*strengthPercent + 99) / 100 //nolint:mnd // rounds up.
		entries = append(entries, take(catalog.Prioritize(catalog.Filter(strength, owned), owned), strengthCount)...)
		entries = append(entries, take(catalog.Prioritize(catalog.Filter(cardio, owned), owned), n-strengthCount)...)
	} else {
		candidates := make([]catalog.Entry, 0)
		for _, name := range g.catalog.FocusExercises(string(prefs.FocusArea)) {
			candidates = append(candidates, g.focusEntry(prefs, name))
		}
		entries = take(catalog.Prioritize(catalog.Filter(candidates, owned), owned), n)
	}

	entries = g.backfill(entries, catalog.Filter(slices.Concat(strength, cardio), owned), n)
	entries = take(entries, n)

	exercises := make([]workout.PlannedExercise, 0, len(entries))
	for _, e := range entries {
		exercises = append(exercises, plannedExercise(adjustIntensity(e, prefs.Intensity)))
	}

	return workout.Workout{
		Name:              templateName(prefs.FocusArea, prefs.FitnessLevel),
		FocusArea:         prefs.FocusArea,
		EstimatedDuration: workout.Minutes(prefs.Duration),
		Difficulty:        prefs.FitnessLevel,
		Intensity:         prefs.Intensity,
		Type:              workout.TypeTemplate,
		Exercises:         exercises,
		Preferences:       &prefs,
	}
}

// focusEntry finds a focus area exercise in the level templates or makes one up with level defaults.
func (g *Generator) focusEntry(prefs workout.Preferences, name string) catalog.Entry {
	if e, ok := g.catalog.Lookup(string(prefs.FitnessLevel), name); ok {
		return e
	}
	e := catalog.Entry{
		Name:     name,
		Sets:     syntheticSets,
		Category: string(prefs.FocusArea),
		Requires: g.catalog.Requirements(name),
	}
	switch prefs.FitnessLevel {
	case workout.LevelAdvanced:
		e.Reps, e.Rest = "12-20", "120 seconds"
	case workout.LevelIntermediate:
		e.Reps, e.Rest = "10-15", "90 seconds"
	case workout.LevelBeginner:
		e.Reps, e.Rest = "8-12", "60 seconds"
	}
	return e
}

// backfill adds random candidates not already in entries until there are n or the candidates run out.
func (g *Generator) backfill(entries, candidates []catalog.Entry, n int) []catalog.Entry {
	candidates = slices.Clone(candidates)
	for len(entries) < n && len(candidates) > 0 {
		i := g.rand.IntN(len(candidates))
		c := candidates[i]
		if !slices.ContainsFunc(entries, func(e catalog.Entry) bool { return e.Name == c.Name }) {
			entries = append(entries, c)
		}
		candidates = slices.Delete(candidates, i, i+1)
	}
	return entries
}

// Options generates one workout for each focus area.
func (g *Generator) Options(prefs workout.Preferences) []workout.Workout {
	options := make([]workout.Workout, 0, len(optionFocusAreas))
	for _, focus := range optionFocusAreas {
		p := prefs
		p.FocusArea = focus
		options = append(options, g.Generate(p))
	}
	return options
}

// Personalized generates a workout for the focus area trained least in the most recent workouts. History is
// ordered newest first.
func (g *Generator) Personalized(prefs workout.Preferences, history []workout.Workout) workout.Workout {
	prefs.FocusArea = leastTrainedFocus(history[:min(recentWorkouts, len(history))])
	return g.Generate(prefs)
}

func leastTrainedFocus(recent []workout.Workout) workout.FocusArea {
	var order []workout.FocusArea
	counts := make(map[workout.FocusArea]int)
	for _, w := range recent {
		for _, e := range w.AllExercises() {
			focus := workout.FocusArea(e.Category)
			if focus == "" {
				focus = workout.FocusFullBody
			}
			if !slices.Contains(workout.FocusAreas, focus) {
				continue
			}
			if _, seen := counts[focus]; !seen {
				order = append(order, focus)
			}
			counts[focus]++
		}
	}
	least := workout.FocusFullBody
	for i, focus := range order {
		if i == 0 || counts[focus] < counts[least] {
			least = focus
		}
	}
	return least
}

// Quick generates a short moderate workout with at most four exercises.
func (g *Generator) Quick(prefs workout.Preferences) workout.Workout {
	prefs = prefs.Normalize()
	prefs.Duration = quickDuration
	prefs.Intensity = workout.IntensityModerate
	prefs.ExerciseCount = min(prefs.ExerciseCount, quickMaxExerciseCount)
	w := g.Generate(prefs)
	w.Name = "Quick " + w.Name
	return w
}

func take[T any](items []T, n int) []T {
	return items[:min(max(n, 0), len(items))]
}

func plannedExercise(e catalog.Entry) workout.PlannedExercise {
	sets := ""
	if e.Sets > 0 {
		sets = strconv.Itoa(e.Sets)
	}
	return workout.PlannedExercise{
		Name:         e.Name,
		Sets:         workout.Text(sets),
		Reps:         workout.Text(e.Reps),
		Duration:     workout.Text(e.Duration),
		Rest:         workout.Text(e.Rest),
		Category:     e.Category,
		Instructions: e.Instructions,
	}
}

// titleCase capitalizes the first letter of every word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func templateName(focus workout.FocusArea, level workout.FitnessLevel) string {
	return titleCase(string(focus) + " " + string(level) + " Workout")
}
