package suggest

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/workout"
)

// Tier names the stage of the normalizer that produced a workout.
type Tier string

const (
	TierStrictJSON    Tier = "strict_json"
	TierConverted     Tier = "converted"
	TierTextHeuristic Tier = "text_heuristic"
	TierFallback      Tier = "fallback"
)

// Result is a normalized workout and the tier it came from.
type Result struct {
	Workout workout.Workout
	Tier    Tier
}

var (
	errEmptyResponse   = errors.NewSentinel("empty response")
	errNoJSON          = errors.NewSentinel("no JSON object in response")
	errNotStructured   = errors.NewSentinel("response has neither strength and wod nor exercises")
	errNothingToSplit  = errors.NewSentinel("no exercise could be assigned to strength or wod")
	errInvalidResponse = errors.NewSentinel("normalized workout is invalid")
)

// Normalizer turns free-form model output into a workout. It never fails: each stage that cannot make
// sense of the response hands over to a more forgiving one, down to a synthetic workout built from the catalog.
type Normalizer struct {
	catalog *catalog.Catalog
	rand    Rand
	logger  *slog.Logger
}

// NewNormalizer creates a normalizer. A nil rng is seeded randomly.
func NewNormalizer(c *catalog.Catalog, rng *rand.Rand, logger *slog.Logger) *Normalizer {
	return &Normalizer{catalog: c, rand: newLockedRand(rng), logger: logger}
}

// Normalize parses raw in order of strictness:
//
//  1. The span from the first "{" to the last "}" is decoded as a workout. Without such a span the text
//     heuristic is used instead.
//  2. A workout with both strength and wod is accepted with missing parts filled in.
//  3. A workout with only a flat exercises list is converted into strength and wod.
//  4. The text heuristic reads "* name: detail" bullets.
//  5. Anything that fails ends in [Normalizer.Fallback].
func (n *Normalizer) Normalize(ctx context.Context, raw string, prefs workout.Preferences) (result Result) {
	prefs = prefs.Normalize()
	defer func() {
		if r := recover(); r != nil {
			n.logger.LogAttrs(ctx, slog.LevelError, "normalizer panicked",
				errors.SlogError(errors.DecoratePanic(r)))
			result = Result{Workout: n.Fallback(prefs), Tier: TierFallback}
		}
	}()

	result, err := n.parse(raw, prefs)
	if err == nil {
		err = workout.Validate(result.Workout)
		if err != nil {
			err = errors.Wrap(errInvalidResponse, err.Error(), slog.String("tier", string(result.Tier)))
		}
	}
	if err != nil {
		n.logger.LogAttrs(ctx, slog.LevelWarn, "could not parse model response", errors.SlogError(err))
		result = Result{Workout: n.Fallback(prefs), Tier: TierFallback}
	}

	n.logger.LogAttrs(ctx, slog.LevelDebug, "normalized model response",
		slog.String("tier", string(result.Tier)), slog.Int("exercises", result.Workout.ExerciseCount()))
	return result
}

func (n *Normalizer) parse(raw string, prefs workout.Preferences) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, errEmptyResponse
	}
	doc, err := extractJSON(raw)
	if errors.Is(err, errNoJSON) {
		return Result{Workout: n.textHeuristic(raw, prefs), Tier: TierTextHeuristic}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if doc.Strength != nil && doc.WOD != nil {
		return Result{Workout: n.accept(doc, prefs), Tier: TierStrictJSON}, nil
	}
	if len(doc.Exercises) > 0 {
		w, convertErr := n.convert(doc, prefs)
		return Result{Workout: w, Tier: TierConverted}, convertErr
	}
	return Result{}, errNotStructured
}

// extractJSON decodes the span from the first opening to the last closing brace.
//
// Only a syntax error fails the decode. Fields with an unexpected JSON type are skipped and the rest of the
// document is kept.
func extractJSON(raw string) (workout.Workout, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return workout.Workout{}, errNoJSON
	}
	var doc workout.Workout
	err := json.Unmarshal([]byte(raw[start:end+1]), &doc)
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return workout.Workout{}, fmt.Errorf("decode workout JSON: %w", err)
	}
	return doc, nil
}

// withMetadata fills what the model left out from the preferences and resets what only the store may set.
func (n *Normalizer) withMetadata(doc workout.Workout, prefs workout.Preferences) workout.Workout {
	w := doc
	w.ID = ""
	w.CreatedAt, w.UpdatedAt = time.Time{}, time.Time{}
	w.ActualDuration = 0
	w.Completed = false
	w.Name = cleanName(w.Name)
	if w.Name == "" {
		w.Name = templateName(prefs.FocusArea, prefs.FitnessLevel)
	}
	if !slices.Contains(workout.FitnessLevels, w.Difficulty) {
		w.Difficulty = prefs.FitnessLevel
	}
	if !slices.Contains(workout.Intensities, w.Intensity) {
		w.Intensity = prefs.Intensity
	}
	if !slices.Contains(workout.FocusAreas, w.FocusArea) {
		w.FocusArea = prefs.FocusArea
	}
	if w.EstimatedDuration <= 0 {
		w.EstimatedDuration = workout.Minutes(prefs.Duration)
	}
	if w.Warmup == nil || len(w.Warmup.Exercises) == 0 {
		w.Warmup = n.defaultWarmup()
	}
	if w.Cooldown == nil || len(w.Cooldown.Exercises) == 0 {
		w.Cooldown = n.defaultCooldown()
	}
	w.Preferences = &prefs
	return w
}

func named(exercises []workout.PlannedExercise) []workout.PlannedExercise {
	return slices.DeleteFunc(exercises, func(e workout.PlannedExercise) bool {
		return strings.TrimSpace(e.Name) == ""
	})
}

func (n *Normalizer) accept(doc workout.Workout, prefs workout.Preferences) workout.Workout {
	w := n.withMetadata(doc, prefs)
	w.Strength.Exercises = named(w.Strength.Exercises)
	if len(w.Strength.Exercises) == 0 {
		w.Strength = n.defaultStrength(prefs)
	}
	w.WOD.Exercises = named(w.WOD.Exercises)
	if len(w.WOD.Exercises) == 0 {
		w.WOD = n.defaultWOD(prefs)
	}
	w.Exercises = nil
	w.Type = workout.TypeAIGenerated
	return w
}

func containsAny(s string, keywords ...string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool { return strings.Contains(s, k) })
}

var (
	strengthKeywords = []string{"squat", "deadlift", "press", "bench", "row"} //nolint:gochecknoglobals // keywords.
	wodKeywords      = []string{"burpee", "jump", "run", "row", "bike"}       //nolint:gochecknoglobals // keywords.
)

// convert splits a flat exercise list into strength and wod sections. Exercises can land in both.
func (n *Normalizer) convert(doc workout.Workout, prefs workout.Preferences) (workout.Workout, error) {
	var strength, wod []workout.PlannedExercise
	for _, e := range named(doc.Exercises) {
		name := strings.ToLower(e.Name)
		isStrength := e.Category == "strength" || containsAny(name, strengthKeywords...)
		if isStrength {
			strength = append(strength, e)
		}
		if e.Category == "conditioning" || e.Category == "gymnastics" || containsAny(name, wodKeywords...) ||
			!isStrength {
			wod = append(wod, e)
		}
	}
	if len(strength) < 1 && len(wod) > 0 {
		strength = append(strength, wod[0])
		wod = wod[1:]
	}
	if len(wod) < 2 && len(strength) > 1 { //nolint:mnd // a wod needs two movements.
		wod = append(wod, strength[1])
		strength = slices.Delete(strength, 1, 2)
	}
	if len(strength) == 0 && len(wod) == 0 {
		return workout.Workout{}, errNothingToSplit
	}

	w := n.withMetadata(doc, prefs)
	w.Strength = &workout.StrengthSection{
		Duration:  defaultSectionDuration,
		Focus:     "Strength Work",
		Exercises: make([]workout.PlannedExercise, 0, len(strength)),
	}
	if len(strength) > 0 {
		w.Strength.Focus = strength[0].Name
	}
	for _, e := range strength {
		e.Sets = cmp.Or(e.Sets, "3")
		e.Reps = cmp.Or(e.Reps, "8-12")
		e.Rest = cmp.Or(e.Rest, "90 seconds")
		e.Category = "strength"
		e.Instructions = cmp.Or(e.Instructions, fmt.Sprintf("Perform %s with proper form", e.Name))
		e.Scaling = cmp.Or(e.Scaling, "Adjust weight as needed")
		w.Strength.Exercises = append(w.Strength.Exercises, e)
	}
	w.WOD = &workout.WODSection{
		Duration:    defaultSectionDuration,
		WorkoutType: defaultWODType,
		Description: defaultWODDescription,
		Exercises:   make([]workout.PlannedExercise, 0, len(wod)),
	}
	for _, e := range wod {
		e.Reps = cmp.Or(e.Reps, "10")
		e.Category = cmp.Or(e.Category, "conditioning")
		e.Instructions = cmp.Or(e.Instructions, fmt.Sprintf("Perform %s %s", e.Reps, e.Name))
		e.Scaling = cmp.Or(e.Scaling, "Scale as needed for your level")
		w.WOD.Exercises = append(w.WOD.Exercises, e)
	}
	w.Exercises = nil
	w.Type = workout.TypeAIGeneratedConverted
	return w, nil
}

var (
	bulletPattern   = regexp.MustCompile(`\*\s*([^:\n]+):\s*([^\n]+)`)
	quotedWODName   = regexp.MustCompile(`WOD[:\s]+"([^"]+)"|Workout of the Day[:\s]+"([^"]+)"|"([^"]+)"\s*\(`)
	workoutLineName = regexp.MustCompile(`(?i)workout[:\s]+([^\n]+)`)
	wodLineName     = regexp.MustCompile(`(?i)wod[:\s]+([^\n]+)`)
	firstLine       = regexp.MustCompile(`^([^\n]+)`)
)

// warmupKeywords mark bullets that belong to a warmup or cooldown rather than the workout itself.
var warmupKeywords = []string{ //nolint:gochecknoglobals // keywords.
	"jumping jack", "high knee", "butt kick", "arm circle", "stretch", "cool-down", "warm-up", "static", "dynamic",
}

// textDefaults stand in when a prose response has no usable bullets.
var textDefaults = []workout.PlannedExercise{ //nolint:gochecknoglobals // read-only defaults.
	{Name: "Back Squats", Sets: "3", Reps: "8", Weight: "Barbell", Category: "strength"},
	{Name: "Dumbbell Rows", Sets: "3", Reps: "10 per arm", Weight: "Dumbbell", Category: "strength"},
	{Name: "Box Jumps", Sets: "3", Reps: "10", Weight: "Bodyweight", Category: "conditioning"},
	{Name: "Plank", Sets: "3", Reps: "30 seconds", Weight: "Bodyweight", Category: "core"},
	{Name: "Burpees", Sets: "3", Reps: "15", Weight: "Bodyweight", Category: "conditioning"},
}

func cleanName(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*#_`\""))
}

func textWorkoutName(raw string) string {
	if m := quotedWODName.FindStringSubmatch(raw); m != nil {
		return cmp.Or(cleanName(m[1]), cleanName(m[2]), cleanName(m[3]), "CrossFit WOD")
	}
	for _, pattern := range []*regexp.Regexp{workoutLineName, wodLineName, firstLine} {
		if m := pattern.FindStringSubmatch(raw); m != nil {
			if name := cleanName(m[1]); name != "" {
				return name
			}
		}
	}
	return "CrossFit Workout"
}

func bulletExercises(raw string) []workout.PlannedExercise {
	var exercises []workout.PlannedExercise
	for _, m := range bulletPattern.FindAllStringSubmatch(raw, -1) {
		name := cleanName(m[1])
		lower := strings.ToLower(name)
		if name == "" || containsAny(lower, warmupKeywords...) {
			continue
		}
		e := workout.PlannedExercise{
			Name:     name,
			Sets:     "3",
			Reps:     workout.Text(cleanName(m[2])),
			Weight:   "Bodyweight",
			Category: "conditioning",
		}
		switch {
		case strings.Contains(lower, "squat") && !strings.Contains(lower, "air"):
			e.Weight, e.Category = "Barbell", "strength"
		case strings.Contains(lower, "row"):
			e.Weight, e.Category = "Dumbbell", "strength"
		case strings.Contains(lower, "plank"):
			e.Category = "core"
		}
		exercises = append(exercises, e)
	}
	return exercises
}

// textHeuristic reads exercises from "* name: detail" bullets of a prose response.
func (n *Normalizer) textHeuristic(raw string, prefs workout.Preferences) workout.Workout {
	exercises := bulletExercises(raw)
	if len(exercises) == 0 {
		exercises = slices.Clone(textDefaults)
	}

	var strength, wod []workout.PlannedExercise
	for _, e := range exercises {
		if containsAny(strings.ToLower(e.Name), "squat", "row", "press", "deadlift", "bench") {
			strength = append(strength, e)
		} else {
			wod = append(wod, e)
		}
	}
	if len(strength) == 0 {
		strength = take(exercises, 2) //nolint:mnd // first two.
	}
	if len(wod) == 0 {
		wod = exercises[min(2, len(exercises)):] //nolint:mnd // the rest.
	}

	w := workout.Workout{
		Name:              textWorkoutName(raw),
		FocusArea:         prefs.FocusArea,
		EstimatedDuration: workout.Minutes(prefs.Duration),
		Difficulty:        prefs.FitnessLevel,
		Intensity:         prefs.Intensity,
		Type:              workout.TypeAIGenerated,
		Warmup:            n.defaultWarmup(),
		Strength:          &workout.StrengthSection{Exercises: slices.Clone(strength)},
		WOD:               &workout.WODSection{Exercises: slices.Clone(wod)},
		Cooldown:          n.defaultCooldown(),
		Preferences:       &prefs,
	}
	if len(wod) == 0 {
		w.WOD = n.defaultWOD(prefs)
	}
	return w
}

// Fallback builds a synthetic workout from the catalog without any model output.
//
// The legacy exercise list is drawn from the fallback pool of the focus area, filtered by the user's equipment
// with lenient name rules. Full body workouts always get a core exercise.
func (n *Normalizer) Fallback(prefs workout.Preferences) workout.Workout {
	prefs = prefs.Normalize()
	pool := n.catalog.FilterByName(n.catalog.FallbackPool(string(prefs.FocusArea)), prefs.AvailableEquipment)
	if prefs.FocusArea == workout.FocusFullBody {
		core := n.catalog.FallbackPool(string(workout.FocusCore))
		hasCore := slices.ContainsFunc(pool, func(p catalog.PoolEntry) bool {
			return slices.ContainsFunc(core, func(c catalog.PoolEntry) bool { return c.Name == p.Name })
		})
		if !hasCore {
			pool = append(pool, pick(n.rand, core))
		}
	}

	exercises := make([]workout.PlannedExercise, 0, len(pool))
	for _, p := range pool {
		exercises = append(exercises, workout.PlannedExercise{Name: p.Name, Category: p.Category})
	}

	return workout.Workout{
		Name:              titleCase(fmt.Sprintf("CrossFit %s %s WOD", prefs.FocusArea, prefs.FitnessLevel)),
		FocusArea:         prefs.FocusArea,
		EstimatedDuration: workout.Minutes(prefs.Duration),
		Difficulty:        prefs.FitnessLevel,
		Intensity:         prefs.Intensity,
		Type:              workout.TypeAIGeneratedFallback,
		Warmup:            n.defaultWarmup(),
		Strength:          n.defaultStrength(prefs),
		WOD:               n.defaultWOD(prefs),
		Exercises:         exercises,
		Cooldown:          n.defaultCooldown(),
		Preferences:       &prefs,
	}
}
