// Package stats computes the dashboard aggregates from a user's workout history.
package stats

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/myrjola/wodcoach/internal/workout"
)

// ExerciseStat is the best recorded performance of one exercise across all workouts.
type ExerciseStat struct {
	Name          string
	MaxWeight     int
	MaxReps       int
	MaxSets       int
	TotalWorkouts int
	LastPerformed time.Time
	Category      string
}

// Summary holds the headline numbers of the dashboard.
type Summary struct {
	TotalWorkouts          int
	TotalExercises         int
	AverageWorkoutDuration int
	MostUsedFocusArea      string
	StreakDays             int
}

// NoFocusArea is reported as the most used focus area when there are no workouts.
const NoFocusArea = "None"

// synonyms maps spelling variants to a canonical exercise name.
var synonyms = map[string]string{ //nolint:gochecknoglobals // read-only lookup table.
	"kettlebell swing":  "kettlebell swings",
	"kettlebell swings": "kettlebell swings",
	"kb swing":          "kettlebell swings",
	"kb swings":         "kettlebell swings",
	"push up":           "push-ups",
	"push ups":          "push-ups",
	"push-up":           "push-ups",
	"push-ups":          "push-ups",
	"pushup":            "push-ups",
	"pushups":           "push-ups",
	"pull up":           "pull-ups",
	"pull ups":          "pull-ups",
	"pull-up":           "pull-ups",
	"pull-ups":          "pull-ups",
	"pullup":            "pull-ups",
	"pullups":           "pull-ups",
	"sit up":            "sit-ups",
	"sit ups":           "sit-ups",
	"sit-up":            "sit-ups",
	"sit-ups":           "sit-ups",
	"situp":             "sit-ups",
	"situps":            "sit-ups",
	"box jump":          "box jumps",
	"box jumps":         "box jumps",
	"air squat":         "air squats",
	"air squats":        "air squats",
	"back squat":        "back squats",
	"back squats":       "back squats",
	"front squat":       "front squats",
	"front squats":      "front squats",
	"dead lift":         "deadlifts",
	"deadlift":          "deadlifts",
	"deadlifts":         "deadlifts",
	"bench press":       "bench press",
	"benchpress":        "bench press",
	"overhead press":    "overhead press",
	"ohp":               "overhead press",
	"clean and press":   "clean & press",
	"clean & press":     "clean & press",
	"clean and jerk":    "clean & jerk",
	"clean & jerk":      "clean & jerk",
	"snatch":            "snatches",
	"snatches":          "snatches",
	"thruster":          "thrusters",
	"thrusters":         "thrusters",
	"burpee":            "burpees",
	"burpees":           "burpees",
	"mountain climber":  "mountain climbers",
	"mountain climbers": "mountain climbers",
	"pistol squat":      "pistol squats",
	"pistol squats":     "pistol squats",
	"lunge":             "lunges",
	"lunges":            "lunges",
	"row":               "rowing",
	"rowing":            "rowing",
	"run":               "running",
	"running":           "running",
	"bike":              "cycling",
	"cycling":           "cycling",
	"jump rope":         "jump rope",
	"jump roping":       "jump rope",
	"double under":      "double-unders",
	"double unders":     "double-unders",
	"double-unders":     "double-unders",
	"toes to bar":       "toes-to-bar",
	"toes to bars":      "toes-to-bar",
	"toes-to-bar":       "toes-to-bar",
	"l sit":             "l-sits",
	"l sits":            "l-sits",
	"l-sits":            "l-sits",
	"plank":             "plank",
	"planks":            "plank",
	"russian twist":     "russian twists",
	"russian twists":    "russian twists",
	"medicine ball":     "medicine ball",
	"med ball":          "medicine ball",
	"wall ball":         "wall balls",
	"wall balls":        "wall balls",
	"wallball":          "wall balls",
	"wallballs":         "wall balls",
}

// synonymKeys is sorted longest first so that "wall balls" wins over "wall ball".
var synonymKeys = func() []string { //nolint:gochecknoglobals // derived from synonyms.
	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	return keys
}()

// NormalizeExerciseName maps spelling variants of an exercise to one key so that stats do not split.
//
// Names are matched exactly against the synonym table first and then by the longest synonym that appears
// in the name as whole words. "Barbell Back Squat" becomes "back squats" but "Arrow" does not match "row".
// Unknown names are capitalized.
func NormalizeExerciseName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ""
	}
	if canonical, ok := synonyms[normalized]; ok {
		return canonical
	}
	for _, key := range synonymKeys {
		if containsWord(normalized, key) {
			return synonyms[key]
		}
	}
	first, size := utf8.DecodeRuneInString(normalized)
	return string(unicode.ToUpper(first)) + normalized[size:]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// containsWord reports whether word occurs in s without letters or digits directly around it.
func containsWord(s, word string) bool {
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		offset = start + 1
	}
	return false
}

// ComputeExerciseStats folds over every exercise list of every workout.
func ComputeExerciseStats(workouts []workout.Workout) map[string]ExerciseStat {
	stats := make(map[string]ExerciseStat)
	for _, w := range workouts {
		fold(stats, w, w.Exercises, "general")
		if w.Strength != nil {
			fold(stats, w, w.Strength.Exercises, "strength")
		}
		if w.WOD != nil {
			fold(stats, w, w.WOD.Exercises, "wod")
		}
	}
	return stats
}

func fold(stats map[string]ExerciseStat, w workout.Workout, exercises []workout.PlannedExercise, category string) {
	for _, e := range exercises {
		name := NormalizeExerciseName(e.Name)
		stat, ok := stats[name]
		if !ok {
			stat = ExerciseStat{
				Name:          name,
				MaxWeight:     0,
				MaxReps:       0,
				MaxSets:       0,
				TotalWorkouts: 0,
				LastPerformed: time.Time{},
				Category:      cmp.Or(e.Category, category),
			}
		}
		if v, ok := e.ActualWeight.LeadingInt(); ok {
			stat.MaxWeight = max(stat.MaxWeight, v)
		}
		if v, ok := e.ActualReps.LeadingInt(); ok {
			stat.MaxReps = max(stat.MaxReps, v)
		}
		if v, ok := e.ActualSets.LeadingInt(); ok {
			stat.MaxSets = max(stat.MaxSets, v)
		}
		stat.TotalWorkouts++
		if w.CreatedAt.After(stat.LastPerformed) {
			stat.LastPerformed = w.CreatedAt
		}
		stats[name] = stat
	}
}

// SortedExerciseStats orders the stats for display, most trained first.
func SortedExerciseStats(stats map[string]ExerciseStat) []ExerciseStat {
	sorted := make([]ExerciseStat, 0, len(stats))
	for _, s := range stats {
		sorted = append(sorted, s)
	}
	slices.SortFunc(sorted, func(a, b ExerciseStat) int {
		return cmp.Or(cmp.Compare(b.TotalWorkouts, a.TotalWorkouts), cmp.Compare(a.Name, b.Name))
	})
	return sorted
}

// ComputeStats summarizes the workouts as of now.
func ComputeStats(workouts []workout.Workout, now time.Time) Summary {
	summary := Summary{
		TotalWorkouts:          len(workouts),
		TotalExercises:         len(ComputeExerciseStats(workouts)),
		AverageWorkoutDuration: 0,
		MostUsedFocusArea:      NoFocusArea,
		StreakDays:             0,
	}
	if len(workouts) == 0 {
		return summary
	}

	var (
		totalDuration int
		focusOrder    []workout.FocusArea
		focusCounts   = make(map[workout.FocusArea]int)
		dates         = make([]time.Time, 0, len(workouts))
	)
	for _, w := range workouts {
		totalDuration += w.Duration()
		if w.FocusArea != "" {
			if focusCounts[w.FocusArea] == 0 {
				focusOrder = append(focusOrder, w.FocusArea)
			}
			focusCounts[w.FocusArea]++
		}
		dates = append(dates, w.CreatedAt)
	}
	summary.AverageWorkoutDuration = int(math.Round(float64(totalDuration) / float64(len(workouts))))

	// Ties go to the focus area seen first.
	best := 0
	for _, focus := range focusOrder {
		if focusCounts[focus] > best {
			best = focusCounts[focus]
			summary.MostUsedFocusArea = string(focus)
		}
	}
	summary.StreakDays = Streak(dates, now)
	return summary
}

// civilDay identifies a calendar day independent of time zone offsets and daylight saving.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const day = 24 * time.Hour

// Streak counts consecutive calendar days with a workout, going back from the day of now. A workout today
// counts as the first day. The count stops at the first missing day. Days after today are ignored.
func Streak(dates []time.Time, now time.Time) int {
	loc := now.Location()
	today := civilDay(now, loc)

	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if cd := civilDay(d, loc); !cd.After(today) {
			days = append(days, cd)
		}
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })
	days = slices.Compact(days)

	streak := 0
	for _, d := range days {
		if int(today.Sub(d)/day) != streak {
			break
		}
		streak++
	}
	return streak
}
