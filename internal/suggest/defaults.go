package suggest

import (
	"fmt"
	"slices"

	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/workout"
)

const (
	defaultSectionDuration = "10-15 minutes"
	defaultWODType         = "AMRAP"
	defaultWODDescription  = "Complete as many rounds as possible in 10 minutes"
	defaultWODPerGroup     = 2
)

func strengthScaling(level workout.FitnessLevel) string {
	switch level {
	case workout.LevelIntermediate:
		return "Moderate weight with good form"
	case workout.LevelAdvanced:
		return "Heavy weight while maintaining form"
	case workout.LevelBeginner:
	}
	return "Start with lighter weights and focus on form"
}

func wodScaling(level workout.FitnessLevel) string {
	switch level {
	case workout.LevelIntermediate:
		return "Moderate pace"
	case workout.LevelAdvanced:
		return "Fast pace with good form"
	case workout.LevelBeginner:
	}
	return "Reduce reps or use easier variation"
}

func section(s catalog.Section) *workout.Section {
	exercises := make([]workout.SectionExercise, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		exercises = append(exercises, workout.SectionExercise{
			Name:         e.Name,
			Duration:     workout.Text(e.Duration),
			Instructions: e.Instructions,
		})
	}
	return &workout.Section{Duration: workout.Text(s.Duration), Exercises: exercises}
}

func (n *Normalizer) defaultWarmup() *workout.Section {
	return section(n.catalog.Defaults().Warmup)
}

func (n *Normalizer) defaultCooldown() *workout.Section {
	return section(n.catalog.Defaults().Cooldown)
}

// defaultStrength prescribes one random main lift, with a barbell when the user has one.
func (n *Normalizer) defaultStrength(prefs workout.Preferences) *workout.StrengthSection {
	defaults := n.catalog.Defaults()
	lifts := defaults.DumbbellLifts
	if slices.Contains(prefs.AvailableEquipment, "barbell") {
		lifts = defaults.BarbellLifts
	}
	lift := pick(n.rand, lifts)
	sets, reps := lift.SetsAndReps()
	return &workout.StrengthSection{
		Duration: defaultSectionDuration,
		Focus:    lift.Name,
		Exercises: []workout.PlannedExercise{{
			Name:         lift.Name,
			Sets:         workout.Text(sets),
			Reps:         workout.Text(reps),
			Rest:         workout.Text(lift.Rest),
			Category:     "strength",
			Instructions: "Focus on proper form and progressive loading for " + lift.Name,
			Scaling:      strengthScaling(prefs.FitnessLevel),
		}},
	}
}

// defaultWOD is an AMRAP of the first two conditioning and the first two strength or gymnastics candidates.
func (n *Normalizer) defaultWOD(prefs workout.Preferences) *workout.WODSection {
	var conditioning, other []catalog.WODCandidate
	for _, c := range n.catalog.Defaults().WODCandidates {
		switch c.Category {
		case "conditioning":
			conditioning = append(conditioning, c)
		case "strength", "gymnastics":
			other = append(other, c)
		}
	}
	selected := slices.Concat(take(conditioning, defaultWODPerGroup), take(other, defaultWODPerGroup))

	exercises := make([]workout.PlannedExercise, 0, len(selected))
	for _, c := range selected {
		exercises = append(exercises, workout.PlannedExercise{
			Name:         c.Name,
			Reps:         workout.Text(c.Reps),
			Category:     c.Category,
			Instructions: fmt.Sprintf("Perform %s %s with good form", c.Reps, c.Name),
			Scaling:      wodScaling(prefs.FitnessLevel),
		})
	}
	return &workout.WODSection{
		Duration:    defaultSectionDuration,
		WorkoutType: defaultWODType,
		Description: defaultWODDescription,
		Exercises:   exercises,
	}
}
