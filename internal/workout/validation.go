package workout

import (
	"strings"

	"github.com/myrjola/wodcoach/internal/errors"
)

var ErrValidation = errors.NewSentinel("invalid workout")

// ValidationError lists what is wrong with a workout. It matches [ErrValidation].
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid workout: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation //nolint:errorlint // sentinel comparison.
}

const (
	ProblemNameRequired     = "Please enter a workout name"
	ProblemNoExercises      = "Please add at least one exercise"
	ProblemNoValidExercises = "Please add valid exercises with names and reps/duration"
)

// Validate checks that a workout can be saved: it has a name and at least one exercise in some section.
func Validate(w Workout) error {
	var problems []string
	if strings.TrimSpace(w.Name) == "" {
		problems = append(problems, ProblemNameRequired)
	}
	if w.ExerciseCount() == 0 {
		problems = append(problems, ProblemNoExercises)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// PrepareManual drops the exercises of a hand-written workout that have no name or neither reps nor duration,
// and validates the rest.
func PrepareManual(w Workout) (Workout, error) {
	if len(w.Exercises) == 0 {
		if err := Validate(w); err != nil {
			return w, err
		}
	}
	valid := make([]PlannedExercise, 0, len(w.Exercises))
	for _, e := range w.Exercises {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" || (e.Reps == "" && e.Duration == "") {
			continue
		}
		valid = append(valid, e)
	}
	hadExercises := len(w.Exercises) > 0
	w.Exercises = valid
	w.Type = TypeManual
	err := Validate(w)
	if err != nil && hadExercises && len(valid) == 0 {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for i, p := range verr.Problems {
				if p == ProblemNoExercises {
					verr.Problems[i] = ProblemNoValidExercises
				}
			}
		}
	}
	return w, err
}
