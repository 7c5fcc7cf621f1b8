package suggest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/workout"
)

// repsPattern captures a leading rep count or range and whatever follows it, e.g. "10-12 each arm".
var repsPattern = regexp.MustCompile(`^\s*(\d+)(?:\s*-\s*(\d+))?(.*)$`)

// durationPattern captures a leading amount and its unit, e.g. "30 seconds" or "1 minute".
var durationPattern = regexp.MustCompile(`^\s*(\d+)\s*(\w*)`)

const (
	highMinRepsIncrease = 2
	highMaxRepsIncrease = 3
	lowRepsDecrease     = 2
	lowMinRepsFloor     = 1
	lowMaxRepsFloor     = 3
	highExtraSeconds    = 15
)

// adjustIntensity applies the intensity pass to one exercise. Moderate intensity leaves it unchanged.
func adjustIntensity(e catalog.Entry, intensity workout.Intensity) catalog.Entry {
	switch intensity { //nolint:exhaustive // moderate is a no-op.
	case workout.IntensityHigh:
		if e.Sets > 0 {
			e.Sets++
		}
		e.Reps = adjustReps(e.Reps, func(lo, hi int) (int, int) {
			return lo + highMinRepsIncrease, hi + highMaxRepsIncrease
		})
		e.Duration = extendDuration(e.Duration)
	case workout.IntensityLow:
		if e.Sets > 1 {
			e.Sets--
		}
		e.Reps = adjustReps(e.Reps, func(lo, hi int) (int, int) {
			return max(lowMinRepsFloor, lo-lowRepsDecrease), max(lowMaxRepsFloor, hi-lowRepsDecrease)
		})
	}
	return e
}

// adjustReps rewrites a rep range with adjust. A single count is treated as its own lower bound and only
// the lower result is kept. Text that does not start with a number is returned unchanged.
func adjustReps(reps string, adjust func(lo, hi int) (int, int)) string {
	m := repsPattern.FindStringSubmatch(reps)
	if m == nil {
		return reps
	}
	lo, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		newLo, _ := adjust(lo, lo)
		return strconv.Itoa(newLo) + m[3]
	}
	hi, _ := strconv.Atoi(m[2])
	newLo, newHi := adjust(lo, hi)
	return fmt.Sprintf("%d-%d%s", newLo, newHi, m[3])
}

// extendDuration adds 15 seconds to a timed prescription. Minutes are converted to seconds first.
func extendDuration(duration string) string {
	m := durationPattern.FindStringSubmatch(duration)
	if m == nil {
		return duration
	}
	seconds, _ := strconv.Atoi(m[1])
	if strings.HasPrefix(strings.ToLower(m[2]), "min") {
		seconds *= 60
	}
	return fmt.Sprintf("%d seconds", seconds+highExtraSeconds)
}
