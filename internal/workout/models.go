package workout

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/myrjola/wodcoach/internal/errors"
)

// FitnessLevel is the experience of the user a workout is made for.
type FitnessLevel string

const (
	LevelBeginner     FitnessLevel = "beginner"
	LevelIntermediate FitnessLevel = "intermediate"
	LevelAdvanced     FitnessLevel = "advanced"
)

// FocusArea is the primary goal of a workout.
type FocusArea string

const (
	FocusFullBody  FocusArea = "full body"
	FocusUpperBody FocusArea = "upper body"
	FocusLowerBody FocusArea = "lower body"
	FocusCore      FocusArea = "core"
	FocusCardio    FocusArea = "cardio"
)

// Intensity scales the volume of a template workout.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

// Type tells where a workout came from.
type Type string

const (
	TypeManual               Type = "manual"
	TypeTemplate             Type = "template"
	TypeAIGenerated          Type = "ai-generated"
	TypeAIGeneratedFallback  Type = "ai-generated-fallback"
	TypeAIGeneratedConverted Type = "ai-generated-converted"
)

//nolint:gochecknoglobals // static enumerations.
var (
	FitnessLevels = []FitnessLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}
	FocusAreas    = []FocusArea{FocusFullBody, FocusUpperBody, FocusLowerBody, FocusCore, FocusCardio}
	Intensities   = []Intensity{IntensityLow, IntensityModerate, IntensityHigh}
)

const (
	MinExerciseCount = 3
	MaxExerciseCount = 8
)

// Preferences drive workout suggestions. They are stored per user as the defaults of the suggestion form.
type Preferences struct {
	FitnessLevel       FitnessLevel `json:"fitnessLevel"`
	FocusArea          FocusArea    `json:"focusArea"`
	Duration           int          `json:"duration"`
	Intensity          Intensity    `json:"intensity"`
	ExerciseCount      int          `json:"exerciseCount"`
	AvailableEquipment []string     `json:"availableEquipment"`
}

// DefaultPreferences are used until the user saves their own.
func DefaultPreferences() Preferences {
	return Preferences{
		FitnessLevel:       LevelBeginner,
		FocusArea:          FocusFullBody,
		Duration:           45, //nolint:mnd // minutes.
		Intensity:          IntensityModerate,
		ExerciseCount:      5, //nolint:mnd // middle of the allowed range.
		AvailableEquipment: []string{"dumbbells", "barbell"},
	}
}

// Normalize replaces unknown enumeration values with the defaults and clamps numbers to their allowed ranges.
func (p Preferences) Normalize() Preferences {
	d := DefaultPreferences()
	if !slices.Contains(FitnessLevels, p.FitnessLevel) {
		p.FitnessLevel = d.FitnessLevel
	}
	if !slices.Contains(FocusAreas, p.FocusArea) {
		p.FocusArea = d.FocusArea
	}
	if !slices.Contains(Intensities, p.Intensity) {
		p.Intensity = d.Intensity
	}
	if p.Duration <= 0 {
		p.Duration = d.Duration
	}
	p.ExerciseCount = min(max(p.ExerciseCount, MinExerciseCount), MaxExerciseCount)
	if p.AvailableEquipment == nil {
		p.AvailableEquipment = []string{}
	}
	return p
}

// Text is a string that also accepts other JSON values. Stored and generated documents mix 3 and "3", and models
// sometimes send [3,5] or {"kg":100}. Arrays of scalars are joined with ", " and anything else keeps its compact
// JSON text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text(textOf(bytes.TrimSpace(data)))
	return nil
}

func textOf(data []byte) string {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return string(data)
	}
	if s, ok := scalarText(v); ok {
		return s
	}
	if items, ok := v.([]any); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, scalar := scalarText(item)
			if !scalar {
				parts = nil
				break
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		if parts != nil || len(items) == 0 {
			return strings.Join(parts, ", ")
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

func scalarText(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// decodeLenient decodes data into v and ignores fields whose JSON type does not fit. encoding/json keeps decoding
// the rest of the value after such a mismatch.
func decodeLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}

func (t Text) String() string { return string(t) }

// LeadingInt parses the integer the text starts with, ignoring leading whitespace. "80kg" gives 80.
func (t Text) LeadingInt() (int, bool) {
	s := strings.TrimSpace(string(t))
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Minutes is a duration in whole minutes that also accepts strings such as "45 minutes".
type Minutes int

func (m *Minutes) UnmarshalJSON(data []byte) error {
	t := Text(textOf(bytes.TrimSpace(data)))
	if t == "" {
		*m = 0
		return nil
	}
	n, ok := t.LeadingInt()
	if !ok {
		*m = 0
		return nil
	}
	*m = Minutes(n)
	return nil
}

// PlannedExercise is a prescribed exercise. The Actual fields hold what the user really did.
type PlannedExercise struct {
	Name         string `json:"name"`
	Sets         Text   `json:"sets,omitempty"`
	Reps         Text   `json:"reps,omitempty"`
	Duration     Text   `json:"duration,omitempty"`
	Rest         Text   `json:"rest,omitempty"`
	Category     string `json:"category,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Scaling      string `json:"scaling,omitempty"`
	Weight       Text   `json:"weight,omitempty"`
	ActualSets   Text   `json:"actualSets,omitempty"`
	ActualReps   Text   `json:"actualReps,omitempty"`
	ActualWeight Text   `json:"actualWeight,omitempty"`
	ActualRest   Text   `json:"actualRest,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// HasActuals reports whether any performance has been recorded.
func (e PlannedExercise) HasActuals() bool {
	return e.ActualSets != "" || e.ActualReps != "" || e.ActualWeight != "" || e.ActualRest != "" || e.Notes != ""
}

// UnmarshalJSON also accepts a bare string as the exercise name.
func (e *PlannedExercise) UnmarshalJSON(data []byte) error {
	type plain PlannedExercise
	*e = PlannedExercise{}
	if name, ok := bareString(data); ok {
		e.Name = name
		return nil
	}
	return decodeLenient(data, (*plain)(e))
}

// SectionExercise is a warmup or cooldown item.
type SectionExercise struct {
	Name         string `json:"name"`
	Duration     Text   `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Completed    bool   `json:"completed,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// UnmarshalJSON also accepts a bare string as the exercise name.
func (e *SectionExercise) UnmarshalJSON(data []byte) error {
	type plain SectionExercise
	*e = SectionExercise{}
	if name, ok := bareString(data); ok {
		e.Name = name
		return nil
	}
	return decodeLenient(data, (*plain)(e))
}

func bareString(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

// Section is a warmup or cooldown.
type Section struct {
	Duration  Text              `json:"duration,omitempty"`
	Exercises []SectionExercise `json:"exercises"`
}

// UnmarshalJSON also accepts a bare list of exercises.
func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	*s = Section{}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeLenient(trimmed, &s.Exercises)
	}
	return decodeLenient(data, (*plain)(s))
}

// StrengthSection is the main lift block of a structured workout.
type StrengthSection struct {
	Duration  Text              `json:"duration,omitempty"`
	Focus     string            `json:"focus,omitempty"`
	Exercises []PlannedExercise `json:"exercises"`
}

// WODSection is the conditioning block of a structured workout.
type WODSection struct {
	Duration    Text              `json:"duration,omitempty"`
	WorkoutType string            `json:"workoutType,omitempty"`
	Description string            `json:"description,omitempty"`
	Exercises   []PlannedExercise `json:"exercises"`
}

// Workout is a saved or suggested workout document.
//
// The main content is either the flat Exercises list or the Strength and WOD pair. Both may be present.
type Workout struct {
	ID                string            `json:"id,omitempty"`
	Name              string            `json:"name"`
	FocusArea         FocusArea         `json:"focusArea,omitempty"`
	EstimatedDuration Minutes           `json:"estimatedDuration,omitempty"`
	Difficulty        FitnessLevel      `json:"difficulty,omitempty"`
	Intensity         Intensity         `json:"intensity,omitempty"`
	Type              Type              `json:"type,omitempty"`
	CreatedAt         time.Time         `json:"createdAt,omitzero"`
	UpdatedAt         time.Time         `json:"updatedAt,omitzero"`
	Warmup            *Section          `json:"warmup,omitempty"`
	Strength          *StrengthSection  `json:"strength,omitempty"`
	WOD               *WODSection       `json:"wod,omitempty"`
	Exercises         []PlannedExercise `json:"exercises,omitempty"`
	Cooldown          *Section          `json:"cooldown,omitempty"`
	ActualDuration    Minutes           `json:"actualDuration,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Completed         bool              `json:"completed,omitempty"`
	// Preferences the workout was generated from. Empty for manual workouts.
	Preferences *Preferences `json:"preferences,omitempty"`
}

// HasStructuredContent reports whether the workout has both a strength and a WOD section.
func (w Workout) HasStructuredContent() bool {
	return w.Strength != nil && w.WOD != nil
}

// AllExercises returns the planned exercises of the flat list, the strength section and the WOD in that order.
func (w Workout) AllExercises() []PlannedExercise {
	all := slices.Clone(w.Exercises)
	if w.Strength != nil {
		all = append(all, w.Strength.Exercises...)
	}
	if w.WOD != nil {
		all = append(all, w.WOD.Exercises...)
	}
	return all
}

// ExerciseCount counts planned exercises across all sections.
func (w Workout) ExerciseCount() int {
	return len(w.AllExercises())
}

// Duration is the actual duration when recorded and the estimate otherwise.
func (w Workout) Duration() int {
	if w.ActualDuration > 0 {
		return int(w.ActualDuration)
	}
	return int(w.EstimatedDuration)
}

// Clone returns a deep copy.
func (w Workout) Clone() Workout {
	c := w
	c.Exercises = slices.Clone(w.Exercises)
	if w.Warmup != nil {
		s := *w.Warmup
		s.Exercises = slices.Clone(s.Exercises)
		c.Warmup = &s
	}
	if w.Cooldown != nil {
		s := *w.Cooldown
		s.Exercises = slices.Clone(s.Exercises)
		c.Cooldown = &s
	}
	if w.Strength != nil {
		s := *w.Strength
		s.Exercises = slices.Clone(s.Exercises)
		c.Strength = &s
	}
	if w.WOD != nil {
		s := *w.WOD
		s.Exercises = slices.Clone(s.Exercises)
		c.WOD = &s
	}
	if w.Preferences != nil {
		p := *w.Preferences
		p.AvailableEquipment = slices.Clone(p.AvailableEquipment)
		c.Preferences = &p
	}
	return c
}

// SectionName identifies an exercise list inside a workout.
type SectionName string

const (
	SectionExercises SectionName = "exercises"
	SectionStrength  SectionName = "strength"
	SectionWOD       SectionName = "wod"
	SectionWarmup    SectionName = "warmup"
	SectionCooldown  SectionName = "cooldown"
)

// ExercisePerformance is what the user did for one planned exercise. Empty values leave the recorded ones
// untouched.
type ExercisePerformance struct {
	Section      SectionName
	Index        int
	ActualSets   string
	ActualReps   string
	ActualWeight string
	ActualRest   string
	Notes        string
}

// ItemPerformance marks a warmup or cooldown item done.
type ItemPerformance struct {
	Section   SectionName
	Index     int
	Completed bool
	Notes     string
}

// Performance is a recording of a workout session.
type Performance struct {
	Exercises      []ExercisePerformance
	Items          []ItemPerformance
	ActualDuration int
	Notes          string
	Completed      bool
}
