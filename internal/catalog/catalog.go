// Package catalog holds the static exercise data used to compose workout suggestions.
//
// The data is compiled into the binary from catalog.yaml and decoded once. A [Catalog] is read-only after
// construction and safe for concurrent use.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Levels in the order they are presented to users.
var Levels = []string{"beginner", "intermediate", "advanced"} //nolint:gochecknoglobals // static lookup.

// FocusAreas in the order they are presented to users.
var FocusAreas = []string{"full body", "upper body", "lower body", "core", "cardio"} //nolint:gochecknoglobals // static lookup.

const fullBody = "full body"

// Entry is a single exercise template.
type Entry struct {
	Name         string `yaml:"name"`
	Sets         int    `yaml:"sets"`
	Reps         string `yaml:"reps"`
	Duration     string `yaml:"duration"`
	Rest         string `yaml:"rest"`
	Category     string `yaml:"category"`
	Instructions string `yaml:"instructions"`
	// Requires lists the equipment tags needed to perform the exercise. Empty means bodyweight.
	Requires []string `yaml:"-"`
}

// Timed reports whether the entry is prescribed by duration instead of reps.
func (e Entry) Timed() bool {
	return e.Reps == "" && e.Duration != ""
}

// EquipmentTag is a piece of equipment a user can own.
type EquipmentTag struct {
	Tag   string `yaml:"tag"`
	Label string `yaml:"label"`
}

// PoolEntry is an exercise in one of the fallback pools.
type PoolEntry struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// SectionEntry is a warmup or cooldown item.
type SectionEntry struct {
	Name         string `yaml:"name"`
	Duration     string `yaml:"duration"`
	Instructions string `yaml:"instructions"`
}

// Section is a default warmup or cooldown.
type Section struct {
	Duration  string         `yaml:"duration"`
	Exercises []SectionEntry `yaml:"exercises"`
}

// Lift is a main lift for the default strength section. Scheme is written as "{sets}x{reps}".
type Lift struct {
	Name   string `yaml:"name"`
	Scheme string `yaml:"scheme"`
	Rest   string `yaml:"rest"`
}

// SetsAndReps splits the scheme at the first "x".
func (l Lift) SetsAndReps() (string, string) {
	sets, reps, _ := strings.Cut(l.Scheme, "x")
	return sets, reps
}

// WODCandidate is an exercise that can be picked for the default WOD.
type WODCandidate struct {
	Name     string `yaml:"name"`
	Reps     string `yaml:"reps"`
	Category string `yaml:"category"`
}

// Defaults are the building blocks of synthetic workouts.
type Defaults struct {
	Warmup        Section        `yaml:"warmup"`
	Cooldown      Section        `yaml:"cooldown"`
	BarbellLifts  []Lift         `yaml:"barbellLifts"`
	DumbbellLifts []Lift         `yaml:"dumbbellLifts"`
	WODCandidates []WODCandidate `yaml:"wodCandidates"`
}

type levelTemplates struct {
	Strength []Entry `yaml:"strength"`
	Cardio   []Entry `yaml:"cardio"`
}

// lenientRule drops exercises whose name contains Contains unless Requires or one of the Alternatives is owned.
// With KeepWithout the exercise is kept anyway because it can be done without the equipment.
type lenientRule struct {
	Contains     string   `yaml:"contains"`
	Requires     string   `yaml:"requires"`
	Alternatives []string `yaml:"alternatives"`
	KeepWithout  bool     `yaml:"keepWithout"`
}

type document struct {
	EquipmentTags []EquipmentTag            `yaml:"equipmentTags"`
	Levels        map[string]levelTemplates `yaml:"levels"`
	FocusAreas    map[string][]string       `yaml:"focusAreas"`
	Equipment     map[string][]string       `yaml:"equipment"`
	FallbackPools map[string][]PoolEntry    `yaml:"fallbackPools"`
	LenientRules  []lenientRule             `yaml:"lenientRules"`
	Defaults      Defaults                  `yaml:"defaults"`
}

// Catalog is the immutable exercise catalog.
type Catalog struct {
	doc document
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	for _, level := range Levels {
		templates, ok := doc.Levels[level]
		if !ok || len(templates.Strength) == 0 || len(templates.Cardio) == 0 {
			return nil, fmt.Errorf("level %q: missing strength or cardio templates", level)
		}
		for _, list := range [][]Entry{templates.Strength, templates.Cardio} {
			for i := range list {
				list[i].Requires = doc.Equipment[list[i].Name]
			}
		}
	}
	for _, focus := range FocusAreas {
		if len(doc.FocusAreas[focus]) == 0 {
			return nil, fmt.Errorf("focus area %q: no exercises", focus)
		}
	}
	if len(doc.FallbackPools[fullBody]) == 0 || len(doc.FallbackPools["core"]) == 0 {
		return nil, fmt.Errorf("fallback pools must contain %q and %q", fullBody, "core")
	}
	if len(doc.Defaults.BarbellLifts) == 0 || len(doc.Defaults.DumbbellLifts) == 0 {
		return nil, fmt.Errorf("defaults: missing main lifts")
	}
	return &Catalog{doc: doc}, nil
}

//nolint:gochecknoglobals // the embedded catalog is decoded once per process.
var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
})

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	return defaultCatalog()
}

// Templates returns copies of the strength and cardio templates of the level. Unknown levels get the beginner
// templates.
func (c *Catalog) Templates(level string) ([]Entry, []Entry) {
	templates, ok := c.doc.Levels[level]
	if !ok {
		templates = c.doc.Levels[Levels[0]]
	}
	return cloneEntries(templates.Strength), cloneEntries(templates.Cardio)
}

// FocusExercises returns the exercise names for a focus area, using the full body list for unknown areas.
func (c *Catalog) FocusExercises(focus string) []string {
	names, ok := c.doc.FocusAreas[focus]
	if !ok {
		names = c.doc.FocusAreas[fullBody]
	}
	return slices.Clone(names)
}

// Lookup finds a template of the level by exact name.
func (c *Catalog) Lookup(level, name string) (Entry, bool) {
	strength, cardio := c.Templates(level)
	for _, e := range slices.Concat(strength, cardio) {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false //nolint:exhaustruct // zero value on miss.
}

// Requirements returns the equipment needed for the named exercise. Unknown exercises need nothing.
func (c *Catalog) Requirements(name string) []string {
	return slices.Clone(c.doc.Equipment[name])
}

// FallbackPool returns the pool of a category, using the full body pool for unknown categories.
func (c *Catalog) FallbackPool(category string) []PoolEntry {
	pool, ok := c.doc.FallbackPools[category]
	if !ok {
		pool = c.doc.FallbackPools[fullBody]
	}
	return slices.Clone(pool)
}

// EquipmentTags lists all known equipment.
func (c *Catalog) EquipmentTags() []EquipmentTag {
	return slices.Clone(c.doc.EquipmentTags)
}

// KnownEquipment reports whether tag is one of [Catalog.EquipmentTags].
func (c *Catalog) KnownEquipment(tag string) bool {
	return slices.ContainsFunc(c.doc.EquipmentTags, func(t EquipmentTag) bool { return t.Tag == tag })
}

// Defaults returns the building blocks of synthetic workouts.
func (c *Catalog) Defaults() Defaults {
	d := c.doc.Defaults
	d.Warmup.Exercises = slices.Clone(d.Warmup.Exercises)
	d.Cooldown.Exercises = slices.Clone(d.Cooldown.Exercises)
	d.BarbellLifts = slices.Clone(d.BarbellLifts)
	d.DumbbellLifts = slices.Clone(d.DumbbellLifts)
	d.WODCandidates = slices.Clone(d.WODCandidates)
	return d
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Requires = slices.Clone(e.Requires)
		out[i] = e
	}
	return out
}
