package catalog

import (
	"slices"
	"strings"
)

func ownedSet(owned []string) map[string]bool {
	set := make(map[string]bool, len(owned))
	for _, tag := range owned {
		set[strings.ToLower(strings.TrimSpace(tag))] = true
	}
	return set
}

// Filter keeps the entries whose requirements are all owned. Entries without requirements are always kept.
// The order of the input is preserved.
func Filter(entries []Entry, owned []string) []Entry {
	have := ownedSet(owned)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		eligible := true
		for _, tag := range e.Requires {
			if !have[tag] {
				eligible = false
				break
			}
		}
		if eligible {
			out = append(out, e)
		}
	}
	return out
}

// Prioritize returns the entries ordered by how many owned pieces of equipment they use, most first. On ties an
// entry that needs any equipment comes before a bodyweight one, and otherwise input order is kept.
func Prioritize(entries []Entry, owned []string) []Entry {
	have := ownedSet(owned)
	score := func(e Entry) int {
		n := 0
		for _, tag := range e.Requires {
			if have[tag] {
				n++
			}
		}
		return n
	}
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		if d := score(b) - score(a); d != 0 {
			return d
		}
		switch {
		case len(a.Requires) > 0 && len(b.Requires) == 0:
			return -1
		case len(a.Requires) == 0 && len(b.Requires) > 0:
			return 1
		default:
			return 0
		}
	})
	return out
}

// FilterByName applies the lenient name based equipment rules to a fallback pool.
//
// Rules are evaluated in order against the lower-cased name. The first rule that matches and whose equipment is
// missing decides: the exercise is kept when the rule allows doing it without the equipment or an alternative
// is owned, and dropped otherwise. Exercises that no rule rejects are kept.
func (c *Catalog) FilterByName(pool []PoolEntry, owned []string) []PoolEntry {
	have := ownedSet(owned)
	out := make([]PoolEntry, 0, len(pool))
	for _, p := range pool {
		if c.keepByName(strings.ToLower(p.Name), have) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) keepByName(name string, have map[string]bool) bool {
	for _, rule := range c.doc.LenientRules {
		if !strings.Contains(name, rule.Contains) || have[rule.Requires] {
			continue
		}
		if rule.KeepWithout {
			return true
		}
		return slices.ContainsFunc(rule.Alternatives, func(alt string) bool { return have[alt] })
	}
	return true
}
