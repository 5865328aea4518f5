package generation

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// MealCandidate is one catalog entry offered to the engine.
type MealCandidate struct {
	ID   string
	Name string
	Tags []string
}

// Warning describes a preset constraint that could not be fully satisfied.
type Warning struct {
	Message string `json:"message"`
}

// Result is the outcome of a generation run. MealIDs holds unique ids in
// selection order; Warnings are in the order they were detected.
type Result struct {
	MealIDs  []string  `json:"meal_ids"`
	Warnings []Warning `json:"warnings"`
}

// Messages returns the warning texts.
func (r Result) Messages() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Message
	}
	return out
}

// Rand is the random source used for sampling. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Engine resolves presets against a meal catalog.
type Engine struct {
	rng Rand
}

// NewEngine returns an engine drawing from rng, or from the process-wide
// source when rng is nil.
func NewEngine(rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{rng: rng}
}

// Generate runs the default engine.
func Generate(preset Preset, allMeals []MealCandidate, previousDone map[string]bool) Result {
	return NewEngine(nil).Generate(preset, allMeals, previousDone)
}

// Generate resolves the preset's fixed meals by name, then samples each random
// rule from the meals not yet selected and not in previousDone. Missing fixed
// meals and short rule pools are reported as warnings, never as errors.
func (e *Engine) Generate(preset Preset, allMeals []MealCandidate, previousDone map[string]bool) Result {
	sel := newSelection()
	warnings := []Warning{}

	for _, name := range preset.FixedMealNames {
		m, ok := findByName(allMeals, name)
		if !ok {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("Fixed meal \"%s\" not found", name)})
			continue
		}
		sel.add(m.ID)
	}

	for _, rule := range preset.RandomRules {
		want := max(rule.Count, 0)
		pool := eligible(allMeals, rule, sel, previousDone)
		picks := min(want, len(pool))

		for i := 0; i < picks; i++ {
			j := i + e.rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
			sel.add(pool[i].ID)
		}

		if picks < want {
			warnings = append(warnings, Warning{Message: fmt.Sprintf(
				"Could only find %d/%d meals with tag \"%s\" (missing %d)",
				picks, want, rule.RequiredTag, want-picks,
			)})
		}
	}

	return Result{MealIDs: sel.ids, Warnings: warnings}
}

// selection is an insertion-ordered id set.
type selection struct {
	ids  []string
	seen map[string]bool
}

func newSelection() *selection {
	return &selection{ids: []string{}, seen: make(map[string]bool)}
}

func (s *selection) add(id string) {
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}

func (s *selection) has(id string) bool {
	return s.seen[id]
}

func findByName(meals []MealCandidate, name string) (MealCandidate, bool) {
	for _, m := range meals {
		if sameText(m.Name, name) {
			return m, true
		}
	}
	return MealCandidate{}, false
}

// eligible returns a fresh slice, so the caller may shuffle it in place.
func eligible(meals []MealCandidate, rule RandomRule, sel *selection, previousDone map[string]bool) []MealCandidate {
	var pool []MealCandidate
	for _, m := range meals {
		if sel.has(m.ID) || previousDone[m.ID] {
			continue
		}
		if !hasTag(m.Tags, rule.RequiredTag) {
			continue
		}
		excluded := false
		for _, ex := range rule.ExcludedTags {
			if hasTag(m.Tags, ex) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		pool = append(pool, m)
	}
	return pool
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if sameText(t, tag) {
			return true
		}
	}
	return false
}

// sameText compares lowercased forms rather than case-folding, so "ſ" does
// not match "s".
func sameText(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}
