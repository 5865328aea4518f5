package plans

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"meal-planner/internal/config"
	"meal-planner/internal/generation"
	"meal-planner/internal/week"
)

// Schedule picks the default preset for a week from an ordered list of
// boolean expressions. The first rule that holds wins.
type Schedule struct {
	rules    []seasonRule
	fallback string
}

type seasonRule struct {
	preset string
	when   string
	prog   *vm.Program
}

// NewSchedule compiles the rules. Every rule must name a preset in presets.
func NewSchedule(rules []config.SeasonRule, presets *generation.Catalog) (*Schedule, error) {
	s := &Schedule{}
	if all := presets.All(); len(all) > 0 {
		s.fallback = all[0].Key
	}

	env := seasonEnv(time.Time{}, week.Week{})
	for _, r := range rules {
		if _, ok := presets.FindPreset(r.Preset); !ok {
			return nil, fmt.Errorf("schedule: %w: %s", ErrUnknownPreset, r.Preset)
		}
		prog, err := expr.Compile(r.When, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("schedule: compile %q: %w", r.When, err)
		}
		s.rules = append(s.rules, seasonRule{preset: r.Preset, when: r.When, prog: prog})
	}
	return s, nil
}

// Pick returns the preset key for w. When no rule holds it returns the first
// preset of the catalog.
func (s *Schedule) Pick(w week.Week) (string, error) {
	start, _ := w.DateRange(time.UTC)
	env := seasonEnv(start, w)
	for _, r := range s.rules {
		out, err := expr.Run(r.prog, env)
		if err != nil {
			return "", fmt.Errorf("evaluate %q: %w", r.when, err)
		}
		if ok, _ := out.(bool); ok {
			return r.preset, nil
		}
	}
	if s.fallback == "" {
		return "", ErrUnknownPreset
	}
	return s.fallback, nil
}

func seasonEnv(saturday time.Time, w week.Week) map[string]any {
	return map[string]any{
		"month": int(saturday.Month()),
		"week":  w.Num,
		"year":  w.Year,
	}
}
