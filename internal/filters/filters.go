// Package filters narrows a ranked profit list by name and profession.
package filters

import (
	"regexp"
	"slices"

	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

// Criteria selects which records are shown.
type Criteria struct {
	// Name is a case-insensitive regular expression matched against the
	// recipe name and the names of the crafted item and every reagent.
	// An invalid expression is matched literally.
	Name string `json:"name"`

	// Professions limits the result to these professions. Empty means all.
	Professions []string `json:"professions"`
}

// Result is the filtered list in ranking order.
type Result struct {
	Records []*profit.Record `json:"records"`

	// Empty is true when no record matched, so the UI can show its empty state.
	Empty bool `json:"empty"`
}

// Apply returns the records matching c, preserving their order.
func Apply(records []*profit.Record, c Criteria) Result {
	name := compileName(c.Name)
	out := make([]*profit.Record, 0, len(records))
	for _, r := range records {
		if len(c.Professions) > 0 && !slices.Contains(c.Professions, r.Profession) {
			continue
		}
		if name != nil && !matchesName(name, r) {
			continue
		}
		out = append(out, r)
	}
	return Result{Records: out, Empty: len(out) == 0}
}

// Professions returns the distinct professions present in records, sorted.
func Professions(records []*profit.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Profession]; ok {
			continue
		}
		seen[r.Profession] = struct{}{}
		out = append(out, r.Profession)
	}
	slices.Sort(out)
	return out
}

func compileName(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}
	return re
}

func matchesName(re *regexp.Regexp, r *profit.Record) bool {
	if re.MatchString(r.Name) {
		return true
	}
	if r.Crafts != nil && r.Crafts.Item != nil && re.MatchString(r.Crafts.Item.Name) {
		return true
	}
	for _, reagent := range r.Cost.Reagents {
		if reagent.Item != nil && re.MatchString(reagent.Item.Name) {
			return true
		}
	}
	return false
}
