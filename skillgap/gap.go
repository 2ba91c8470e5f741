// Package skillgap compares the skills a worker reports against the
// skills an occupation requires.
package skillgap

import (
	"sort"
	"strings"
)

// Gap is the result of comparing worker skills against an occupation's
// requirements.
type Gap struct {
	Matched []string `json:"matched,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Coverage reports the fraction of required skills matched, in 0..1.
// A gap with no required skills counts as fully covered.
func (g Gap) Coverage() float64 {
	total := len(g.Matched) + len(g.Missing)
	if total == 0 {
		return 1
	}
	return float64(len(g.Matched)) / float64(total)
}

// Normalize trims whitespace, drops empties, and deduplicates skills
// case-insensitively, keeping the first casing seen.
func Normalize(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	var out []string
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Analyze splits required into the skills present in have and the ones
// missing from it. Comparison is case-insensitive; results keep the
// required list's casing and come back sorted.
func Analyze(required, have []string) Gap {
	haveSet := make(map[string]bool, len(have))
	for _, s := range Normalize(have) {
		haveSet[strings.ToLower(s)] = true
	}

	var gap Gap
	for _, s := range Normalize(required) {
		if haveSet[strings.ToLower(s)] {
			gap.Matched = append(gap.Matched, s)
		} else {
			gap.Missing = append(gap.Missing, s)
		}
	}
	sort.Strings(gap.Matched)
	sort.Strings(gap.Missing)
	return gap
}
