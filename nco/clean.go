package nco

import (
	"regexp"
	"strings"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	controlRE    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)

	// Page furniture that leaks into descriptions when a block spans a
	// page break.
	pageArtifactRE = regexp.MustCompile(`(?i)\bpage\s+\d+\b`)
	headerEchoRE   = regexp.MustCompile(`(?i)\bcode\s+\d{4}\s+title\b`)

	iscoParenRE = regexp.MustCompile(`(?i)\s*\(.*?isco.*?\)`)
	iscoTailRE  = regexp.MustCompile(`(?i)\s*isco.*$`)
)

// CleanText normalizes extracted text: whitespace runs collapse to single
// spaces, control characters and page artifacts are removed. Idempotent,
// so re-cleaning stored text is a no-op.
func CleanText(s string) string {
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = controlRE.ReplaceAllString(s, "")
	s = pageArtifactRE.ReplaceAllString(s, " ")
	s = headerEchoRE.ReplaceAllString(s, " ")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanTitle strips ISCO cross-references and stray punctuation from the
// raw title segment of an occupation-start line.
func CleanTitle(s string) string {
	s = iscoParenRE.ReplaceAllString(s, "")
	s = iscoTailRE.ReplaceAllString(s, "")
	return strings.Trim(s, ";,. ")
}

// Deduplicate removes repeat codes, keeping the first occurrence of each
// and preserving input order. Idempotent.
func Deduplicate(occs []Occupation) []Occupation {
	seen := make(map[string]bool, len(occs))
	out := make([]Occupation, 0, len(occs))
	for _, o := range occs {
		if seen[o.Code] {
			continue
		}
		seen[o.Code] = true
		out = append(out, o)
	}
	return out
}
