package skillweave

import (
	"fmt"
	"strings"
)

// ExplainMatch renders a one-line summary of a match result in plain
// language. Confidence is given in [0,1] and reported as a percentage.
func ExplainMatch(title, code string, confidence float64) string {
	return fmt.Sprintf("Your profile matches %s (NCO %s) with %.0f%% confidence.", title, code, confidence*100)
}

// ExplainGap summarizes the skills still missing for an occupation. With
// nothing missing it reports readiness instead.
func ExplainGap(title string, missing []string) string {
	if len(missing) == 0 {
		return fmt.Sprintf("You already meet the core skill requirements for %s.", title)
	}
	return fmt.Sprintf("To be ready for %s, build these skills next: %s.", title, strings.Join(missing, ", "))
}

// ExplainTransition renders a career move suggestion. The reason clause is
// dropped when the transition has none recorded.
func ExplainTransition(fromTitle, toTitle, reason string) string {
	if reason == "" {
		return fmt.Sprintf("From %s you can move toward %s.", fromTitle, toTitle)
	}
	return fmt.Sprintf("From %s you can move toward %s: %s.", fromTitle, toTitle, reason)
}
