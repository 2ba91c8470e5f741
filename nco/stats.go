package nco

// Stats summarizes an extracted dataset for validation reporting.
type Stats struct {
	Total             int            `json:"total"`
	Divisions         map[string]int `json:"divisions"` // leading digit -> count
	MinDescriptionLen int            `json:"min_description_len"`
	MaxDescriptionLen int            `json:"max_description_len"`
	AvgDescriptionLen float64        `json:"avg_description_len"`

	// ShortDescriptions counts kept records whose description falls below
	// the reporting floor. High counts usually mean the source layout
	// drifted and the segmenter is splitting blocks early.
	ShortDescriptions int `json:"short_descriptions"`
}

// Summarize computes dataset statistics using limits.ShortDescriptionLen
// as the short-description floor.
func Summarize(occs []Occupation, limits Limits) Stats {
	s := Stats{Divisions: make(map[string]int)}
	s.Total = len(occs)
	for i, o := range occs {
		if o.Code != "" {
			s.Divisions[o.Code[:1]]++
		}
		n := len(o.Description)
		if i == 0 || n < s.MinDescriptionLen {
			s.MinDescriptionLen = n
		}
		if n > s.MaxDescriptionLen {
			s.MaxDescriptionLen = n
		}
		s.AvgDescriptionLen += float64(n)
		if n < limits.ShortDescriptionLen {
			s.ShortDescriptions++
		}
	}
	if s.Total > 0 {
		s.AvgDescriptionLen /= float64(s.Total)
	}
	return s
}
