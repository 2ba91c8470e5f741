// Package nco extracts structured occupation records from the two-column
// National Classification of Occupations 2015 PDF volumes published by the
// Government of India. Positioned words from a PDF page are split into
// columns, grouped into lines, classified, and assembled into
// (code, title, description) records.
package nco

// Occupation is a single extracted record: a 4-digit NCO-2015 code, the
// occupation title, and the free-text duty description.
type Occupation struct {
	Code        string `json:"nco_code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Limits holds the acceptance thresholds applied when a candidate record
// is finalized, plus the reporting floor used by statistics.
type Limits struct {
	// MinTitleLen is the minimum byte length for a usable title.
	MinTitleLen int `json:"min_title_len" yaml:"min_title_len"`

	// MinDescriptionLen is the minimum byte length for a meaningful
	// description. Records below it are dropped silently.
	MinDescriptionLen int `json:"min_description_len" yaml:"min_description_len"`

	// ShortDescriptionLen is the reporting-only floor: statistics count
	// how many kept records fall below it.
	ShortDescriptionLen int `json:"short_description_len" yaml:"short_description_len"`
}

// DefaultLimits returns the thresholds used by the published dataset.
func DefaultLimits() Limits {
	return Limits{
		MinTitleLen:         4,
		MinDescriptionLen:   21,
		ShortDescriptionLen: 50,
	}
}

// Valid reports whether the record passes the acceptance thresholds:
// a well-formed code, a title of at least MinTitleLen bytes, and a
// description of at least MinDescriptionLen bytes.
func (o Occupation) Valid(l Limits) bool {
	if !ValidCode(o.Code) {
		return false
	}
	if len(o.Title) < l.MinTitleLen {
		return false
	}
	return len(o.Description) >= l.MinDescriptionLen
}

// Division returns the NCO-2015 division title for this record's code.
func (o Occupation) Division() string {
	return DivisionName(o.Code)
}
