package nco

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind labels a page line for the record assembler.
type Kind int

const (
	// KindNoise marks empty lines, fragments, and bare page numbers.
	KindNoise Kind = iota

	// KindMetadata marks qualification-pack material: QP headings,
	// sub-codes, NSQF levels and similar interleaved blocks.
	KindMetadata

	// KindOccupationStart marks a line whose first token is a valid
	// occupation code, opening a new record.
	KindOccupationStart

	// KindStructuralHeader marks division, family, and front-matter
	// headings that never belong to a description.
	KindStructuralHeader

	// KindDescription marks ordinary body text.
	KindDescription
)

func (k Kind) String() string {
	switch k {
	case KindNoise:
		return "noise"
	case KindMetadata:
		return "metadata"
	case KindOccupationStart:
		return "occupation_start"
	case KindStructuralHeader:
		return "structural_header"
	case KindDescription:
		return "description"
	}
	return "unknown"
}

var (
	pageNumberRE = regexp.MustCompile(`^\d+$`)
	subCodeRE    = regexp.MustCompile(`\d{4}\.\d{4}`)
	qpCodeRE     = regexp.MustCompile(`(?i)\b[a-z]{3}/q\d+`)

	stopPatterns = []*regexp.Regexp{
		regexp.MustCompile(`isco[-\s]*08`),
		regexp.MustCompile(`unit group:?\s*\d{4}`),
		regexp.MustCompile(`sub-group:?\s*\d{3}`),
	}
)

// DefaultMetadataKeywords lists the phrases marking qualification-pack
// blocks in the NCO-2015 volumes.
func DefaultMetadataKeywords() []string {
	return []string{
		"qualification pack", "qp-nos", "qp nos", "nsqf", "nos code",
		"performance criteria", "knowledge and understanding", "sector",
		"occupation map", "nveqf", "also known as",
	}
}

// DefaultHeaderKeywords lists the phrases marking structural headings.
func DefaultHeaderKeywords() []string {
	return []string{
		"division", "sub-division", "subdivision", "family", "sub-family",
		"volume", "part", "section", "chapter", "index", "contents",
		"classification", "national", "occupations", "annexure", "group",
		"preface", "foreword", "introduction",
	}
}

// ClassifierConfig controls the keyword sets and code filter used when
// labelling lines. Nil keyword slices fall back to the NCO-2015 defaults.
type ClassifierConfig struct {
	MetadataKeywords []string `json:"metadata_keywords" yaml:"metadata_keywords"`
	HeaderKeywords   []string `json:"header_keywords" yaml:"header_keywords"`

	// CodeMin and CodeMax optionally bound accepted codes numerically
	// (inclusive). Zero disables the bound.
	CodeMin int `json:"code_min" yaml:"code_min"`
	CodeMax int `json:"code_max" yaml:"code_max"`
}

// Classifier labels page lines. Classification is pure and deterministic
// with fixed precedence: noise, metadata, occupation start, structural
// header, description.
type Classifier struct {
	metaKeywords   []string
	headerKeywords []string
	codeMin        int
	codeMax        int
}

// NewClassifier returns a Classifier with the given configuration.
// Nil keyword slices are replaced with the defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		metaKeywords:   cfg.MetadataKeywords,
		headerKeywords: cfg.HeaderKeywords,
		codeMin:        cfg.CodeMin,
		codeMax:        cfg.CodeMax,
	}
	if c.metaKeywords == nil {
		c.metaKeywords = DefaultMetadataKeywords()
	}
	if c.headerKeywords == nil {
		c.headerKeywords = DefaultHeaderKeywords()
	}
	return c
}

// Classify labels a single line.
func (c *Classifier) Classify(line string) Kind {
	line = strings.TrimSpace(line)
	if isNoise(line) {
		return KindNoise
	}
	if c.IsMetadata(line) {
		return KindMetadata
	}
	if c.acceptCode(firstToken(line)) {
		return KindOccupationStart
	}
	if c.IsHeader(line) {
		return KindStructuralHeader
	}
	return KindDescription
}

// isNoise reports empty lines, sub-2-char fragments, and bare page numbers.
func isNoise(line string) bool {
	if len(line) < 2 {
		return true
	}
	return len(line) <= 3 && pageNumberRE.MatchString(line)
}

// IsMetadata reports whether the line belongs to a qualification-pack
// block rather than an occupation entry.
func (c *Classifier) IsMetadata(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range c.metaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if subCodeRE.MatchString(line) {
		return true
	}
	return qpCodeRE.MatchString(line)
}

// IsHeader reports whether the line is a structural heading: a keyword
// match, or a short all-caps line that does not open an occupation.
func (c *Classifier) IsHeader(line string) bool {
	if len(line) < 5 {
		return false
	}
	lower := strings.ToLower(line)
	for _, kw := range c.headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	words := strings.Fields(line)
	return len(words) <= 6 && isUpperCased(line) && !c.acceptCode(words[0])
}

// acceptCode applies the well-formed code check plus the optional
// configured numeric range.
func (c *Classifier) acceptCode(tok string) bool {
	if !ValidCode(tok) {
		return false
	}
	if c.codeMin == 0 && c.codeMax == 0 {
		return true
	}
	n, _ := strconv.Atoi(tok)
	if c.codeMin > 0 && n < c.codeMin {
		return false
	}
	if c.codeMax > 0 && n > c.codeMax {
		return false
	}
	return true
}

// ShouldStop reports whether the line ends the current description block:
// a qualification-pack heading or an ISCO cross-reference.
func ShouldStop(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "qualification pack") || strings.Contains(lower, "qp-nos") {
		return true
	}
	for _, re := range stopPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// isUpperCased reports whether s contains at least one uppercase letter
// and no lowercase letters. Digit-only strings are not upper-cased.
func isUpperCased(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

func firstToken(line string) string {
	f := strings.Fields(line)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
