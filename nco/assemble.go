package nco

import (
	"log/slog"
	"strings"
)

// assemblerState tracks where the assembler is in the line stream.
type assemblerState int

const (
	// stateIdle: no open candidate.
	stateIdle assemblerState = iota

	// stateInCandidate: a record is open and collecting description lines.
	stateInCandidate

	// stateMetadataResync: a qualification-pack block interrupted the
	// stream; everything is skipped until the next valid occupation code.
	stateMetadataResync
)

// candidate is an occupation record under construction.
type candidate struct {
	code  string
	title string
	desc  []string
}

// Assembler folds a classified line stream into occupation records. Feed
// lines in reading order and call Finish once after the last line to
// flush the open candidate.
type Assembler struct {
	classifier *Classifier
	limits     Limits

	state   assemblerState
	current *candidate
	records []Occupation
}

// NewAssembler returns an assembler using the given classifier and
// acceptance thresholds.
func NewAssembler(c *Classifier, limits Limits) *Assembler {
	return &Assembler{classifier: c, limits: limits}
}

// Feed advances the machine by one line.
func (a *Assembler) Feed(line string) {
	line = strings.TrimSpace(line)
	kind := a.classifier.Classify(line)

	// While resyncing, only a metadata line (which re-arms the skip) or a
	// valid occupation code gets through; code-shaped lines that failed
	// validity are classified as descriptions and fall away here.
	if a.state == stateMetadataResync && kind != KindOccupationStart && kind != KindMetadata {
		return
	}

	switch kind {
	case KindNoise, KindStructuralHeader:
		// Dropped; headings never touch the open candidate.
	case KindMetadata:
		a.onMetadata()
	case KindOccupationStart:
		a.onOccupationStart(line)
	case KindDescription:
		a.onDescription(line)
	}
}

// onMetadata finalizes any open candidate and pauses assembly until the
// next valid occupation code.
func (a *Assembler) onMetadata() {
	a.finalize()
	a.state = stateMetadataResync
}

// onOccupationStart finalizes the open candidate and opens a new one from
// the code and title on this line. A title still shorter than three
// characters after ISCO cleanup aborts the candidate so that stray code
// echoes do not swallow the following block.
func (a *Assembler) onOccupationStart(line string) {
	a.finalize()

	fields := strings.Fields(line)
	title := CleanTitle(strings.Join(fields[1:], " "))
	if len(title) < 3 {
		return
	}
	a.current = &candidate{code: fields[0], title: title}
	a.state = stateInCandidate
}

// onDescription appends the line to the open candidate, or finalizes and
// resyncs when the stop predicate fires. The metadata and header checks
// repeat here because the stop predicate can interrupt a block regardless
// of how the line was classified.
func (a *Assembler) onDescription(line string) {
	if a.current == nil {
		return
	}
	if ShouldStop(line) {
		a.finalize()
		a.state = stateMetadataResync
		return
	}
	if a.classifier.IsMetadata(line) || a.classifier.IsHeader(line) {
		return
	}
	a.current.desc = append(a.current.desc, line)
}

// finalize closes the open candidate, keeping it only when it collected
// description text that passes the acceptance thresholds. Failing
// candidates are dropped without error.
func (a *Assembler) finalize() {
	cur := a.current
	a.current = nil
	a.state = stateIdle
	if cur == nil || len(cur.desc) == 0 {
		return
	}

	occ := Occupation{
		Code:        cur.code,
		Title:       cur.title,
		Description: CleanText(strings.Join(cur.desc, " ")),
	}
	if !occ.Valid(a.limits) {
		slog.Debug("dropping malformed record", "code", occ.Code, "title", occ.Title)
		return
	}
	a.records = append(a.records, occ)
}

// Finish flushes the open candidate and returns the assembled records in
// encounter order. Safe to call more than once; later calls add nothing.
func (a *Assembler) Finish() []Occupation {
	a.finalize()
	return a.records
}
