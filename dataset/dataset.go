// Package dataset reads and writes the exchange formats surrounding
// extraction: the published occupation table as CSV or XLSX, plus the
// skill and transition tables that enrich it.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skillweave/skillweave/nco"
)

// Transition is one directed row of a career-transition table.
type Transition struct {
	From   string `json:"from_nco"`
	To     string `json:"to_nco"`
	Reason string `json:"reason,omitempty"`
}

var (
	occupationColumns = []string{"nco_code", "title", "description"}
	skillColumns      = []string{"nco_code", "skill"}
	transitionColumns = []string{"from_nco", "to_nco", "reason"}
)

// ReadSkills loads a skill table, choosing the parser by file extension.
// Anything that is not .xlsx is treated as CSV.
func ReadSkills(path string) (map[string][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadSkillsXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadSkillsCSV(f)
}

// ReadTransitions loads a transition table, choosing the parser by file
// extension. Anything that is not .xlsx is treated as CSV.
func ReadTransitions(path string) ([]Transition, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadTransitionsXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadTransitionsCSV(f)
}

// checkHeader verifies the leading columns of a header row, ignoring case
// and padding.
func checkHeader(got, want []string) error {
	if len(got) < len(want) {
		return fmt.Errorf("header %v, want columns %v", got, want)
	}
	for i, col := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), col) {
			return fmt.Errorf("header %v, want columns %v", got, want)
		}
	}
	return nil
}

func occupationsFromRows(rows [][]string) ([]nco.Occupation, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	if err := checkHeader(rows[0], occupationColumns); err != nil {
		return nil, err
	}

	occs := make([]nco.Occupation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: want 3 columns, got %d", i+2, len(row))
		}
		occs = append(occs, nco.Occupation{
			Code:        strings.TrimSpace(row[0]),
			Title:       strings.TrimSpace(row[1]),
			Description: strings.TrimSpace(row[2]),
		})
	}
	return occs, nil
}

func skillsFromRows(rows [][]string) (map[string][]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	if err := checkHeader(rows[0], skillColumns); err != nil {
		return nil, err
	}

	skills := make(map[string][]string)
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want 2 columns, got %d", i+2, len(row))
		}
		code, skill := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if code == "" || skill == "" {
			continue
		}
		skills[code] = append(skills[code], skill)
	}
	return skills, nil
}

func transitionsFromRows(rows [][]string) ([]Transition, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	// The reason column is optional, so only the first two names are
	// required.
	if err := checkHeader(rows[0], transitionColumns[:2]); err != nil {
		return nil, err
	}

	var ts []Transition
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want 2 columns, got %d", i+2, len(row))
		}
		tr := Transition{From: strings.TrimSpace(row[0]), To: strings.TrimSpace(row[1])}
		if len(row) > 2 {
			tr.Reason = strings.TrimSpace(row[2])
		}
		if tr.From == "" || tr.To == "" {
			continue
		}
		ts = append(ts, tr)
	}
	return ts, nil
}
