package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skillweave/skillweave/nco"
)

// WriteCSV writes the dataset with its standard header.
func WriteCSV(w io.Writer, occs []nco.Occupation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(occupationColumns); err != nil {
		return err
	}
	for _, o := range occs {
		if err := cw.Write([]string{o.Code, o.Title, o.Description}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the dataset to path, creating or truncating it.
func WriteCSVFile(path string, occs []nco.Occupation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, occs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV loads a previously exported dataset.
func ReadCSV(r io.Reader) ([]nco.Occupation, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	return occupationsFromRows(rows)
}

// ReadCSVFile loads the dataset at path.
func ReadCSVFile(path string) ([]nco.Occupation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadSkillsCSV loads nco_code,skill rows into a per-code skill list,
// preserving file order within each code.
func ReadSkillsCSV(r io.Reader) (map[string][]string, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	return skillsFromRows(rows)
}

// ReadTransitionsCSV loads from_nco,to_nco,reason rows. The reason column
// may be absent.
func ReadTransitionsCSV(r io.Reader) ([]Transition, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	return transitionsFromRows(rows)
}

// readRows reads a whole CSV table, tolerating ragged rows and a UTF-8
// BOM on the first cell.
func readRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	if len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
