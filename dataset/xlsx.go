package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/skillweave/skillweave/nco"
)

// occupationSheet is the sheet name used by the XLSX export.
const occupationSheet = "Occupations"

// WriteXLSX writes the dataset as a single-sheet workbook with a bold
// header row.
func WriteXLSX(path string, occs []nco.Occupation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), occupationSheet); err != nil {
		return err
	}

	for i, col := range occupationColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(occupationSheet, cell, col); err != nil {
			return err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(occupationSheet, "A1", "C1", style); err != nil {
		return err
	}

	for r, o := range occs {
		for c, v := range []string{o.Code, o.Title, o.Description} {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(occupationSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// ReadSkillsXLSX loads nco_code,skill rows from the first sheet of a
// workbook.
func ReadSkillsXLSX(path string) (map[string][]string, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}
	return skillsFromRows(rows)
}

// ReadTransitionsXLSX loads from_nco,to_nco,reason rows from the first
// sheet of a workbook.
func ReadTransitionsXLSX(path string) ([]Transition, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}
	return transitionsFromRows(rows)
}

// sheetRows returns the raw rows of the first sheet.
func sheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
