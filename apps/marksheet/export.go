package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/alama/core/marksheet"
)

var exportHeader = []interface{}{"Student ID", "Student", "Obtained", "Total", "Percentage", "Result", "Remarks"}

// exportSheet writes sh to a new workbook at path, one row per student.
// Obtained and Percentage are numeric cells when they parse.
func exportSheet(path string, sh marksheet.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, r := range sh.Rows {
		row := []interface{}{r.Student.ID, r.Student.Name, r.Edit.Obtained, sh.TotalMarks, nil, nil, r.Edit.Remarks}
		if v, err := strconv.ParseFloat(r.Edit.Obtained, 64); err == nil {
			row[2] = v
		}
		if r.HasPercent {
			row[4] = r.Percentage
			row[5] = "fail"
			if r.Pass {
				row[5] = "pass"
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	return errors.Wrap(f.SaveAs(path), "saving workbook")
}
