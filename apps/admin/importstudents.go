package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/roster"
)

// importStudents enrolls in classID every name found in column A of the first
// sheet of r. The first row is a header. Blank names are skipped.
// It returns how many students were created before any error.
func (cli *commandLine) importStudents(ctx context.Context, classID string, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return 0, errors.New("workbook has no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, errors.Wrapf(err, "reading sheet %q", sheet)
	}

	var created int
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := core.CleanString(row[0])
		if name == "" {
			continue
		}
		ns := roster.NewStudent{Name: name, ClassID: classID}
		if err := ns.Validate(ctx, cli.validate, cli.rosterSvc); err != nil {
			return created, errors.Wrapf(err, "row %d", i+1)
		}
		if _, err := cli.rosterSvc.CreateStudent(ctx, ns); err != nil {
			return created, errors.Wrapf(err, "row %d", i+1)
		}
		created++
	}
	return created, nil
}
