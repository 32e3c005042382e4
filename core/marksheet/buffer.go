package marksheet

import (
	"strconv"

	"github.com/pkg/errors"
)

type Field string

const (
	FieldObtained Field = "obtained"
	FieldRemarks  Field = "remarks"
)

// EditRow holds the in-progress input for one student.
// Obtained is free text and is only parsed on submit.
type EditRow struct {
	Obtained string
	Remarks  string
}

// EditBuffer maps every roster student to exactly one EditRow.
type EditBuffer struct {
	order []string
	rows  map[string]EditRow
}

func newEditBuffer(roster []Student) *EditBuffer {
	buf := &EditBuffer{
		order: make([]string, 0, len(roster)),
		rows:  make(map[string]EditRow, len(roster)),
	}
	for _, std := range roster {
		if _, dup := buf.rows[std.ID]; dup {
			continue
		}
		buf.order = append(buf.order, std.ID)
		buf.rows[std.ID] = EditRow{}
	}
	return buf
}

func (b *EditBuffer) Len() int {
	return len(b.order)
}

// StudentIDs returns the row keys in roster order.
func (b *EditBuffer) StudentIDs() []string {
	return append([]string(nil), b.order...)
}

func (b *EditBuffer) Row(studentID string) (EditRow, bool) {
	row, ok := b.rows[studentID]
	return row, ok
}

// SetField replaces one field of one row.
func (b *EditBuffer) SetField(studentID string, field Field, value string) error {
	row, ok := b.rows[studentID]
	if !ok {
		return errors.Wrap(ErrUnknownStudent, studentID)
	}
	switch field {
	case FieldObtained:
		row.Obtained = value
	case FieldRemarks:
		row.Remarks = value
	default:
		return errors.Wrap(ErrUnknownField, string(field))
	}
	b.rows[studentID] = row
	return nil
}

func (b *EditBuffer) clone() *EditBuffer {
	cp := &EditBuffer{
		order: append([]string(nil), b.order...),
		rows:  make(map[string]EditRow, len(b.rows)),
	}
	for id, row := range b.rows {
		cp.rows[id] = row
	}
	return cp
}

// Reconcile builds one row per roster student and fills it from the ledger.
// Ledger records for students outside the roster are ignored. The returned
// total is the last positive TotalMarks in the ledger, else defaultTotal.
func Reconcile(roster []Student, ledger []MarkRecord, defaultTotal float64) (*EditBuffer, float64) {
	buf := newEditBuffer(roster)
	total := defaultTotal
	for _, rec := range ledger {
		if _, ok := buf.rows[rec.StudentID]; !ok {
			continue
		}
		buf.rows[rec.StudentID] = EditRow{
			Obtained: formatMarks(rec.MarksObtained),
			Remarks:  rec.Remarks,
		}
		if rec.TotalMarks > 0 {
			total = rec.TotalMarks
		}
	}
	return buf, total
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
