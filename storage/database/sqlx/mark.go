package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/mark"
)

const markColumns = `id, student_id, subject_id, class_id, exam_type, marks_obtained, total_marks, remarks, recorded_by, created_at, updated_at`

type markRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	SubjectID     string      `db:"subject_id"`
	ClassID       string      `db:"class_id"`
	ExamType      string      `db:"exam_type"`
	MarksObtained float64     `db:"marks_obtained"`
	TotalMarks    float64     `db:"total_marks"`
	Remarks       null.String `db:"remarks"`
	RecordedBy    null.String `db:"recorded_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toMarkRow(m mark.Mark) markRow {
	return markRow{
		ID:            m.ID,
		StudentID:     m.StudentID,
		SubjectID:     m.SubjectID,
		ClassID:       m.ClassID,
		ExamType:      string(m.ExamType),
		MarksObtained: m.MarksObtained,
		TotalMarks:    m.TotalMarks,
		Remarks:       null.NewString(m.Remarks, m.Remarks != ""),
		RecordedBy:    null.NewString(m.RecordedBy, m.RecordedBy != ""),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func (r markRow) toMark() mark.Mark {
	return mark.Mark{
		ID:            r.ID,
		StudentID:     r.StudentID,
		SubjectID:     r.SubjectID,
		ClassID:       r.ClassID,
		ExamType:      mark.ExamType(r.ExamType),
		MarksObtained: r.MarksObtained,
		TotalMarks:    r.TotalMarks,
		Remarks:       r.Remarks.String,
		RecordedBy:    r.RecordedBy.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type markRepository struct {
	db *sqlx.DB
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(db *sqlx.DB) mark.Repository {
	return &markRepository{db: db}
}

// UpsertMark relies on the mark_natural_key constraint; the row keeps its ID and created_at on conflict.
func (repo *markRepository) UpsertMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	m.ID = uuid.NewString()
	q := `INSERT INTO mark (` + markColumns + `) VALUES
		(:id, :student_id, :subject_id, :class_id, :exam_type, :marks_obtained, :total_marks, :remarks, :recorded_by, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT mark_natural_key DO UPDATE SET
			marks_obtained = EXCLUDED.marks_obtained,
			total_marks = EXCLUDED.total_marks,
			remarks = EXCLUDED.remarks,
			recorded_by = EXCLUDED.recorded_by,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + markColumns

	rows, err := repo.db.NamedQueryContext(ctx, q, toMarkRow(m))
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "upserting mark")
	}
	defer func() { _ = rows.Close() }()

	var saved markRow
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return mark.Mark{}, errors.Wrap(err, "upserting mark")
		}
		return mark.Mark{}, errors.New("upserting mark: no row returned")
	}
	if err = rows.StructScan(&saved); err != nil {
		return mark.Mark{}, errors.Wrap(err, "scanning mark")
	}
	return saved.toMark(), nil
}

func (repo *markRepository) selectMarks(ctx context.Context, where string, args ...interface{}) ([]mark.Mark, error) {
	var rows []markRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+markColumns+` FROM mark WHERE `+where, args...); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	marks := make([]mark.Mark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, r.toMark())
	}
	return marks, nil
}

func (repo *markRepository) QueryMarks(ctx context.Context, filter mark.QueryFilter) ([]mark.Mark, error) {
	for _, id := range []string{filter.ClassID, filter.SubjectID} {
		if _, err := uuid.Parse(id); err != nil {
			return []mark.Mark{}, nil
		}
	}
	return repo.selectMarks(ctx,
		`class_id = $1 AND subject_id = $2 AND exam_type = $3 ORDER BY student_id`,
		filter.ClassID, filter.SubjectID, string(filter.ExamType))
}

func (repo *markRepository) MarksByStudent(ctx context.Context, studentID string) ([]mark.Mark, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []mark.Mark{}, nil
	}
	return repo.selectMarks(ctx, `student_id = $1 ORDER BY created_at, id`, studentID)
}

func (repo *markRepository) CountMarksByExamType(ctx context.Context) (map[mark.ExamType]int, error) {
	var rows []struct {
		ExamType string `db:"exam_type"`
		N        int    `db:"n"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT exam_type, COUNT(*) AS n FROM mark GROUP BY exam_type`); err != nil {
		return nil, errors.Wrap(err, "counting marks")
	}
	counts := make(map[mark.ExamType]int, len(rows))
	for _, r := range rows {
		counts[mark.ExamType(r.ExamType)] = r.N
	}
	return counts, nil
}
