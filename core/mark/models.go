package mark

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type ExamType string

// Exam types
const (
	ExamQuiz       ExamType = "quiz"
	ExamMidterm    ExamType = "midterm"
	ExamFinal      ExamType = "final"
	ExamAssignment ExamType = "assignment"
	ExamProject    ExamType = "project"
)

var ExamTypes = []ExamType{ExamQuiz, ExamMidterm, ExamFinal, ExamAssignment, ExamProject}

func (et ExamType) IsValid() bool {
	for _, t := range ExamTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Mark is a recorded exam result.
// There is at most one Mark per (StudentID, SubjectID, ClassID, ExamType).
type Mark struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	SubjectID     string    `json:"subject_id"`
	ClassID       string    `json:"class_id"`
	ExamType      ExamType  `json:"exam_type"`
	MarksObtained float64   `json:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks"`
	Remarks       string    `json:"remarks"`
	RecordedBy    string    `json:"recorded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// Key is the natural upsert key of m.
func (m Mark) Key() Key {
	return Key{StudentID: m.StudentID, SubjectID: m.SubjectID, ClassID: m.ClassID, ExamType: m.ExamType}
}

type Key struct {
	StudentID string
	SubjectID string
	ClassID   string
	ExamType  ExamType
}

// NewMark contains information needed to record a Mark.
type NewMark struct {
	StudentID     string   `json:"student_id" validate:"required"`
	SubjectID     string   `json:"subject_id" validate:"required"`
	ClassID       string   `json:"class_id" validate:"required"`
	ExamType      ExamType `json:"exam_type" validate:"required,examtype"`
	MarksObtained *float64 `json:"marks_obtained" validate:"required,gte=0,dec2"`
	TotalMarks    float64  `json:"total_marks" validate:"gt=0,dec2"`
	Remarks       string   `json:"remarks" validate:"max=500"`
}

func (nm *NewMark) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nm.StudentID = core.CleanString(nm.StudentID)
	nm.SubjectID = core.CleanString(nm.SubjectID)
	nm.ClassID = core.CleanString(nm.ClassID)
	nm.ExamType = ExamType(core.CleanString(string(nm.ExamType), true /* lower */))
	nm.Remarks = core.CleanString(nm.Remarks)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.checkEnrollment(ctx, *nm)
}

// QueryFilter selects one ledger. All fields are required.
type QueryFilter struct {
	ClassID   string   `query:"class_id"`
	SubjectID string   `query:"subject_id"`
	ExamType  ExamType `query:"exam_type"`
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.ExamType = ExamType(core.CleanString(string(qf.ExamType), true /* lower */))
}

func (qf *QueryFilter) Match(m Mark) bool {
	return m.ClassID == qf.ClassID && m.SubjectID == qf.SubjectID && m.ExamType == qf.ExamType
}

// Result is a Mark with its derived percentage and letter grade.
type Result struct {
	Mark
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

// OwnMarks is what a student sees of their own results.
type OwnMarks struct {
	Marks []Result `json:"marks"`
	Stats Stats    `json:"stats"`
}
