package mark

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/roster"
)

var (
	// errors
	ErrNotFound        = errors.New("mark not found")
	ErrIncompleteQuery = errors.New("class_id, subject_id and exam_type are required")
)

type Repository interface {
	// UpsertMark creates m, or overwrites the mark sharing its Key.
	UpsertMark(ctx context.Context, m Mark) (Mark, error)
	QueryMarks(ctx context.Context, filter QueryFilter) ([]Mark, error)
	MarksByStudent(ctx context.Context, studentID string) ([]Mark, error)
	CountMarksByExamType(ctx context.Context) (map[ExamType]int, error)
}

type Service struct {
	repo   Repository
	roster roster.Repository
}

func NewService(repo Repository, rosterRepo roster.Repository) *Service {
	return &Service{repo: repo, roster: rosterRepo}
}

// List returns the ledger selected by filter. An empty ledger is not an error.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Mark, error) {
	filter.Clean()
	var flds []core.FieldError
	if filter.ClassID == "" {
		flds = append(flds, core.FieldError{Field: "class_id", Error: "this field is required"})
	}
	if filter.SubjectID == "" {
		flds = append(flds, core.FieldError{Field: "subject_id", Error: "this field is required"})
	}
	if !filter.ExamType.IsValid() {
		flds = append(flds, core.FieldError{Field: "exam_type", Error: examTypeText})
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(ErrIncompleteQuery, flds...)
	}
	return svc.repo.QueryMarks(ctx, filter)
}

// Upsert records nm on behalf of recordedBy. nm must have been validated.
func (svc *Service) Upsert(ctx context.Context, nm NewMark, recordedBy string) (Mark, error) {
	now := time.Now().UTC()
	return svc.repo.UpsertMark(ctx, Mark{
		StudentID:     nm.StudentID,
		SubjectID:     nm.SubjectID,
		ClassID:       nm.ClassID,
		ExamType:      nm.ExamType,
		MarksObtained: *nm.MarksObtained,
		TotalMarks:    nm.TotalMarks,
		Remarks:       nm.Remarks,
		RecordedBy:    recordedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// OwnMarks returns the results of studentID with their summary.
func (svc *Service) OwnMarks(ctx context.Context, studentID string) (OwnMarks, error) {
	marks, err := svc.repo.MarksByStudent(ctx, studentID)
	if err != nil {
		return OwnMarks{}, errors.Wrap(err, "listing student marks")
	}
	results := make([]Result, 0, len(marks))
	for _, m := range marks {
		results = append(results, NewResult(m))
	}
	return OwnMarks{Marks: results, Stats: Summarize(marks)}, nil
}

func (svc *Service) CountByExamType(ctx context.Context) (map[ExamType]int, error) {
	return svc.repo.CountMarksByExamType(ctx)
}

// checkEnrollment makes sure nm references an existing subject and a student of its class.
func (svc *Service) checkEnrollment(ctx context.Context, nm NewMark) error {
	var flds []core.FieldError
	std, err := svc.roster.GetStudentByID(ctx, nm.StudentID)
	switch {
	case errors.Cause(err) == roster.ErrNotFound:
		flds = append(flds, core.FieldError{Field: "student_id", Error: "student does not exist"})
	case err != nil:
		return err
	case std.ClassID != nm.ClassID:
		flds = append(flds, core.FieldError{Field: "class_id", Error: "student is not enrolled in this class"})
	}
	if _, err = svc.roster.GetSubjectByID(ctx, nm.SubjectID); err != nil {
		if errors.Cause(err) != roster.ErrNotFound {
			return err
		}
		flds = append(flds, core.FieldError{Field: "subject_id", Error: "subject does not exist"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid mark references"), flds...)
	}
	return nil
}
