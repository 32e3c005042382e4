package roster

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound        = errors.New("not found")
	ErrClassNotFound   = errors.Wrap(ErrNotFound, "class")
	ErrSubjectNotFound = errors.Wrap(ErrNotFound, "subject")
	ErrStudentNotFound = errors.Wrap(ErrNotFound, "student")
)

type Repository interface {
	CreateClass(ctx context.Context, c Class) (Class, error)
	GetClassByID(ctx context.Context, id string) (Class, error)
	QueryClasses(ctx context.Context, filter ClassFilter) ([]Class, error)

	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubjectByID(ctx context.Context, id string) (Subject, error)
	QuerySubjects(ctx context.Context) ([]Subject, error)

	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudentByID(ctx context.Context, id string) (Student, error)
	// StudentsByClass returns the class roster ordered by name then ID.
	StudentsByClass(ctx context.Context, classID string) ([]Student, error)

	CountRoster(ctx context.Context) (Counts, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	return svc.repo.CreateClass(ctx, Class{
		SchoolID:  nc.SchoolID,
		Name:      nc.Name,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter ClassFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, Code: ns.Code})
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	return svc.repo.CreateStudent(ctx, Student{
		Name:      ns.Name,
		ClassID:   ns.ClassID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// Roster returns the students enrolled in classID.
// An unknown class yields ErrClassNotFound; an empty class yields an empty roster.
func (svc *Service) Roster(ctx context.Context, classID string) ([]Student, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.StudentsByClass(ctx, classID)
}

func (svc *Service) Count(ctx context.Context) (Counts, error) {
	return svc.repo.CountRoster(ctx)
}

func (svc *Service) checkClass(ctx context.Context, classID string) error {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: "class does not exist"})
		}
		return err
	}
	return nil
}
