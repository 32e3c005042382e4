package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound   = errors.New("school not found")
	ErrCodeExists = errors.New("a school with this code already exists")
)

type Repository interface {
	CheckCodeUniqueness(ctx context.Context, code string, excludedSchools ...School) error
	CreateSchool(ctx context.Context, s School) (School, error)
	QuerySchools(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]School, error)
	GetSchoolByID(ctx context.Context, id string) (School, error)
	UpdateSchool(ctx context.Context, s School) (School, error)
	DeleteSchoolsByID(ctx context.Context, ids ...string) error
	// CountSchools returns the total and active number of schools.
	CountSchools(ctx context.Context) (total int, active int, err error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, code string, exclSchools ...School) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, exclSchools...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking school uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSchool(ctx, School{
		Name:      ns.Name,
		Code:      ns.Code,
		Address:   ns.Address,
		Email:     ns.Email,
		Phone:     ns.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	return svc.repo.QuerySchools(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig School, us UpdateSchool) (School, error) {
	s := orig
	s.Name = us.Name
	s.Code = us.Code
	s.Address = us.Address
	s.Email = us.Email
	s.Phone = us.Phone
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchool(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSchoolsByID(ctx, ids...)
}

func (svc *Service) Count(ctx context.Context) (total int, active int, err error) {
	return svc.repo.CountSchools(ctx)
}
