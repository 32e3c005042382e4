// Package dashboard aggregates the counts shown on the admin overview.
package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

type Overview struct {
	Schools       int                   `json:"schools"`
	ActiveSchools int                   `json:"active_schools"`
	Classes       int                   `json:"classes"`
	Subjects      int                   `json:"subjects"`
	Students      int                   `json:"students"`
	Teachers      int                   `json:"teachers"`
	Admins        int                   `json:"admins"`
	Marks         int                   `json:"marks"`
	MarksByExam   map[mark.ExamType]int `json:"marks_by_exam"`
}

type Service struct {
	users   *user.Service
	schools *school.Service
	roster  *roster.Service
	marks   *mark.Service
}

func NewService(users *user.Service, schools *school.Service, rstr *roster.Service, marks *mark.Service) *Service {
	return &Service{users: users, schools: schools, roster: rstr, marks: marks}
}

// Overview queries every source concurrently.
func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	var (
		ov      Overview
		byRole  map[string]int
		counts  roster.Counts
		byExam  map[mark.ExamType]int
		g, gctx = errgroup.WithContext(ctx)
	)
	g.Go(func() (err error) {
		ov.Schools, ov.ActiveSchools, err = svc.schools.Count(gctx)
		return errors.Wrap(err, "counting schools")
	})
	g.Go(func() (err error) {
		byRole, err = svc.users.CountByRole(gctx)
		return errors.Wrap(err, "counting users")
	})
	g.Go(func() (err error) {
		counts, err = svc.roster.Count(gctx)
		return errors.Wrap(err, "counting roster")
	})
	g.Go(func() (err error) {
		byExam, err = svc.marks.CountByExamType(gctx)
		return errors.Wrap(err, "counting marks")
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	for role, n := range byRole {
		switch {
		case role == user.RoleTeacher:
			ov.Teachers += n
		case user.RolePriority(role) >= user.RolePriority(user.RoleAdmin):
			ov.Admins += n
		}
	}
	ov.Classes, ov.Subjects, ov.Students = counts.Classes, counts.Subjects, counts.Students
	ov.MarksByExam = make(map[mark.ExamType]int, len(mark.ExamTypes))
	for _, et := range mark.ExamTypes {
		ov.MarksByExam[et] = byExam[et]
		ov.Marks += byExam[et]
	}
	return ov, nil
}
