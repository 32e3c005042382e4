package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core/roster"
)

type rosterRepository struct {
	db *rosterTables
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db.roster}
}

func (repo *rosterRepository) CreateClass(_ context.Context, c roster.Class) (roster.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.NewString()
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *rosterRepository) GetClassByID(_ context.Context, id string) (roster.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return roster.Class{}, roster.ErrClassNotFound
}

func (repo *rosterRepository) QueryClasses(_ context.Context, filter roster.ClassFilter) ([]roster.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var classes []roster.Class
	for _, c := range repo.db.classes {
		if filter.Match(*c) {
			classes = append(classes, *c)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *rosterRepository) CreateSubject(_ context.Context, s roster.Subject) (roster.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.NewString()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) GetSubjectByID(_ context.Context, id string) (roster.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return roster.Subject{}, roster.ErrSubjectNotFound
}

func (repo *rosterRepository) QuerySubjects(context.Context) ([]roster.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]roster.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *rosterRepository) CreateStudent(_ context.Context, s roster.Student) (roster.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.NewString()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) GetStudentByID(_ context.Context, id string) (roster.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrStudentNotFound
}

func (repo *rosterRepository) StudentsByClass(_ context.Context, classID string) ([]roster.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]roster.Student, 0)
	for _, s := range repo.db.students {
		if s.ClassID == classID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *rosterRepository) CountRoster(context.Context) (roster.Counts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return roster.Counts{
		Classes:  len(repo.db.classes),
		Subjects: len(repo.db.subjects),
		Students: len(repo.db.students),
	}, nil
}
