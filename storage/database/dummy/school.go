package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) CheckCodeUniqueness(_ context.Context, code string, excludedSchools ...school.School) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excl := make([]string, 0, len(excludedSchools))
	for _, s := range excludedSchools {
		excl = append(excl, s.ID)
	}
	sort.Strings(excl)
	for _, s := range repo.db.table {
		if s.Code == code && !isExcluded(s.ID, excl) {
			return school.ErrCodeExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.NewString()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var schools []school.School
	for _, s := range repo.db.table {
		if filter.Match(*s) {
			schools = append(schools, *s)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(schools, sortBy(ordering, map[string]func(i, j int) int{
		"name":       func(i, j int) int { return cmpString(schools[i].Name, schools[j].Name) },
		"code":       func(i, j int) int { return cmpString(schools[i].Code, schools[j].Code) },
		"created_at": func(i, j int) int { return cmpTime(schools[i].CreatedAt, schools[j].CreatedAt) },
	}, func(i int) string { return schools[i].ID }))
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(_ context.Context, id string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *schoolRepository) CountSchools(context.Context) (total int, active int, err error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		total++
		if s.IsActive {
			active++
		}
	}
	return total, active, nil
}
