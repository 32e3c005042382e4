package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core/mark"
)

type markRepository struct {
	db *markTable
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(db *DB) mark.Repository {
	return &markRepository{db: db.mark}
}

func (repo *markRepository) UpsertMark(_ context.Context, m mark.Mark) (mark.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing, ok := repo.db.table[m.Key()]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		m.ID = uuid.NewString()
	}
	repo.db.table[m.Key()] = &m
	return m, nil
}

func (repo *markRepository) QueryMarks(_ context.Context, filter mark.QueryFilter) ([]mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	marks := make([]mark.Mark, 0)
	for _, m := range repo.db.table {
		if filter.Match(*m) {
			marks = append(marks, *m)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].StudentID < marks[j].StudentID })
	return marks, nil
}

func (repo *markRepository) MarksByStudent(_ context.Context, studentID string) ([]mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	marks := make([]mark.Mark, 0)
	for _, m := range repo.db.table {
		if m.StudentID == studentID {
			marks = append(marks, *m)
		}
	}
	sort.Slice(marks, func(i, j int) bool {
		if !marks[i].CreatedAt.Equal(marks[j].CreatedAt) {
			return marks[i].CreatedAt.Before(marks[j].CreatedAt)
		}
		return marks[i].ID < marks[j].ID
	})
	return marks, nil
}

func (repo *markRepository) CountMarksByExamType(context.Context) (map[mark.ExamType]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[mark.ExamType]int)
	for _, m := range repo.db.table {
		counts[m.ExamType]++
	}
	return counts, nil
}
