package dummydb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	testutil "github.com/trezcool/alama/tests"
)

func userNames(users []user.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names
}

func TestUserRepository_QueryUsers(t *testing.T) {
	repo := dummydb.NewUserRepository(dummydb.Open())
	ctx := context.Background()
	now := time.Now()
	testutil.CreateUser(t, repo, "bob", "bob", "", "", []string{user.RoleTeacher}, true, now.Add(-2*time.Hour))
	testutil.CreateUser(t, repo, "Ann", "ann", "", "", []string{user.RoleAdmin, user.RoleTeacher}, true, now.Add(-time.Hour))
	testutil.CreateUser(t, repo, "Cid", "cid", "", "", []string{user.RoleStudent}, false, now)

	users, err := repo.QueryUsers(ctx, user.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cid", "Ann", "bob"}, userNames(users), "newest first by default")

	users, err = repo.QueryUsers(ctx, user.QueryFilter{}, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "bob", "Cid"}, userNames(users), "case-insensitive")

	active := true
	users, err = repo.QueryUsers(ctx, user.QueryFilter{IsActive: &active}, []core.DBOrdering{{Field: "unknown"}, {Field: "username"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "bob"}, userNames(users))

	counts, err := repo.CountUsersByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{user.RoleAdmin: 1, user.RoleTeacher: 1, user.RoleStudent: 1}, counts)
}

func TestUserRepository_Uniqueness(t *testing.T) {
	repo := dummydb.NewUserRepository(dummydb.Open())
	ctx := context.Background()
	joe := testutil.CreateUser(t, repo, "Joe", "joe", "joe@alama.test", "", nil, true)

	assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "joe", ""))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "", "joe@alama.test"))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "joe", "joe@alama.test", joe))

	_, err := repo.UpdateUser(ctx, user.User{ID: "missing"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestSchoolRepository(t *testing.T) {
	repo := dummydb.NewSchoolRepository(dummydb.Open())
	ctx := context.Background()
	a := testutil.CreateSchool(t, repo, "Lycee Wima", "WIMA", true)
	b := testutil.CreateSchool(t, repo, "Institut Bobokoli", "BOBO", false)

	assert.Equal(t, school.ErrCodeExists, repo.CheckCodeUniqueness(ctx, "WIMA"))
	assert.NoError(t, repo.CheckCodeUniqueness(ctx, "WIMA", a))

	schools, err := repo.QuerySchools(ctx, school.QueryFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, b.ID, schools[0].ID, "by name by default")

	total, active, err := repo.CountSchools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, active)

	require.NoError(t, repo.DeleteSchoolsByID(ctx, a.ID, "missing"))
	_, err = repo.GetSchoolByID(ctx, a.ID)
	assert.Equal(t, school.ErrNotFound, err)
}

func TestRosterRepository_StudentsByClass(t *testing.T) {
	repo := dummydb.NewRosterRepository(dummydb.Open())
	ctx := context.Background()
	c := testutil.CreateClass(t, repo, "sch", "Form 1")
	other := testutil.CreateClass(t, repo, "sch", "Form 2")
	testutil.CreateStudent(t, repo, c.ID, "Zoe")
	testutil.CreateStudent(t, repo, c.ID, "Amani")
	testutil.CreateStudent(t, repo, other.ID, "Baraka")

	students, err := repo.StudentsByClass(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Amani", students[0].Name)
	assert.Equal(t, "Zoe", students[1].Name)

	students, err = repo.StudentsByClass(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)

	_, err = repo.GetStudentByID(ctx, "missing")
	assert.Equal(t, roster.ErrNotFound, errors.Cause(err))

	counts, err := repo.CountRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, roster.Counts{Classes: 2, Subjects: 0, Students: 3}, counts)
}

func TestMarkRepository_Upsert(t *testing.T) {
	db := dummydb.Open()
	rosterRepo := dummydb.NewRosterRepository(db)
	repo := dummydb.NewMarkRepository(db)
	ctx := context.Background()
	c := testutil.CreateClass(t, rosterRepo, "sch", "Form 1")
	amani := testutil.CreateStudent(t, rosterRepo, c.ID, "Amani")

	first := testutil.RecordMark(t, repo, amani, "math", mark.ExamQuiz, 4, 10)
	second := testutil.RecordMark(t, repo, amani, "math", mark.ExamQuiz, 7, 10)
	assert.Equal(t, first.ID, second.ID, "same key updates in place")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	testutil.RecordMark(t, repo, amani, "math", mark.ExamFinal, 15, 20)

	marks, err := repo.QueryMarks(ctx, mark.QueryFilter{ClassID: c.ID, SubjectID: "math", ExamType: mark.ExamQuiz})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, 7.0, marks[0].MarksObtained)

	marks, err = repo.MarksByStudent(ctx, amani.ID)
	require.NoError(t, err)
	assert.Len(t, marks, 2)

	counts, err := repo.CountMarksByExamType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[mark.ExamType]int{mark.ExamQuiz: 1, mark.ExamFinal: 1}, counts)
}
