package dashboard_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core/dashboard"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	testutil "github.com/trezcool/alama/tests"
)

type failingMarks struct {
	mark.Repository
}

func (failingMarks) CountMarksByExamType(context.Context) (map[mark.ExamType]int, error) {
	return nil, errors.New("boom")
}

func TestService_Overview(t *testing.T) {
	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	rosterRepo := dummydb.NewRosterRepository(db)
	markRepo := dummydb.NewMarkRepository(db)

	testutil.CreateUser(t, usrRepo, "Principal", "princip", "princip@test.cd", "", []string{user.RoleAdminPrincipal}, true)
	testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, usrRepo, "Teacher 2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher, user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Nobody", "nobody", "nobody@test.cd", "", nil, true)
	s := testutil.CreateSchool(t, schoolRepo, "Lycee Wima", "WIMA", true)
	c := testutil.CreateClass(t, rosterRepo, s.ID, "6A")
	subj := testutil.CreateSubject(t, rosterRepo, "Physics", "PHY")
	std := testutil.CreateStudent(t, rosterRepo, c.ID, "Amani")
	testutil.RecordMark(t, markRepo, std, subj.ID, mark.ExamQuiz, 7, 10)

	users := user.NewService(usrRepo)
	schools := school.NewService(schoolRepo)
	rstr := roster.NewService(rosterRepo)

	t.Run("counts", func(t *testing.T) {
		svc := dashboard.NewService(users, schools, rstr, mark.NewService(markRepo, rosterRepo))
		ov, err := svc.Overview(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, ov.Schools)
		assert.Equal(t, 1, ov.ActiveSchools)
		assert.Equal(t, 1, ov.Classes)
		assert.Equal(t, 1, ov.Subjects)
		assert.Equal(t, 1, ov.Students)
		assert.Equal(t, 2, ov.Teachers)
		assert.Equal(t, 1, ov.Admins)
		assert.Equal(t, 1, ov.Marks)
		assert.Equal(t, 1, ov.MarksByExam[mark.ExamQuiz])
		assert.Len(t, ov.MarksByExam, len(mark.ExamTypes))
	})

	t.Run("first error wins", func(t *testing.T) {
		svc := dashboard.NewService(users, schools, rstr, mark.NewService(failingMarks{markRepo}, rosterRepo))
		_, err := svc.Overview(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "counting marks")
	})
}
