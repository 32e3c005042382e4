package tests

import (
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/dashboard"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/tests"
)

func Test_dashboardApi(t *testing.T) {
	e := setup(t)

	admin := testutil.CreateUser(t, e.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, e.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner, user.RoleTeacher}, true)
	teacher := testutil.CreateUser(t, e.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, e.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	s := testutil.CreateSchool(t, e.schoolRepo, "Lycee Wima", "WIMA", true)
	testutil.CreateSchool(t, e.schoolRepo, "Old School", "OLD", false)
	c := testutil.CreateClass(t, e.rosterRepo, s.ID, "6A")
	math := testutil.CreateSubject(t, e.rosterRepo, "Mathematics", "MATH")
	amani := testutil.CreateStudent(t, e.rosterRepo, c.ID, "Amani")
	testutil.CreateStudent(t, e.rosterRepo, c.ID, "Zoe")
	testutil.RecordMark(t, e.markRepo, amani, math.ID, mark.ExamMidterm, 10, 20)
	testutil.RecordMark(t, e.markRepo, amani, math.ID, mark.ExamFinal, 15, 20)

	want := dashboard.Overview{
		Schools:       2,
		ActiveSchools: 1,
		Classes:       1,
		Subjects:      1,
		Students:      2,
		Teachers:      1,
		Admins:        2,
		Marks:         2,
		MarksByExam: map[mark.ExamType]int{
			mark.ExamQuiz:       0,
			mark.ExamMidterm:    1,
			mark.ExamFinal:      1,
			mark.ExamAssignment: 0,
			mark.ExamProject:    0,
		},
	}

	e.run(t, []httpTest{
		{
			name: "Admin required", method: http.MethodGet, path: "/v1/dashboard", token: e.getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "overview", method: http.MethodGet, path: "/v1/dashboard", token: e.getToken(t, admin), wantData: marchallObj(t, want)},
	})
}
