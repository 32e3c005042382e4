package mark_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/roster"
	dummydb "github.com/trezcool/alama/storage/database/dummy"
	testutil "github.com/trezcool/alama/tests"
)

type fixture struct {
	svc      *mark.Service
	repo     mark.Repository
	validate *validator.Validate
	class    roster.Class
	other    roster.Class
	subject  roster.Subject
	amani    roster.Student
	baraka   roster.Student
}

func setup(t *testing.T) fixture {
	db := dummydb.Open()
	rosterRepo := dummydb.NewRosterRepository(db)
	markRepo := dummydb.NewMarkRepository(db)

	f := fixture{
		svc:      mark.NewService(markRepo, rosterRepo),
		repo:     markRepo,
		validate: testutil.NewValidator(),
		class:    testutil.CreateClass(t, rosterRepo, "sch", "Form 1"),
		other:    testutil.CreateClass(t, rosterRepo, "sch", "Form 2"),
		subject:  testutil.CreateSubject(t, rosterRepo, "Mathematics", "MATH"),
	}
	f.amani = testutil.CreateStudent(t, rosterRepo, f.class.ID, "Amani")
	f.baraka = testutil.CreateStudent(t, rosterRepo, f.other.ID, "Baraka")
	return f
}

func ptr(f float64) *float64 { return &f }

func TestNewMark_Validate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	valid := func() mark.NewMark {
		return mark.NewMark{
			StudentID:     f.amani.ID,
			SubjectID:     f.subject.ID,
			ClassID:       f.class.ID,
			ExamType:      " Midterm ",
			MarksObtained: ptr(30),
			TotalMarks:    40,
		}
	}

	tests := []struct {
		name       string
		mutate     func(nm *mark.NewMark)
		wantFields []string
	}{
		{name: "valid", mutate: func(nm *mark.NewMark) {}},
		{name: "missing obtained", mutate: func(nm *mark.NewMark) { nm.MarksObtained = nil }, wantFields: []string{"marks_obtained"}},
		{name: "negative obtained", mutate: func(nm *mark.NewMark) { nm.MarksObtained = ptr(-1) }, wantFields: []string{"marks_obtained"}},
		{name: "obtained above total", mutate: func(nm *mark.NewMark) { nm.MarksObtained = ptr(41) }, wantFields: []string{"marks_obtained"}},
		{name: "two decimals", mutate: func(nm *mark.NewMark) { nm.MarksObtained = ptr(18.55); nm.TotalMarks = 20.25 }},
		{name: "three decimals", mutate: func(nm *mark.NewMark) { nm.MarksObtained = ptr(18.555); nm.TotalMarks = 40.125 }, wantFields: []string{"marks_obtained", "total_marks"}},
		{name: "zero total", mutate: func(nm *mark.NewMark) { nm.TotalMarks = 0 }, wantFields: []string{"total_marks"}},
		{name: "bad exam type", mutate: func(nm *mark.NewMark) { nm.ExamType = "exam" }, wantFields: []string{"exam_type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nm := valid()
			tt.mutate(&nm)
			err := nm.Validate(ctx, f.validate, f.svc)
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, mark.ExamMidterm, nm.ExamType)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	t.Run("student not in class", func(t *testing.T) {
		nm := valid()
		nm.StudentID = f.baraka.ID
		err := nm.Validate(ctx, f.validate, f.svc)
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "class_id", verr.Fields[0].Field)
	})

	t.Run("unknown references", func(t *testing.T) {
		nm := valid()
		nm.StudentID = "nope"
		nm.SubjectID = "nope"
		err := nm.Validate(ctx, f.validate, f.svc)
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Fields, 2)
		assert.Equal(t, "student_id", verr.Fields[0].Field)
		assert.Equal(t, "subject_id", verr.Fields[1].Field)
	})
}

func TestService_UpsertIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	nm := mark.NewMark{
		StudentID:     f.amani.ID,
		SubjectID:     f.subject.ID,
		ClassID:       f.class.ID,
		ExamType:      mark.ExamFinal,
		MarksObtained: ptr(20),
		TotalMarks:    50,
		Remarks:       "first",
	}
	first, err := f.svc.Upsert(ctx, nm, "teacher-1")
	require.NoError(t, err)

	nm.MarksObtained = ptr(45)
	nm.Remarks = "regraded"
	second, err := f.svc.Upsert(ctx, nm, "teacher-2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 45.0, second.MarksObtained)
	assert.Equal(t, "teacher-2", second.RecordedBy)

	ledger, err := f.svc.List(ctx, mark.QueryFilter{ClassID: f.class.ID, SubjectID: f.subject.ID, ExamType: mark.ExamFinal})
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "regraded", ledger[0].Remarks)
}

func TestService_List(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, mark.QueryFilter{ClassID: f.class.ID})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, mark.ErrIncompleteQuery, verr.Err)
	assert.Len(t, verr.Fields, 2)

	// a sparse ledger is fine
	ledger, err := f.svc.List(ctx, mark.QueryFilter{ClassID: f.class.ID, SubjectID: f.subject.ID, ExamType: mark.ExamQuiz})
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestService_OwnMarks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	empty, err := f.svc.OwnMarks(ctx, f.amani.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Marks)
	assert.Equal(t, mark.Stats{}, empty.Stats)

	testutil.RecordMark(t, f.repo, f.amani, f.subject.ID, mark.ExamQuiz, 9, 10)
	testutil.RecordMark(t, f.repo, f.amani, f.subject.ID, mark.ExamMidterm, 12, 40)
	testutil.RecordMark(t, f.repo, f.baraka, f.subject.ID, mark.ExamMidterm, 40, 40)

	own, err := f.svc.OwnMarks(ctx, f.amani.ID)
	require.NoError(t, err)
	require.Len(t, own.Marks, 2)
	grades := map[mark.ExamType]string{}
	for _, r := range own.Marks {
		grades[r.ExamType] = r.Grade
	}
	assert.Equal(t, map[mark.ExamType]string{mark.ExamQuiz: "A+", mark.ExamMidterm: "F"}, grades)
	assert.Equal(t, mark.Stats{Count: 2, Average: 60, Max: 90, Min: 30}, own.Stats)
}
