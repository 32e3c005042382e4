package main

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/marksheet"
	"github.com/trezcool/alama/core/roster"
)

type stubBackend struct {
	mu      sync.Mutex
	roster  []roster.Student
	ledger  []mark.Mark
	saved   []mark.NewMark
	own     mark.OwnMarks
	failFor string
}

func (sb *stubBackend) ListStudentsByClass(context.Context, string) ([]roster.Student, error) {
	return sb.roster, nil
}

func (sb *stubBackend) ListMarks(context.Context, string, string, mark.ExamType) ([]mark.Mark, error) {
	return sb.ledger, nil
}

func (sb *stubBackend) UpsertMark(_ context.Context, req mark.NewMark) (mark.Mark, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if req.StudentID == sb.failFor {
		return mark.Mark{}, &marksheet.TransportError{Op: "saving mark", Status: 400, Err: errors.New("marks_obtained: marks obtained cannot exceed total marks")}
	}
	sb.saved = append(sb.saved, req)
	return mark.Mark{
		ID:            "m-" + req.StudentID,
		StudentID:     req.StudentID,
		SubjectID:     req.SubjectID,
		ClassID:       req.ClassID,
		ExamType:      req.ExamType,
		MarksObtained: *req.MarksObtained,
		TotalMarks:    req.TotalMarks,
		Remarks:       req.Remarks,
	}, nil
}

func (sb *stubBackend) ListOwnMarks(context.Context) (mark.OwnMarks, error) {
	return sb.own, nil
}

type stubAuth struct{ user, pwd string }

func (sa *stubAuth) Login(_ context.Context, username, password string) (string, error) {
	sa.user, sa.pwd = username, password
	return "tok3n", nil
}

func setup() (*commandLine, *stubBackend, *bytes.Buffer) {
	sb := &stubBackend{
		roster: []roster.Student{
			{ID: "s1", Name: "Amani", ClassID: "c1"},
			{ID: "s2", Name: "Bisimwa", ClassID: "c1"},
			{ID: "s3", Name: "Zoe", ClassID: "c1"},
		},
		ledger: []mark.Mark{
			{ID: "m-s2", StudentID: "s2", SubjectID: "math", ClassID: "c1", ExamType: mark.ExamFinal, MarksObtained: 12, TotalMarks: 20, Remarks: "ok"},
		},
	}
	out := new(bytes.Buffer)
	return &commandLine{backend: sb, auth: &stubAuth{}, out: out, workers: 2, defaultTotal: 100}, sb, out
}

var selArgs = []string{"-class", "c1", "-subject", "math", "-exam", "FINAL"}

func Test_commandLine_usage(t *testing.T) {
	cli, _, _ := setup()
	for _, args := range [][]string{
		{"marksheet"},
		{"marksheet", "lol"},
		{"marksheet", "login"},
		{"marksheet", "show"},
		{"marksheet", "enter", "-class", "c1"},
		{"marksheet", "enter", "-class", "c1", "-subject", "math", "-exam", "final"},
		{"marksheet", "export", "-class", "c1", "-subject", "math", "-exam", "final"},
	} {
		assert.Equal(t, errHelp, cli.run(args), "%v", args)
	}
}

func Test_commandLine_login(t *testing.T) {
	cli, _, out := setup()
	orig := readPasswordFunc
	defer func() { readPasswordFunc = orig }()
	readPasswordFunc = func(int) ([]byte, error) { return []byte("Secret#1"), nil }

	require.NoError(t, cli.run([]string{"marksheet", "login", "-username", "teacher"}))
	assert.Contains(t, out.String(), "tok3n")
	assert.Equal(t, &stubAuth{user: "teacher", pwd: "Secret#1"}, cli.auth)
}

func Test_commandLine_show(t *testing.T) {
	cli, _, out := setup()

	require.NoError(t, cli.run(append([]string{"marksheet", "show"}, selArgs...)))
	s := out.String()
	assert.Contains(t, s, "out of 20")
	assert.Regexp(t, `s2\s+Bisimwa\s+12\s+60\.0%\s+pass\s+ok`, s)
	assert.Regexp(t, `s1\s+Amani\s+-\s+-\s+-`, s)
}

func Test_commandLine_enter(t *testing.T) {
	t.Run("invalid entry", func(t *testing.T) {
		cli, _, _ := setup()
		err := cli.run(append(append([]string{"marksheet", "enter"}, selArgs...), "s1"))
		assert.EqualError(t, err, `invalid entry "s1": want STUDENT_ID=OBTAINED[:REMARKS]`)
	})

	t.Run("unknown student", func(t *testing.T) {
		cli, _, _ := setup()
		err := cli.run(append(append([]string{"marksheet", "enter"}, selArgs...), "lol=3"))
		assert.Equal(t, marksheet.ErrUnknownStudent, errors.Cause(err))
	})

	t.Run("partial failure", func(t *testing.T) {
		cli, sb, out := setup()
		sb.failFor = "s3"
		args := append(append([]string{"marksheet", "enter"}, selArgs...), "-total", "25", "s1=20:well done", "s3=30")
		err := cli.run(args)

		var berr *marksheet.BulkError
		require.True(t, errors.As(err, &berr), "err = %v", err)
		assert.Len(t, berr.Failed, 1)
		assert.Contains(t, out.String(), "2 saved, 0 skipped, 1 failed")
		assert.Contains(t, out.String(), "s3: ")

		// s2 keeps its recorded value and is saved again with the new total
		require.Len(t, sb.saved, 2)
		byID := map[string]mark.NewMark{}
		for _, nm := range sb.saved {
			byID[nm.StudentID] = nm
		}
		assert.Equal(t, 20.0, *byID["s1"].MarksObtained)
		assert.Equal(t, "well done", byID["s1"].Remarks)
		assert.Equal(t, 25.0, byID["s1"].TotalMarks)
		assert.Equal(t, 12.0, *byID["s2"].MarksObtained)
	})
}

func Test_commandLine_export(t *testing.T) {
	cli, _, _ := setup()
	path := filepath.Join(t.TempDir(), "final.xlsx")

	require.NoError(t, cli.run(append(append([]string{"marksheet", "export"}, selArgs...), "-out", path)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Student ID", rows[0][0])
	assert.Equal(t, []string{"s2", "Bisimwa", "12", "20", "60", "pass", "ok"}, rows[2])
}

func Test_commandLine_results(t *testing.T) {
	cli, sb, out := setup()
	sb.own = mark.OwnMarks{Marks: []mark.Result{
		mark.NewResult(mark.Mark{SubjectID: "math", ExamType: mark.ExamFinal, MarksObtained: 18, TotalMarks: 20}),
		mark.NewResult(mark.Mark{SubjectID: "phy", ExamType: mark.ExamQuiz, MarksObtained: 3, TotalMarks: 10}),
	}}

	require.NoError(t, cli.run([]string{"marksheet", "results"}))
	s := out.String()
	assert.Regexp(t, `math\s+final\s+18/20\s+90\.0%\s+A\+\s+top`, s)
	assert.Regexp(t, `phy\s+quiz\s+3/10\s+30\.0%\s+F\s+lowest`, s)
	assert.Contains(t, s, "2 result(s), average 60.0%, best 90.0%, worst 30.0%")
}
