package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		obtained, total float64
		want            float64
		wantOK          bool
	}{
		{50, 100, 50, true},
		{33, 40, 82.5, true},
		{1, 3, 33.3, true},
		{2, 3, 66.7, true},
		{5, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := Percent(tt.obtained, tt.total)
		assert.Equal(t, tt.wantOK, ok)
		assert.Equal(t, tt.want, got, "Percent(%v, %v)", tt.obtained, tt.total)
	}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.9, "A"},
		{80, "A"},
		{75, "B+"},
		{65, "B"},
		{50, "C"},
		{49.9, "D"},
		{40, "D"},
		{39.9, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.pct), "LetterGrade(%v)", tt.pct)
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	st := Summarize([]Mark{
		{MarksObtained: 18, TotalMarks: 20},
		{MarksObtained: 10, TotalMarks: 40},
		{MarksObtained: 3, TotalMarks: 0},
	})
	assert.Equal(t, Stats{Count: 2, Average: 57.5, Max: 90, Min: 25}, st)
}

func TestNewResult(t *testing.T) {
	r := NewResult(Mark{MarksObtained: 33, TotalMarks: 40})
	assert.Equal(t, 82.5, r.Percentage)
	assert.Equal(t, "A", r.Grade)

	r = NewResult(Mark{MarksObtained: 3})
	assert.Zero(t, r.Percentage)
	assert.Empty(t, r.Grade)
}

func TestExamType_IsValid(t *testing.T) {
	for _, et := range ExamTypes {
		assert.True(t, et.IsValid(), et)
	}
	assert.False(t, ExamType("exam").IsValid())
	assert.False(t, ExamType("").IsValid())
}
