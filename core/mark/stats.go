package mark

import "math"

// PassMark is the lowest passing percentage.
const PassMark = 50.0

// Percent returns obtained/total as a percentage rounded to one decimal.
// ok is false when total is not positive.
func Percent(obtained, total float64) (pct float64, ok bool) {
	if total <= 0 || math.IsNaN(obtained) || math.IsInf(obtained, 0) {
		return 0, false
	}
	return Round1(obtained / total * 100), true
}

func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

type Stats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// Summarize computes Stats over the percentages of marks that have one.
// No marks gives zero Stats.
func Summarize(marks []Mark) Stats {
	var (
		st  Stats
		sum float64
	)
	for _, m := range marks {
		pct, ok := Percent(m.MarksObtained, m.TotalMarks)
		if !ok {
			continue
		}
		if st.Count == 0 || pct > st.Max {
			st.Max = pct
		}
		if st.Count == 0 || pct < st.Min {
			st.Min = pct
		}
		sum += pct
		st.Count++
	}
	if st.Count > 0 {
		st.Average = Round1(sum / float64(st.Count))
	}
	return st
}

var letterGrades = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{75, "B+"},
	{65, "B"},
	{PassMark, "C"},
	{40, "D"},
}

// LetterGrade maps a percentage to a letter grade.
func LetterGrade(pct float64) string {
	for _, lg := range letterGrades {
		if pct >= lg.min {
			return lg.grade
		}
	}
	return "F"
}

// NewResult derives the percentage and grade of m.
func NewResult(m Mark) Result {
	r := Result{Mark: m}
	if pct, ok := Percent(m.MarksObtained, m.TotalMarks); ok {
		r.Percentage = pct
		r.Grade = LetterGrade(pct)
	}
	return r
}
