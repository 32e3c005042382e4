package marksheet

import (
	"strconv"
	"strings"

	"github.com/trezcool/alama/core/mark"
)

// Percentage parses obtained and returns it as a percentage of total.
// ok is false when obtained is blank or not a number, or total is not positive.
func Percentage(obtained string, total float64) (pct float64, ok bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(obtained), 64)
	if err != nil {
		return 0, false
	}
	return mark.Percent(v, total)
}

// PassStyled reports whether a defined percentage is displayed as a pass.
func PassStyled(pct float64) bool {
	return pct >= mark.PassMark
}

// Aggregate summarizes the records that have a percentage.
func Aggregate(records []MarkRecord) Stats {
	return mark.Summarize(records)
}

// Tier is the display bucket of a grade.
type Tier int

const (
	TierLowest Tier = iota
	TierFourth
	TierThird
	TierSecond
	TierTop
)

var tierNames = [...]string{"lowest", "fourth", "third", "second", "top"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

type gradeRule struct {
	match func(grade string) bool
	tier  Tier
}

func contains(s string) func(string) bool {
	return func(grade string) bool { return strings.Contains(grade, s) }
}

// gradeRules are evaluated in order and the first match wins,
// so "AB" is top tier.
var gradeRules = []gradeRule{
	{contains("A"), TierTop},
	{contains("B"), TierSecond},
	{contains("C"), TierThird},
	{func(grade string) bool { return grade == "D" }, TierFourth},
}

func ClassifyGrade(grade string) Tier {
	for _, rule := range gradeRules {
		if rule.match(grade) {
			return rule.tier
		}
	}
	return TierLowest
}
