package mark

import (
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

var (
	examTypeTag  = "examtype"
	examTypeText = "must be one of quiz, midterm, final, assignment or project"

	// marks are stored as NUMERIC(7, 2)
	twoDecimalsTag  = "dec2"
	twoDecimalsText = "must have at most 2 decimal places"

	obtainedMaxTag  = "obtainedmax"
	obtainedMaxText = "marks obtained cannot exceed total marks"
)

// InitValidators registers mark validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(examTypeTag, examTypeValidation)
	core.RegisterCustomTranslation(validate, translator, examTypeTag, examTypeText)

	_ = validate.RegisterValidation(twoDecimalsTag, twoDecimalsValidation)
	core.RegisterCustomTranslation(validate, translator, twoDecimalsTag, twoDecimalsText)

	validate.RegisterStructValidation(newMarkStructValidation, NewMark{})
	core.RegisterCustomTranslation(validate, translator, obtainedMaxTag, obtainedMaxText)
}

func examTypeValidation(fl validator.FieldLevel) bool {
	return ExamType(fl.Field().String()).IsValid()
}

func twoDecimalsValidation(fl validator.FieldLevel) bool {
	cents := fl.Field().Float() * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

func newMarkStructValidation(sl validator.StructLevel) {
	if nm, ok := sl.Current().Interface().(NewMark); ok {
		if nm.MarksObtained != nil && nm.TotalMarks > 0 && *nm.MarksObtained > nm.TotalMarks {
			sl.ReportError(nm.MarksObtained, "marks_obtained", "MarksObtained", obtainedMaxTag, "")
		}
	}
}
