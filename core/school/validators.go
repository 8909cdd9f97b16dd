package school

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/attendance"
)

var (
	attendanceStatusTag  = "attendance_status"
	attendanceStatusText = "status must be one of " + joinStatuses()

	teachingMethodTag  = "teaching_method"
	teachingMethodText = "method must be one of " + strings.Join(TeachingMethods, ", ")
)

// TeachingMethods are the lesson methods a Journal may record.
var TeachingMethods = []string{
	"ceramah", "diskusi", "praktik", "presentasi", "tanya_jawab", "demonstrasi", "eksperimen", "game_edukasi",
}

// InitValidators registers the school validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
	core.RegisterCustomTranslation(validate, translator, attendanceStatusTag, attendanceStatusText)

	_ = validate.RegisterValidation(teachingMethodTag, teachingMethodValidation)
	core.RegisterCustomTranslation(validate, translator, teachingMethodTag, teachingMethodText)
}

func joinStatuses() string {
	vals := make([]string, 0, len(attendance.Statuses))
	for _, st := range attendance.Statuses {
		vals = append(vals, string(st))
	}
	return strings.Join(vals, ", ")
}

// attendanceStatusValidation only allows the stored attendance status values.
func attendanceStatusValidation(fl validator.FieldLevel) bool {
	return attendance.Status(fl.Field().String()).Valid()
}

func teachingMethodValidation(fl validator.FieldLevel) bool {
	method := fl.Field().String()
	for _, m := range TeachingMethods {
		if m == method {
			return true
		}
	}
	return false
}
