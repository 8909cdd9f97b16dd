package report

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/school"
)

// ReadStudents reads a student import sheet: the first sheet, column A holding the NIS and column B the name.
// The first row is a header. Blank rows are skipped; every other row is validated as a school.NewStudent.
func ReadStudents(r io.Reader, validate *validator.Validate) ([]school.NewStudent, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewFieldValidationError("file", "not a valid xlsx file")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, core.NewFieldValidationError("file", "the workbook has no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}

	students := make([]school.NewStudent, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		var nis, name string
		if len(row) > 0 {
			nis = core.CleanString(row[0])
		}
		if len(row) > 1 {
			name = core.CleanString(row[1])
		}
		if nis == "" && name == "" {
			continue
		}

		ns := school.NewStudent{NIS: nis, Name: name}
		if err = ns.Validate(validate); err != nil {
			return nil, rowError(i+1, err)
		}
		students = append(students, ns)
	}
	return students, nil
}

// rowError reports the first field error of a row as a validation error on that row.
func rowError(row int, err error) error {
	field := fmt.Sprintf("row %d", row)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return core.NewFieldValidationError(field, fmt.Sprintf("%s is invalid (%s)", verrs[0].Field(), verrs[0].Tag()))
	}
	return core.NewFieldValidationError(field, err.Error())
}
