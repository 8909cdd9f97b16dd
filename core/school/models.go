package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/attendance"
	"github.com/trezcool/rapor/core/grading"
)

type (
	Class struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	}

	Subject struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Category struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	Weight struct {
		CategoryID   string `json:"category_id"`
		CategoryName string `json:"category_name"`
		Percentage   int    `json:"percentage"`
	}

	Student struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		NIS     string `json:"nis"`
		ClassID string `json:"class_id"`
	}

	// Score is unique per (student, subject, category, assessment).
	Score struct {
		ID         string  `json:"id"`
		StudentID  string  `json:"student_id"`
		SubjectID  string  `json:"subject_id"`
		CategoryID string  `json:"category_id"`
		Assessment string  `json:"assessment"`
		Value      float64 `json:"value"`
	}

	// AttendanceRecord is unique per (student, date).
	AttendanceRecord struct {
		ID        string            `json:"id"`
		StudentID string            `json:"student_id"`
		Date      string            `json:"date"` // YYYY-MM-DD
		Status    attendance.Status `json:"status"`
	}

	// Journal is the log a teacher keeps of one lesson given to a class.
	Journal struct {
		ID              string `json:"id"`
		AuthorID        string `json:"author_id"`
		Date            string `json:"date"` // YYYY-MM-DD
		ClassID         string `json:"class_id"`
		ClassName       string `json:"class_name"`
		SubjectID       string `json:"subject_id"`
		SubjectName     string `json:"subject_name"`
		Material        string `json:"material"`
		Method          string `json:"method"`
		StudentsPresent int    `json:"students_present"`
		Notes           string `json:"notes"`
	}

	GradeRecap struct {
		Class       Class                `json:"class"`
		Subject     Subject              `json:"subject"`
		Mode        grading.Mode         `json:"mode"`
		Categories  []string             `json:"categories"`
		Weights     []grading.Weight     `json:"weights"`
		Results     []grading.Result     `json:"results"`
		Summary     grading.ClassSummary `json:"summary"`
		WeightCheck grading.WeightCheck  `json:"weight_check"`
	}

	AttendanceRecap struct {
		Class   Class                   `json:"class"`
		From    string                  `json:"from"`
		To      string                  `json:"to"`
		Rows    []attendance.Row        `json:"rows"`
		Summary attendance.ClassSummary `json:"summary"`
	}
)

// Inputs

type NewClass struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	IsActive *bool  `json:"is_active"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateClass defines what may be changed on an existing Class. Empty fields keep their value.
type UpdateClass struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	IsActive *bool  `json:"is_active"`
}

func (uc *UpdateClass) Validate(orig Class, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	return validate.Struct(uc)
}

type NewSubject struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type NewCategory struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type NewStudent struct {
	Name    string `json:"name" validate:"required,notblank,max=150"`
	NIS     string `json:"nis" validate:"omitempty,max=30"`
	ClassID string `json:"class_id"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.NIS = core.CleanString(ns.NIS)
	ns.ClassID = core.CleanString(ns.ClassID)
	return validate.Struct(ns)
}

// UpdateStudent defines what may be changed on an existing Student. Empty fields keep their value.
// Unassign removes the student from its class.
type UpdateStudent struct {
	Name     string `json:"name" validate:"omitempty,max=150"`
	NIS      string `json:"nis" validate:"omitempty,max=30"`
	ClassID  string `json:"class_id"`
	Unassign bool   `json:"unassign"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	keep := func(val, origVal string) string {
		if val = core.CleanString(val); val != "" {
			return val
		}
		return origVal
	}
	us.Name = keep(us.Name, orig.Name)
	us.NIS = keep(us.NIS, orig.NIS)
	us.ClassID = core.CleanString(us.ClassID)
	switch {
	case us.Unassign && us.ClassID != "":
		return core.NewFieldValidationError("class_id", "must be empty when unassign is set")
	case us.ClassID == "" && !us.Unassign:
		us.ClassID = orig.ClassID
	}
	return validate.Struct(us)
}

type SetWeight struct {
	CategoryID string `json:"category_id" validate:"required"`
	Percentage *int   `json:"percentage" validate:"required,min=0,max=100"`
}

func (sw *SetWeight) Validate(validate *validator.Validate) error {
	sw.CategoryID = core.CleanString(sw.CategoryID)
	return validate.Struct(sw)
}

type ScoreEntry struct {
	StudentID  string   `json:"student_id" validate:"required"`
	CategoryID string   `json:"category_id" validate:"required"`
	Assessment string   `json:"assessment" validate:"required,notblank,max=100"`
	Value      *float64 `json:"value" validate:"required,min=0,max=100"`
}

// ScoreSheet is a batch of scores for one subject.
type ScoreSheet struct {
	SubjectID string       `json:"subject_id" validate:"required"`
	Entries   []ScoreEntry `json:"entries" validate:"required,min=1,dive"`
}

func (ss *ScoreSheet) Validate(validate *validator.Validate) error {
	ss.SubjectID = core.CleanString(ss.SubjectID)
	for i := range ss.Entries {
		ss.Entries[i].Assessment = core.CleanString(ss.Entries[i].Assessment)
	}
	return validate.Struct(ss)
}

type AttendanceEntry struct {
	StudentID string            `json:"student_id" validate:"required"`
	Status    attendance.Status `json:"status" validate:"required,attendance_status"`
}

// AttendanceSheet is the attendance of one class on one day.
// With FillPresent, class students missing from Entries are recorded with the default status.
type AttendanceSheet struct {
	ClassID     string            `json:"class_id" validate:"required"`
	Date        string            `json:"date" validate:"required,isodate"`
	FillPresent bool              `json:"fill_present"`
	Entries     []AttendanceEntry `json:"entries" validate:"dive"`
}

func (as *AttendanceSheet) Validate(validate *validator.Validate) error {
	as.ClassID = core.CleanString(as.ClassID)
	as.Date = core.CleanString(as.Date)
	for i, e := range as.Entries {
		if st, err := attendance.ParseStatus(string(e.Status)); err == nil {
			as.Entries[i].Status = st
		}
	}
	return validate.Struct(as)
}

// NewJournal is the content of a Journal. Updates replace the whole content.
type NewJournal struct {
	Date            string `json:"date" validate:"required,isodate"`
	ClassID         string `json:"class_id" validate:"required"`
	SubjectID       string `json:"subject_id" validate:"required"`
	Material        string `json:"material" validate:"required,notblank,max=500"`
	Method          string `json:"method" validate:"required,teaching_method"`
	StudentsPresent int    `json:"students_present" validate:"min=0"`
	Notes           string `json:"notes" validate:"max=2000"`
}

func (nj *NewJournal) Validate(validate *validator.Validate) error {
	nj.Date = core.CleanString(nj.Date)
	nj.ClassID = core.CleanString(nj.ClassID)
	nj.SubjectID = core.CleanString(nj.SubjectID)
	nj.Material = core.CleanString(nj.Material)
	nj.Method = core.CleanString(nj.Method, true)
	nj.Notes = core.CleanString(nj.Notes)
	return validate.Struct(nj)
}

// Filters

type ClassFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (cf *ClassFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
}

type StudentFilter struct {
	ClassID string   `query:"class_id"`
	Search  string   `query:"search"` // case-insensitive match on name or NIS
	IDs     []string `query:"id"`
}

func (sf *StudentFilter) Clean() {
	sf.ClassID = core.CleanString(sf.ClassID)
	sf.Search = core.CleanString(sf.Search)
}

type ScoreFilter struct {
	ClassID    string `query:"class_id"`
	SubjectID  string `query:"subject_id"`
	StudentID  string `query:"student_id"`
	CategoryID string `query:"category_id"`
}

type AttendanceFilter struct {
	ClassID   string `query:"class_id"`
	StudentID string `query:"student_id"`
	From      string `query:"from"` // YYYY-MM-DD, inclusive
	To        string `query:"to"`   // YYYY-MM-DD, inclusive
}

// JournalFilter selects journals; AuthorID is forced to the caller for non-admins.
type JournalFilter struct {
	AuthorID  string `query:"author_id"`
	ClassID   string `query:"class_id"`
	SubjectID string `query:"subject_id"`
	From      string `query:"from"` // YYYY-MM-DD, inclusive
	To        string `query:"to"`   // YYYY-MM-DD, inclusive
}

func (jf *JournalFilter) Clean() {
	jf.AuthorID = core.CleanString(jf.AuthorID)
	jf.ClassID = core.CleanString(jf.ClassID)
	jf.SubjectID = core.CleanString(jf.SubjectID)
	jf.From = core.CleanString(jf.From)
	jf.To = core.CleanString(jf.To)
}
