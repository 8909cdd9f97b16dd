package school

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/attendance"
	"github.com/trezcool/rapor/core/grading"
)

var (
	// errors
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	// minimum similarity for a "did you mean" class suggestion
	suggestionMinRatio = .6
)

type (
	Repository interface {
		CreateClass(ctx context.Context, class Class) (Class, error)
		QueryClasses(ctx context.Context, filter *ClassFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, class Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, subject Subject) (Subject, error)
		QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateCategory(ctx context.Context, category Category) (Category, error)
		QueryCategories(ctx context.Context, ordering []core.DBOrdering) ([]Category, error)
		GetCategory(ctx context.Context, id string) (Category, error)
		DeleteCategory(ctx context.Context, id string) error

		// QueryWeights returns the weight table ordered by category name.
		QueryWeights(ctx context.Context) ([]Weight, error)
		SetWeight(ctx context.Context, weight Weight) (Weight, error)
		DeleteWeight(ctx context.Context, categoryID string) error

		// CreateStudents inserts all students in one transaction.
		CreateStudents(ctx context.Context, students ...Student) ([]Student, error)
		// QueryStudents applies AND operation on available StudentFilter fields.
		QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, student Student) (Student, error)
		DeleteStudents(ctx context.Context, ids ...string) error

		// UpsertScores inserts or updates scores on (student, subject, category, assessment) in one transaction.
		UpsertScores(ctx context.Context, scores ...Score) ([]Score, error)
		QueryScores(ctx context.Context, filter ScoreFilter) ([]Score, error)
		DeleteScore(ctx context.Context, id string) error

		// UpsertAttendance inserts or updates records on (student, date) in one transaction.
		UpsertAttendance(ctx context.Context, records ...AttendanceRecord) ([]AttendanceRecord, error)
		QueryAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)

		CreateJournal(ctx context.Context, journal Journal) (Journal, error)
		// QueryJournals applies AND operation on available JournalFilter fields. Newest first by default.
		QueryJournals(ctx context.Context, filter *JournalFilter, ordering []core.DBOrdering) ([]Journal, error)
		GetJournal(ctx context.Context, id string) (Journal, error)
		UpdateJournal(ctx context.Context, journal Journal) (Journal, error)
		DeleteJournal(ctx context.Context, id string) error
	}

	Service struct {
		repo        Repository
		logger      core.Logger
		defaultMode grading.Mode
	}
)

func NewService(repo Repository, logger core.Logger, conf *core.Config) *Service {
	mode, err := grading.ParseMode(conf.Grading.Mode)
	if err != nil {
		logger.Warn(fmt.Sprintf("invalid grading mode in config, using %s: %v", grading.ZeroFill, err))
		mode = grading.ZeroFill
	}
	return &Service{repo: repo, logger: logger, defaultMode: mode}
}

// DefaultMode is the grading mode used when a recap does not ask for one.
func (svc *Service) DefaultMode() grading.Mode {
	return svc.defaultMode
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	class := Class{Name: nc.Name, IsActive: true}
	if nc.IsActive != nil {
		class.IsActive = *nc.IsActive
	}
	return svc.repo.CreateClass(ctx, class)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *ClassFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) UpdateClass(ctx context.Context, orig Class, uc UpdateClass) (Class, error) {
	class := orig
	class.Name = uc.Name
	if uc.IsActive != nil {
		class.IsActive = *uc.IsActive
	}
	return svc.repo.UpdateClass(ctx, class)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// FindClassByName looks a class up by its case-insensitive name.
// On a miss, the returned ErrNotFound carries the closest class name when one is similar enough.
func (svc *Service) FindClassByName(ctx context.Context, name string) (Class, error) {
	name = core.CleanString(name)
	classes, err := svc.repo.QueryClasses(ctx, nil, nil)
	if err != nil {
		return Class{}, errors.Wrap(err, "querying classes")
	}

	lname := strings.ToLower(name)
	var best Class
	var bestRatio float64
	for _, class := range classes {
		lclass := strings.ToLower(class.Name)
		if lclass == lname {
			return class, nil
		}
		ratio := difflib.NewMatcher(strings.Split(lname, ""), strings.Split(lclass, "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = class, ratio
		}
	}

	if bestRatio >= suggestionMinRatio {
		return Class{}, errors.Wrapf(ErrNotFound, "class %q; did you mean %q?", name, best.Name)
	}
	return Class{}, errors.Wrapf(ErrNotFound, "class %q", name)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name})
}

func (svc *Service) QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, ordering)
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	return svc.repo.CreateCategory(ctx, Category{Name: nc.Name, Description: nc.Description})
}

func (svc *Service) QueryCategories(ctx context.Context, ordering []core.DBOrdering) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, ordering)
}

func (svc *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

func (svc *Service) DeleteCategory(ctx context.Context, id string) error {
	return svc.repo.DeleteCategory(ctx, id)
}

// Weights

func (svc *Service) QueryWeights(ctx context.Context) ([]Weight, error) {
	return svc.repo.QueryWeights(ctx)
}

// SetWeight sets the percentage of a category. The table total is only checked, never enforced.
func (svc *Service) SetWeight(ctx context.Context, sw SetWeight) (Weight, error) {
	category, err := svc.repo.GetCategory(ctx, sw.CategoryID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Weight{}, core.NewFieldValidationError("category_id", "category not found")
		}
		return Weight{}, errors.Wrap(err, "getting category")
	}

	weight, err := svc.repo.SetWeight(ctx, Weight{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Percentage:   *sw.Percentage,
	})
	if err != nil {
		return Weight{}, errors.Wrap(err, "setting weight")
	}

	if weights, err := svc.repo.QueryWeights(ctx); err == nil {
		if check := grading.CheckWeights(toGradingWeights(weights), nil); !check.Balanced {
			svc.logger.Warn(fmt.Sprintf("weight total is %d%%, not 100%%", check.Total))
		}
	}
	return weight, nil
}

func (svc *Service) DeleteWeight(ctx context.Context, categoryID string) error {
	return svc.repo.DeleteWeight(ctx, categoryID)
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if ns.ClassID != "" {
		if err := svc.checkClass(ctx, ns.ClassID); err != nil {
			return Student{}, err
		}
	}
	students, err := svc.repo.CreateStudents(ctx, Student{Name: ns.Name, NIS: ns.NIS, ClassID: ns.ClassID})
	if err != nil {
		return Student{}, err
	}
	return students[0], nil
}

// ImportStudents creates all students in classID at once. Nothing is created when one of them fails.
func (svc *Service) ImportStudents(ctx context.Context, classID string, nss []NewStudent) ([]Student, error) {
	if err := svc.checkClass(ctx, classID); err != nil {
		return nil, err
	}
	if len(nss) == 0 {
		return []Student{}, nil
	}

	students := make([]Student, 0, len(nss))
	seen := make(map[string]int, len(nss))
	for i, ns := range nss {
		if ns.NIS != "" {
			if j, dup := seen[ns.NIS]; dup {
				return nil, core.NewFieldValidationError("nis", fmt.Sprintf("NIS %s is repeated on rows %d and %d", ns.NIS, j+1, i+1))
			}
			seen[ns.NIS] = i
		}
		students = append(students, Student{Name: ns.Name, NIS: ns.NIS, ClassID: classID})
	}
	return svc.repo.CreateStudents(ctx, students...)
}

func (svc *Service) QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	if us.ClassID != "" && us.ClassID != orig.ClassID {
		if err := svc.checkClass(ctx, us.ClassID); err != nil {
			return Student{}, err
		}
	}
	student := orig
	student.Name = us.Name
	student.NIS = us.NIS
	student.ClassID = us.ClassID
	return svc.repo.UpdateStudent(ctx, student)
}

func (svc *Service) DeleteStudents(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudents(ctx, ids...)
}

func (svc *Service) checkClass(ctx context.Context, classID string) error {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldValidationError("class_id", "class not found")
		}
		return errors.Wrap(err, "getting class")
	}
	return nil
}

// Scores

// RecordScores upserts a batch of scores for one subject.
func (svc *Service) RecordScores(ctx context.Context, sheet ScoreSheet) ([]Score, error) {
	if _, err := svc.repo.GetSubject(ctx, sheet.SubjectID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, core.NewFieldValidationError("subject_id", "subject not found")
		}
		return nil, errors.Wrap(err, "getting subject")
	}

	categories, err := svc.repo.QueryCategories(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	knownCats := make(map[string]bool, len(categories))
	for _, c := range categories {
		knownCats[c.ID] = true
	}

	ids := make([]string, 0, len(sheet.Entries))
	for _, e := range sheet.Entries {
		ids = append(ids, e.StudentID)
	}
	students, err := svc.repo.QueryStudents(ctx, &StudentFilter{IDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	knownStudents := make(map[string]bool, len(students))
	for _, s := range students {
		knownStudents[s.ID] = true
	}

	scores := make([]Score, 0, len(sheet.Entries))
	for i, e := range sheet.Entries {
		if !knownStudents[e.StudentID] {
			return nil, core.NewFieldValidationError(fmt.Sprintf("entries[%d].student_id", i), "student not found")
		}
		if !knownCats[e.CategoryID] {
			return nil, core.NewFieldValidationError(fmt.Sprintf("entries[%d].category_id", i), "category not found")
		}
		scores = append(scores, Score{
			StudentID:  e.StudentID,
			SubjectID:  sheet.SubjectID,
			CategoryID: e.CategoryID,
			Assessment: e.Assessment,
			Value:      *e.Value,
		})
	}
	return svc.repo.UpsertScores(ctx, scores...)
}

func (svc *Service) QueryScores(ctx context.Context, filter ScoreFilter) ([]Score, error) {
	return svc.repo.QueryScores(ctx, filter)
}

func (svc *Service) DeleteScore(ctx context.Context, id string) error {
	return svc.repo.DeleteScore(ctx, id)
}

// Attendance

// RecordAttendance upserts the attendance of one class on one day.
func (svc *Service) RecordAttendance(ctx context.Context, sheet AttendanceSheet) ([]AttendanceRecord, error) {
	if err := svc.checkClass(ctx, sheet.ClassID); err != nil {
		return nil, err
	}
	roster, err := svc.repo.QueryStudents(ctx, &StudentFilter{ClassID: sheet.ClassID}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	inClass := make(map[string]bool, len(roster))
	for _, s := range roster {
		inClass[s.ID] = true
	}

	records := make([]AttendanceRecord, 0, len(roster))
	marked := make(map[string]bool, len(sheet.Entries))
	for i, e := range sheet.Entries {
		if !inClass[e.StudentID] {
			return nil, core.NewFieldValidationError(fmt.Sprintf("entries[%d].student_id", i), "student is not in this class")
		}
		marked[e.StudentID] = true
		records = append(records, AttendanceRecord{StudentID: e.StudentID, Date: sheet.Date, Status: e.Status})
	}
	if sheet.FillPresent {
		for _, s := range roster {
			if !marked[s.ID] {
				records = append(records, AttendanceRecord{StudentID: s.ID, Date: sheet.Date, Status: attendance.DefaultStatus})
			}
		}
	}
	if len(records) == 0 {
		return []AttendanceRecord{}, nil
	}
	return svc.repo.UpsertAttendance(ctx, records...)
}

func (svc *Service) QueryAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error) {
	return svc.repo.QueryAttendance(ctx, filter)
}

// Journals

// CreateJournal records a lesson given by authorID.
func (svc *Service) CreateJournal(ctx context.Context, authorID string, nj NewJournal) (Journal, error) {
	journal := Journal{AuthorID: authorID}
	if err := svc.fillJournal(ctx, &journal, nj); err != nil {
		return Journal{}, err
	}
	return svc.repo.CreateJournal(ctx, journal)
}

func (svc *Service) QueryJournals(ctx context.Context, filter *JournalFilter, ordering []core.DBOrdering) ([]Journal, error) {
	return svc.repo.QueryJournals(ctx, filter, ordering)
}

func (svc *Service) GetJournal(ctx context.Context, id string) (Journal, error) {
	return svc.repo.GetJournal(ctx, id)
}

// UpdateJournal replaces the content of orig. The author never changes.
func (svc *Service) UpdateJournal(ctx context.Context, orig Journal, nj NewJournal) (Journal, error) {
	journal := orig
	if err := svc.fillJournal(ctx, &journal, nj); err != nil {
		return Journal{}, err
	}
	return svc.repo.UpdateJournal(ctx, journal)
}

func (svc *Service) DeleteJournal(ctx context.Context, id string) error {
	return svc.repo.DeleteJournal(ctx, id)
}

func (svc *Service) fillJournal(ctx context.Context, journal *Journal, nj NewJournal) error {
	class, err := svc.repo.GetClass(ctx, nj.ClassID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldValidationError("class_id", "class not found")
		}
		return errors.Wrap(err, "getting class")
	}
	subject, err := svc.repo.GetSubject(ctx, nj.SubjectID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldValidationError("subject_id", "subject not found")
		}
		return errors.Wrap(err, "getting subject")
	}

	journal.Date = nj.Date
	journal.ClassID, journal.ClassName = class.ID, class.Name
	journal.SubjectID, journal.SubjectName = subject.ID, subject.Name
	journal.Material = nj.Material
	journal.Method = nj.Method
	journal.StudentsPresent = nj.StudentsPresent
	journal.Notes = nj.Notes
	return nil
}

// Recaps

// GradeRecap computes the grades of a class in a subject from a fresh snapshot of the store.
// An empty mode uses the configured default.
func (svc *Service) GradeRecap(ctx context.Context, classID, subjectID string, mode grading.Mode) (GradeRecap, error) {
	if mode == "" {
		mode = svc.defaultMode
	}

	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "getting class")
	}
	subject, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "getting subject")
	}
	roster, err := svc.repo.QueryStudents(ctx, &StudentFilter{ClassID: classID}, nil)
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "querying students")
	}
	categories, err := svc.repo.QueryCategories(ctx, nil)
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "querying categories")
	}
	weights, err := svc.repo.QueryWeights(ctx)
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "querying weights")
	}
	scores, err := svc.repo.QueryScores(ctx, ScoreFilter{ClassID: classID, SubjectID: subjectID})
	if err != nil {
		return GradeRecap{}, errors.Wrap(err, "querying scores")
	}

	input := svc.gradingInput(roster, categories, weights, scores, mode)
	results := grading.Compute(input)
	scored := grading.ScoredCategories(input.Students)
	check := grading.CheckWeights(input.Weights, scored)
	if !check.Balanced || len(check.Unweighted) > 0 {
		svc.logger.Warn(
			fmt.Sprintf("grade recap %s/%s: weight total %d%%, unweighted categories %v", class.Name, subject.Name, check.Total, check.Unweighted),
			map[string]interface{}{"class_id": classID, "subject_id": subjectID},
		)
	}

	recapCats := make([]string, 0, len(input.Weights)+len(check.Unweighted))
	for _, w := range input.Weights {
		recapCats = append(recapCats, w.Category)
	}
	recapCats = append(recapCats, check.Unweighted...)

	return GradeRecap{
		Class:       class,
		Subject:     subject,
		Mode:        mode,
		Categories:  recapCats,
		Weights:     input.Weights,
		Results:     results,
		Summary:     grading.Summarize(results),
		WeightCheck: check,
	}, nil
}

// gradingInput maps store rows to engine types. Scores of unknown students or categories are dropped.
func (svc *Service) gradingInput(roster []Student, categories []Category, weights []Weight, scores []Score, mode grading.Mode) grading.Input {
	catNames := make(map[string]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}

	students := make([]grading.Student, 0, len(roster))
	index := make(map[string]int, len(roster))
	for _, s := range roster {
		index[s.ID] = len(students)
		students = append(students, grading.Student{ID: s.ID, Name: s.Name, NIS: s.NIS, Scores: map[string][]float64{}})
	}

	for _, sc := range scores {
		i, ok := index[sc.StudentID]
		if !ok {
			continue
		}
		cat, ok := catNames[sc.CategoryID]
		if !ok {
			svc.logger.Warn(fmt.Sprintf("score %s references unknown category %s", sc.ID, sc.CategoryID))
			continue
		}
		students[i].Scores[cat] = append(students[i].Scores[cat], sc.Value)
	}

	return grading.Input{
		Students: students,
		Weights:  toGradingWeights(weights),
		Mode:     mode,
	}
}

func toGradingWeights(weights []Weight) []grading.Weight {
	gw := make([]grading.Weight, 0, len(weights))
	for _, w := range weights {
		gw = append(gw, grading.Weight{Category: w.CategoryName, Percentage: w.Percentage})
	}
	return gw
}

// AttendanceRecap summarizes the attendance of a class over the inclusive range [from, to].
func (svc *Service) AttendanceRecap(ctx context.Context, classID string, from, to time.Time) (AttendanceRecap, error) {
	if from.After(to) {
		return AttendanceRecap{}, core.NewValidationError(
			errors.New("from must not be after to"),
			core.FieldError{Field: "to", Error: "must not be before from"},
		)
	}

	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return AttendanceRecap{}, errors.Wrap(err, "getting class")
	}
	roster, err := svc.repo.QueryStudents(ctx, &StudentFilter{ClassID: classID}, nil)
	if err != nil {
		return AttendanceRecap{}, errors.Wrap(err, "querying students")
	}
	fromStr, toStr := core.FormatDate(from), core.FormatDate(to)
	rows, err := svc.repo.QueryAttendance(ctx, AttendanceFilter{ClassID: classID, From: fromStr, To: toStr})
	if err != nil {
		return AttendanceRecap{}, errors.Wrap(err, "querying attendance")
	}

	students := make([]attendance.Student, 0, len(roster))
	for _, s := range roster {
		students = append(students, attendance.Student{ID: s.ID, Name: s.Name, NIS: s.NIS})
	}
	records := svc.attendanceRecords(rows)
	rng := attendance.Range{From: from, To: to}
	summaryRows := attendance.Summarize(students, records, rng)

	return AttendanceRecap{
		Class:   class,
		From:    fromStr,
		To:      toStr,
		Rows:    summaryRows,
		Summary: attendance.SummarizeClass(summaryRows, records, rng),
	}, nil
}

// attendanceRecords maps store rows to engine records, in date order. Malformed rows are logged and skipped.
func (svc *Service) attendanceRecords(rows []AttendanceRecord) []attendance.Record {
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		date, err := core.ParseDate(r.Date)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("attendance %s has an invalid date %q", r.ID, r.Date), err)
			continue
		}
		status, err := attendance.ParseStatus(string(r.Status))
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("attendance %s: %v", r.ID, err), err)
			continue
		}
		records = append(records, attendance.Record{StudentID: r.StudentID, Date: date, Status: status})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records
}
