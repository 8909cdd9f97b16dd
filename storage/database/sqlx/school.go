package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/attendance"
	"github.com/trezcool/rapor/core/school"
)

var (
	classOrderFields   = map[string]string{"name": "name", "is_active": "is_active"}
	namedOrderFields   = map[string]string{"name": "name"}
	studentOrderFields = map[string]string{"name": "name", "nis": "nis"}
	journalOrderFields = map[string]string{"date": "j.date", "class": "c.name", "subject": "s.name"}
)

type (
	classRow struct {
		ID       string `db:"id"`
		Name     string `db:"name"`
		IsActive bool   `db:"is_active"`
	}

	subjectRow struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}

	categoryRow struct {
		ID          string      `db:"id"`
		Name        string      `db:"name"`
		Description null.String `db:"description"`
	}

	weightRow struct {
		CategoryID   string `db:"category_id"`
		CategoryName string `db:"category_name"`
		Percentage   int    `db:"percentage"`
	}

	studentRow struct {
		ID      string      `db:"id"`
		Name    string      `db:"name"`
		NIS     null.String `db:"nis"`
		ClassID null.String `db:"class_id"`
	}

	scoreRow struct {
		ID         string  `db:"id"`
		StudentID  string  `db:"student_id"`
		SubjectID  string  `db:"subject_id"`
		CategoryID string  `db:"category_id"`
		Assessment string  `db:"assessment"`
		Value      float64 `db:"value"`
	}

	attendanceRow struct {
		ID        string `db:"id"`
		StudentID string `db:"student_id"`
		Date      string `db:"date"`
		Status    string `db:"status"`
	}

	journalRow struct {
		ID              string      `db:"id"`
		AuthorID        string      `db:"author_id"`
		Date            string      `db:"date"`
		ClassID         string      `db:"class_id"`
		ClassName       string      `db:"class_name"`
		SubjectID       string      `db:"subject_id"`
		SubjectName     string      `db:"subject_name"`
		Material        string      `db:"material"`
		Method          string      `db:"method"`
		StudentsPresent int         `db:"students_present"`
		Notes           null.String `db:"notes"`
	}
)

func (r classRow) unboil() school.Class {
	return school.Class{ID: r.ID, Name: r.Name, IsActive: r.IsActive}
}

func (r categoryRow) unboil() school.Category {
	return school.Category{ID: r.ID, Name: r.Name, Description: r.Description.String}
}

func boilStudent(s school.Student) studentRow {
	return studentRow{
		ID:      s.ID,
		Name:    s.Name,
		NIS:     null.NewString(s.NIS, s.NIS != ""),
		ClassID: null.NewString(s.ClassID, s.ClassID != ""),
	}
}

func (r studentRow) unboil() school.Student {
	return school.Student{ID: r.ID, Name: r.Name, NIS: r.NIS.String, ClassID: r.ClassID.String}
}

func (r scoreRow) unboil() school.Score {
	return school.Score{
		ID:         r.ID,
		StudentID:  r.StudentID,
		SubjectID:  r.SubjectID,
		CategoryID: r.CategoryID,
		Assessment: r.Assessment,
		Value:      r.Value,
	}
}

// unboil keeps the stored status as is; the recap boundary rejects unknown values.
func (r attendanceRow) unboil() school.AttendanceRecord {
	return school.AttendanceRecord{ID: r.ID, StudentID: r.StudentID, Date: r.Date, Status: attendance.Status(r.Status)}
}

func (r journalRow) unboil() school.Journal {
	return school.Journal{
		ID:              r.ID,
		AuthorID:        r.AuthorID,
		Date:            r.Date,
		ClassID:         r.ClassID,
		ClassName:       r.ClassName,
		SubjectID:       r.SubjectID,
		SubjectName:     r.SubjectName,
		Material:        r.Material,
		Method:          r.Method,
		StudentsPresent: r.StudentsPresent,
		Notes:           r.Notes.String,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

// NewSchoolRepository wraps db for driverName, which selects the placeholder style ("postgres", "sqlite3").
func NewSchoolRepository(db *sql.DB, driverName string) *schoolRepository {
	return &schoolRepository{db: sqlx.NewDb(db, driverName)}
}

func now() time.Time {
	return time.Now().UTC()
}

// withTx runs fn in a transaction, committed only when fn succeeds.
func (repo schoolRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// selectIn expands slice args with sqlx.In, rebinds and selects into dest.
func (repo schoolRepository) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return repo.db.SelectContext(ctx, dest, repo.db.Rebind(query), args...)
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}

// Classes

func (repo schoolRepository) CreateClass(ctx context.Context, class school.Class) (school.Class, error) {
	class.ID = uuid.New().String()
	ts := now()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("INSERT INTO classes (id, name, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"),
		class.ID, class.Name, class.IsActive, ts, ts)
	if err != nil {
		return school.Class{}, trapErr(err, "inserting class")
	}
	return class, nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter *school.ClassFilter, ordering []core.DBOrdering) ([]school.Class, error) {
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "LOWER(name) LIKE ?")
			args = append(args, likePattern(filter.Search))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}
	query := "SELECT id, name, is_active FROM classes" + whereClause(conds) +
		" ORDER BY " + core.OrderBy(ordering, classOrderFields, "name ASC")

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.unboil())
	}
	return classes, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	var row classRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT id, name, is_active FROM classes WHERE id = ?"), id)
	if err != nil {
		return school.Class{}, trapErr(err, "class")
	}
	return row.unboil(), nil
}

func (repo schoolRepository) UpdateClass(ctx context.Context, class school.Class) (school.Class, error) {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("UPDATE classes SET name = ?, is_active = ?, updated_at = ? WHERE id = ?"),
		class.Name, class.IsActive, now(), class.ID)
	if err != nil {
		return school.Class{}, trapErr(err, "updating class")
	}
	if err = checkAffected(res, "class"); err != nil {
		return school.Class{}, err
	}
	return class, nil
}

func (repo schoolRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM classes WHERE id = ?"), id)
	if err != nil {
		return trapErr(err, "deleting class")
	}
	return checkAffected(res, "class")
}

// Subjects

func (repo schoolRepository) CreateSubject(ctx context.Context, subject school.Subject) (school.Subject, error) {
	subject.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("INSERT INTO subjects (id, name, created_at) VALUES (?, ?, ?)"),
		subject.ID, subject.Name, now())
	if err != nil {
		return school.Subject{}, trapErr(err, "inserting subject")
	}
	return subject, nil
}

func (repo schoolRepository) QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]school.Subject, error) {
	var rows []subjectRow
	query := "SELECT id, name FROM subjects ORDER BY " + core.OrderBy(ordering, namedOrderFields, "name ASC")
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]school.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, school.Subject{ID: r.ID, Name: r.Name})
	}
	return subjects, nil
}

func (repo schoolRepository) GetSubject(ctx context.Context, id string) (school.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT id, name FROM subjects WHERE id = ?"), id)
	if err != nil {
		return school.Subject{}, trapErr(err, "subject")
	}
	return school.Subject{ID: row.ID, Name: row.Name}, nil
}

func (repo schoolRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM subjects WHERE id = ?"), id)
	if err != nil {
		return trapErr(err, "deleting subject")
	}
	return checkAffected(res, "subject")
}

// Categories

func (repo schoolRepository) CreateCategory(ctx context.Context, category school.Category) (school.Category, error) {
	category.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("INSERT INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)"),
		category.ID, category.Name, null.NewString(category.Description, category.Description != ""), now())
	if err != nil {
		return school.Category{}, trapErr(err, "inserting category")
	}
	return category, nil
}

func (repo schoolRepository) QueryCategories(ctx context.Context, ordering []core.DBOrdering) ([]school.Category, error) {
	var rows []categoryRow
	query := "SELECT id, name, description FROM categories ORDER BY " + core.OrderBy(ordering, namedOrderFields, "name ASC")
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "selecting categories")
	}
	categories := make([]school.Category, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, r.unboil())
	}
	return categories, nil
}

func (repo schoolRepository) GetCategory(ctx context.Context, id string) (school.Category, error) {
	var row categoryRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT id, name, description FROM categories WHERE id = ?"), id)
	if err != nil {
		return school.Category{}, trapErr(err, "category")
	}
	return row.unboil(), nil
}

func (repo schoolRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		return trapErr(err, "deleting category")
	}
	return checkAffected(res, "category")
}

// Weights

func (repo schoolRepository) QueryWeights(ctx context.Context) ([]school.Weight, error) {
	var rows []weightRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT w.category_id, c.name AS category_name, w.percentage
		FROM weights w
		JOIN categories c ON c.id = w.category_id
		ORDER BY c.name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting weights")
	}
	weights := make([]school.Weight, 0, len(rows))
	for _, r := range rows {
		weights = append(weights, school.Weight{CategoryID: r.CategoryID, CategoryName: r.CategoryName, Percentage: r.Percentage})
	}
	return weights, nil
}

func (repo schoolRepository) SetWeight(ctx context.Context, weight school.Weight) (school.Weight, error) {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`
		INSERT INTO weights (category_id, percentage, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (category_id) DO UPDATE SET percentage = excluded.percentage, updated_at = excluded.updated_at`),
		weight.CategoryID, weight.Percentage, now())
	if err != nil {
		return school.Weight{}, trapErr(err, "upserting weight")
	}
	return weight, nil
}

func (repo schoolRepository) DeleteWeight(ctx context.Context, categoryID string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM weights WHERE category_id = ?"), categoryID)
	if err != nil {
		return trapErr(err, "deleting weight")
	}
	return checkAffected(res, "weight")
}

// Students

func (repo schoolRepository) CreateStudents(ctx context.Context, students ...school.Student) ([]school.Student, error) {
	created := make([]school.Student, 0, len(students))
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind("INSERT INTO students (id, name, nis, class_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)")
		ts := now()
		for _, s := range students {
			s.ID = uuid.New().String()
			row := boilStudent(s)
			if _, err := tx.ExecContext(ctx, query, row.ID, row.Name, row.NIS, row.ClassID, ts, ts); err != nil {
				return trapErr(err, "inserting student")
			}
			created = append(created, row.unboil())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (repo schoolRepository) QueryStudents(ctx context.Context, filter *school.StudentFilter, ordering []core.DBOrdering) ([]school.Student, error) {
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.ClassID != "" {
			conds = append(conds, "class_id = ?")
			args = append(args, filter.ClassID)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(COALESCE(nis, '')) LIKE ?)")
			args = append(args, val, val)
		}
		if len(filter.IDs) > 0 {
			conds = append(conds, "id IN (?)")
			args = append(args, filter.IDs)
		}
	}
	query := "SELECT id, name, nis, class_id FROM students" + whereClause(conds) +
		" ORDER BY " + core.OrderBy(ordering, studentOrderFields, "name ASC")

	var rows []studentRow
	if err := repo.selectIn(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unboil())
	}
	return students, nil
}

func (repo schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT id, name, nis, class_id FROM students WHERE id = ?"), id)
	if err != nil {
		return school.Student{}, trapErr(err, "student")
	}
	return row.unboil(), nil
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, student school.Student) (school.Student, error) {
	row := boilStudent(student)
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("UPDATE students SET name = ?, nis = ?, class_id = ?, updated_at = ? WHERE id = ?"),
		row.Name, row.NIS, row.ClassID, now(), row.ID)
	if err != nil {
		return school.Student{}, trapErr(err, "updating student")
	}
	if err = checkAffected(res, "student"); err != nil {
		return school.Student{}, err
	}
	return row.unboil(), nil
}

func (repo schoolRepository) DeleteStudents(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM students WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete students query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return trapErr(err, "deleting students")
	}
	return nil
}

// Scores

func (repo schoolRepository) UpsertScores(ctx context.Context, scores ...school.Score) ([]school.Score, error) {
	saved := make([]school.Score, 0, len(scores))
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		upsert := tx.Rebind(`
			INSERT INTO scores (id, student_id, subject_id, category_id, assessment, value, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, subject_id, category_id, assessment)
			DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
		selectID := tx.Rebind(`
			SELECT id FROM scores
			WHERE student_id = ? AND subject_id = ? AND category_id = ? AND assessment = ?`)
		ts := now()

		for _, sc := range scores {
			_, err := tx.ExecContext(ctx, upsert,
				uuid.New().String(), sc.StudentID, sc.SubjectID, sc.CategoryID, sc.Assessment, sc.Value, ts)
			if err != nil {
				return trapErr(err, "upserting score")
			}
			if err = tx.GetContext(ctx, &sc.ID, selectID, sc.StudentID, sc.SubjectID, sc.CategoryID, sc.Assessment); err != nil {
				return trapErr(err, "selecting score id")
			}
			saved = append(saved, sc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo schoolRepository) QueryScores(ctx context.Context, filter school.ScoreFilter) ([]school.Score, error) {
	var conds []string
	var args []interface{}
	if filter.ClassID != "" {
		conds = append(conds, "st.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		conds = append(conds, "sc.subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.StudentID != "" {
		conds = append(conds, "sc.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.CategoryID != "" {
		conds = append(conds, "sc.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	query := `
		SELECT sc.id, sc.student_id, sc.subject_id, sc.category_id, sc.assessment, sc.value
		FROM scores sc
		JOIN students st ON st.id = sc.student_id` + whereClause(conds) + `
		ORDER BY st.name ASC, sc.category_id ASC, sc.assessment ASC`

	var rows []scoreRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting scores")
	}
	scores := make([]school.Score, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.unboil())
	}
	return scores, nil
}

func (repo schoolRepository) DeleteScore(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM scores WHERE id = ?"), id)
	if err != nil {
		return trapErr(err, "deleting score")
	}
	return checkAffected(res, "score")
}

// Attendance

func (repo schoolRepository) UpsertAttendance(ctx context.Context, records ...school.AttendanceRecord) ([]school.AttendanceRecord, error) {
	saved := make([]school.AttendanceRecord, 0, len(records))
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		upsert := tx.Rebind(`
			INSERT INTO attendance (id, student_id, date, status, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (student_id, date)
			DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`)
		selectID := tx.Rebind("SELECT id FROM attendance WHERE student_id = ? AND date = ?")
		ts := now()

		for _, rec := range records {
			_, err := tx.ExecContext(ctx, upsert, uuid.New().String(), rec.StudentID, rec.Date, string(rec.Status), ts)
			if err != nil {
				return trapErr(err, "upserting attendance")
			}
			if err = tx.GetContext(ctx, &rec.ID, selectID, rec.StudentID, rec.Date); err != nil {
				return trapErr(err, "selecting attendance id")
			}
			saved = append(saved, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo schoolRepository) QueryAttendance(ctx context.Context, filter school.AttendanceFilter) ([]school.AttendanceRecord, error) {
	var conds []string
	var args []interface{}
	if filter.ClassID != "" {
		conds = append(conds, "st.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conds = append(conds, "a.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.From != "" {
		conds = append(conds, "a.date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, "a.date <= ?")
		args = append(args, filter.To)
	}
	query := `
		SELECT a.id, a.student_id, a.date, a.status
		FROM attendance a
		JOIN students st ON st.id = a.student_id` + whereClause(conds) + `
		ORDER BY a.date ASC, st.name ASC`

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]school.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.unboil())
	}
	return records, nil
}

// Journals

const selectJournals = `
	SELECT j.id, j.author_id, j.date, j.class_id, c.name AS class_name, j.subject_id, s.name AS subject_name,
		j.material, j.method, j.students_present, j.notes
	FROM daily_journals j
	JOIN classes c ON c.id = j.class_id
	JOIN subjects s ON s.id = j.subject_id`

func (repo schoolRepository) CreateJournal(ctx context.Context, journal school.Journal) (school.Journal, error) {
	journal.ID = uuid.New().String()
	ts := now()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`
		INSERT INTO daily_journals
			(id, author_id, date, class_id, subject_id, material, method, students_present, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		journal.ID, journal.AuthorID, journal.Date, journal.ClassID, journal.SubjectID, journal.Material, journal.Method,
		journal.StudentsPresent, null.NewString(journal.Notes, journal.Notes != ""), ts, ts)
	if err != nil {
		return school.Journal{}, trapErr(err, "inserting journal")
	}
	return journal, nil
}

func (repo schoolRepository) QueryJournals(ctx context.Context, filter *school.JournalFilter, ordering []core.DBOrdering) ([]school.Journal, error) {
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.AuthorID != "" {
			conds = append(conds, "j.author_id = ?")
			args = append(args, filter.AuthorID)
		}
		if filter.ClassID != "" {
			conds = append(conds, "j.class_id = ?")
			args = append(args, filter.ClassID)
		}
		if filter.SubjectID != "" {
			conds = append(conds, "j.subject_id = ?")
			args = append(args, filter.SubjectID)
		}
		if filter.From != "" {
			conds = append(conds, "j.date >= ?")
			args = append(args, filter.From)
		}
		if filter.To != "" {
			conds = append(conds, "j.date <= ?")
			args = append(args, filter.To)
		}
	}
	query := selectJournals + whereClause(conds) +
		" ORDER BY " + core.OrderBy(ordering, journalOrderFields, "j.date DESC, c.name ASC")

	var rows []journalRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting journals")
	}
	journals := make([]school.Journal, 0, len(rows))
	for _, r := range rows {
		journals = append(journals, r.unboil())
	}
	return journals, nil
}

func (repo schoolRepository) GetJournal(ctx context.Context, id string) (school.Journal, error) {
	var row journalRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(selectJournals+" WHERE j.id = ?"), id); err != nil {
		return school.Journal{}, trapErr(err, "journal")
	}
	return row.unboil(), nil
}

func (repo schoolRepository) UpdateJournal(ctx context.Context, journal school.Journal) (school.Journal, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`
		UPDATE daily_journals
		SET date = ?, class_id = ?, subject_id = ?, material = ?, method = ?, students_present = ?, notes = ?, updated_at = ?
		WHERE id = ?`),
		journal.Date, journal.ClassID, journal.SubjectID, journal.Material, journal.Method, journal.StudentsPresent,
		null.NewString(journal.Notes, journal.Notes != ""), now(), journal.ID)
	if err != nil {
		return school.Journal{}, trapErr(err, "updating journal")
	}
	if err = checkAffected(res, "journal"); err != nil {
		return school.Journal{}, err
	}
	return journal, nil
}

func (repo schoolRepository) DeleteJournal(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM daily_journals WHERE id = ?"), id)
	if err != nil {
		return trapErr(err, "deleting journal")
	}
	return checkAffected(res, "journal")
}
