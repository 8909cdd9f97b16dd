package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/school"
	logsvc "github.com/trezcool/rapor/services/logger"
	"github.com/trezcool/rapor/storage/database"
	sqlxrepos "github.com/trezcool/rapor/storage/database/sqlx"
)

// NewConfig returns the configuration used by tests: a sqlite database at dbPath.
func NewConfig(dbPath string) *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		AppName:          "Rapor",
		SecretKey:        "test-secret",
		Locale:           "id",
		DefaultFromEmail: "Rapor <noreply@sekolah.id>",
		Server:           core.ServerConfig{DisableReqLogs: true},
		Database:         core.DatabaseConfig{Engine: database.EngineSQLite, Name: dbPath},
		Grading:          core.GradingConfig{Mode: "zero_fill"},
	}
}

// NewLogger returns a disabled rollbar logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens a fresh, migrated sqlite database in t's temp dir. It is closed on cleanup.
func PrepareDB(t *testing.T) (*sql.DB, *core.Config) {
	t.Helper()

	conf := NewConfig(filepath.Join(t.TempDir(), "test.db"))
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, database.Dialect(conf)); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db, conf
}

// NewSchoolRepository returns the sqlx school repository on a fresh test database.
func NewSchoolRepository(t *testing.T) (school.Repository, *core.Config) {
	t.Helper()
	db, conf := PrepareDB(t)
	return sqlxrepos.NewSchoolRepository(db, database.Dialect(conf)), conf
}

// Fixtures

func CreateClass(t *testing.T, repo school.Repository, name string) school.Class {
	t.Helper()
	class, err := repo.CreateClass(context.Background(), school.Class{Name: name, IsActive: true})
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return class
}

func CreateSubject(t *testing.T, repo school.Repository, name string) school.Subject {
	t.Helper()
	subject, err := repo.CreateSubject(context.Background(), school.Subject{Name: name})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return subject
}

// CreateCategory creates a category and, when pct >= 0, its weight.
func CreateCategory(t *testing.T, repo school.Repository, name string, pct int) school.Category {
	t.Helper()
	ctx := context.Background()
	category, err := repo.CreateCategory(ctx, school.Category{Name: name})
	if err != nil {
		t.Fatalf("CreateCategory(): %v", err)
	}
	if pct >= 0 {
		if _, err = repo.SetWeight(ctx, school.Weight{CategoryID: category.ID, CategoryName: name, Percentage: pct}); err != nil {
			t.Fatalf("CreateCategory(): %v", err)
		}
	}
	return category
}

func CreateStudent(t *testing.T, repo school.Repository, classID, name, nis string) school.Student {
	t.Helper()
	students, err := repo.CreateStudents(context.Background(), school.Student{Name: name, NIS: nis, ClassID: classID})
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return students[0]
}

func RecordScores(t *testing.T, repo school.Repository, studentID, subjectID, categoryID string, values ...float64) {
	t.Helper()
	scores := make([]school.Score, 0, len(values))
	for i, v := range values {
		scores = append(scores, school.Score{
			StudentID:  studentID,
			SubjectID:  subjectID,
			CategoryID: categoryID,
			Assessment: "UH" + string(rune('1'+i)),
			Value:      v,
		})
	}
	if _, err := repo.UpsertScores(context.Background(), scores...); err != nil {
		t.Fatalf("RecordScores(): %v", err)
	}
}
