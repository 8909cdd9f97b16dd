package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/attendance"
	"github.com/trezcool/rapor/core/school"
	"github.com/trezcool/rapor/tests"
)

func TestSchoolRepository_Classes(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	c7a := testutil.CreateClass(t, repo, "7A")
	c7b := testutil.CreateClass(t, repo, "7B")
	inactive, err := repo.CreateClass(ctx, school.Class{Name: "Alumni 2020", IsActive: false})
	require.NoError(t, err)

	_, err = repo.CreateClass(ctx, school.Class{Name: "7A"})
	assert.Equal(t, school.ErrDuplicate, errors.Cause(err))

	got, err := repo.GetClass(ctx, c7a.ID)
	require.NoError(t, err)
	assert.Equal(t, c7a, got)

	_, err = repo.GetClass(ctx, "missing")
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	bPtr := func(b bool) *bool { return &b }
	tests := []struct {
		name     string
		filter   *school.ClassFilter
		ordering []core.DBOrdering
		want     []school.Class
	}{
		{name: "all by name", want: []school.Class{c7a, c7b, inactive}},
		{name: "descending", ordering: []core.DBOrdering{{Field: "name"}}, want: []school.Class{inactive, c7b, c7a}},
		{name: "search", filter: &school.ClassFilter{Search: "7"}, want: []school.Class{c7a, c7b}},
		{name: "search case-insensitive", filter: &school.ClassFilter{Search: "alumni"}, want: []school.Class{inactive}},
		{name: "inactive", filter: &school.ClassFilter{IsActive: bPtr(false)}, want: []school.Class{inactive}},
		{name: "unknown ordering ignored", ordering: []core.DBOrdering{{Field: "id; DROP TABLE classes"}}, want: []school.Class{c7a, c7b, inactive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classes, err := repo.QueryClasses(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, classes)
		})
	}

	c7b.Name = "7C"
	c7b.IsActive = false
	updated, err := repo.UpdateClass(ctx, c7b)
	require.NoError(t, err)
	assert.Equal(t, c7b, updated)

	_, err = repo.UpdateClass(ctx, school.Class{ID: "missing", Name: "X"})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	require.NoError(t, repo.DeleteClass(ctx, c7b.ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(repo.DeleteClass(ctx, c7b.ID)))
}

func TestSchoolRepository_SubjectsAndCategories(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	math := testutil.CreateSubject(t, repo, "Matematika")
	ipa := testutil.CreateSubject(t, repo, "IPA")
	subjects, err := repo.QuerySubjects(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []school.Subject{ipa, math}, subjects)

	_, err = repo.CreateSubject(ctx, school.Subject{Name: "IPA"})
	assert.Equal(t, school.ErrDuplicate, errors.Cause(err))

	tugas, err := repo.CreateCategory(ctx, school.Category{Name: "Tugas", Description: "Tugas harian"})
	require.NoError(t, err)
	uas, err := repo.CreateCategory(ctx, school.Category{Name: "UAS"})
	require.NoError(t, err)

	got, err := repo.GetCategory(ctx, tugas.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tugas harian", got.Description)

	categories, err := repo.QueryCategories(ctx, []core.DBOrdering{{Field: "name", Ascending: false}})
	require.NoError(t, err)
	assert.Equal(t, []school.Category{uas, tugas}, categories)

	require.NoError(t, repo.DeleteSubject(ctx, ipa.ID))
	_, err = repo.GetSubject(ctx, ipa.ID)
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
}

func TestSchoolRepository_Weights(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	uts := testutil.CreateCategory(t, repo, "UTS", 20)
	tugas := testutil.CreateCategory(t, repo, "Tugas", 25)
	testutil.CreateCategory(t, repo, "Praktik", -1)

	weights, err := repo.QueryWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, []school.Weight{
		{CategoryID: tugas.ID, CategoryName: "Tugas", Percentage: 25},
		{CategoryID: uts.ID, CategoryName: "UTS", Percentage: 20},
	}, weights)

	// upsert
	_, err = repo.SetWeight(ctx, school.Weight{CategoryID: tugas.ID, Percentage: 40})
	require.NoError(t, err)
	weights, err = repo.QueryWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, weights[0].Percentage)

	_, err = repo.SetWeight(ctx, school.Weight{CategoryID: "missing", Percentage: 10})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	require.NoError(t, repo.DeleteWeight(ctx, uts.ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(repo.DeleteWeight(ctx, uts.ID)))

	// deleting a category drops its weight
	require.NoError(t, repo.DeleteCategory(ctx, tugas.ID))
	weights, err = repo.QueryWeights(ctx)
	require.NoError(t, err)
	assert.Empty(t, weights)
}

func TestSchoolRepository_Students(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	c7a := testutil.CreateClass(t, repo, "7A")
	c7b := testutil.CreateClass(t, repo, "7B")
	ani := testutil.CreateStudent(t, repo, c7a.ID, "Ani", "1001")
	budi := testutil.CreateStudent(t, repo, c7a.ID, "Budi", "1002")
	citra := testutil.CreateStudent(t, repo, c7b.ID, "Citra", "2001")
	dodi := testutil.CreateStudent(t, repo, "", "Dodi", "")

	assert.Equal(t, "", dodi.NIS)
	assert.Equal(t, "", dodi.ClassID)

	// NIS is unique, and a failing batch creates nothing
	_, err := repo.CreateStudents(ctx,
		school.Student{Name: "Eka", NIS: "3001", ClassID: c7b.ID},
		school.Student{Name: "Fajar", NIS: "1001", ClassID: c7b.ID},
	)
	assert.Equal(t, school.ErrDuplicate, errors.Cause(err))

	// empty NIS is stored as NULL, not as a duplicate ""
	_, err = repo.CreateStudents(ctx, school.Student{Name: "Gita"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		filter   *school.StudentFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "by class", filter: &school.StudentFilter{ClassID: c7a.ID}, want: []string{"Ani", "Budi"}},
		{name: "search name", filter: &school.StudentFilter{Search: "CIT"}, want: []string{"Citra"}},
		{name: "search nis", filter: &school.StudentFilter{Search: "100"}, want: []string{"Ani", "Budi"}},
		{name: "ids", filter: &school.StudentFilter{IDs: []string{citra.ID, ani.ID}}, want: []string{"Ani", "Citra"}},
		{name: "class and ids", filter: &school.StudentFilter{ClassID: c7a.ID, IDs: []string{citra.ID, budi.ID}}, want: []string{"Budi"}},
		{name: "by nis desc", filter: &school.StudentFilter{ClassID: c7a.ID}, ordering: []core.DBOrdering{{Field: "nis"}}, want: []string{"Budi", "Ani"}},
		{name: "all", want: []string{"Ani", "Budi", "Citra", "Dodi", "Gita"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(students))
			for _, s := range students {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	budi.ClassID = c7b.ID
	budi.NIS = ""
	updated, err := repo.UpdateStudent(ctx, budi)
	require.NoError(t, err)
	assert.Equal(t, budi, updated)
	got, err := repo.GetStudent(ctx, budi.ID)
	require.NoError(t, err)
	assert.Equal(t, budi, got)

	// deleting a class detaches its students
	require.NoError(t, repo.DeleteClass(ctx, c7a.ID))
	got, err = repo.GetStudent(ctx, ani.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.ClassID)

	require.NoError(t, repo.DeleteStudents(ctx, ani.ID, citra.ID))
	require.NoError(t, repo.DeleteStudents(ctx))
	_, err = repo.GetStudent(ctx, ani.ID)
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
}

func TestSchoolRepository_Scores(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	c7a := testutil.CreateClass(t, repo, "7A")
	c7b := testutil.CreateClass(t, repo, "7B")
	ani := testutil.CreateStudent(t, repo, c7a.ID, "Ani", "1001")
	citra := testutil.CreateStudent(t, repo, c7b.ID, "Citra", "2001")
	math := testutil.CreateSubject(t, repo, "Matematika")
	tugas := testutil.CreateCategory(t, repo, "Tugas", 100)

	saved, err := repo.UpsertScores(ctx,
		school.Score{StudentID: ani.ID, SubjectID: math.ID, CategoryID: tugas.ID, Assessment: "UH1", Value: 80},
		school.Score{StudentID: citra.ID, SubjectID: math.ID, CategoryID: tugas.ID, Assessment: "UH1", Value: 70},
	)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.NotEmpty(t, saved[0].ID)

	// same key updates in place and keeps the id
	again, err := repo.UpsertScores(ctx,
		school.Score{StudentID: ani.ID, SubjectID: math.ID, CategoryID: tugas.ID, Assessment: "UH1", Value: 95.5},
	)
	require.NoError(t, err)
	assert.Equal(t, saved[0].ID, again[0].ID)

	scores, err := repo.QueryScores(ctx, school.ScoreFilter{ClassID: c7a.ID, SubjectID: math.ID})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 95.5, scores[0].Value)

	scores, err = repo.QueryScores(ctx, school.ScoreFilter{CategoryID: tugas.ID})
	require.NoError(t, err)
	assert.Len(t, scores, 2)

	// unknown student: nothing written
	_, err = repo.UpsertScores(ctx,
		school.Score{StudentID: ani.ID, SubjectID: math.ID, CategoryID: tugas.ID, Assessment: "UH2", Value: 60},
		school.Score{StudentID: "missing", SubjectID: math.ID, CategoryID: tugas.ID, Assessment: "UH2", Value: 60},
	)
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
	scores, err = repo.QueryScores(ctx, school.ScoreFilter{StudentID: ani.ID})
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	require.NoError(t, repo.DeleteScore(ctx, saved[1].ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(repo.DeleteScore(ctx, saved[1].ID)))
}

func TestSchoolRepository_Attendance(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	c7a := testutil.CreateClass(t, repo, "7A")
	c7b := testutil.CreateClass(t, repo, "7B")
	ani := testutil.CreateStudent(t, repo, c7a.ID, "Ani", "1001")
	budi := testutil.CreateStudent(t, repo, c7a.ID, "Budi", "1002")
	citra := testutil.CreateStudent(t, repo, c7b.ID, "Citra", "2001")

	saved, err := repo.UpsertAttendance(ctx,
		school.AttendanceRecord{StudentID: ani.ID, Date: "2024-07-01", Status: attendance.Present},
		school.AttendanceRecord{StudentID: budi.ID, Date: "2024-07-01", Status: attendance.Sick},
		school.AttendanceRecord{StudentID: ani.ID, Date: "2024-07-02", Status: attendance.Late},
		school.AttendanceRecord{StudentID: citra.ID, Date: "2024-07-02", Status: attendance.Absent},
		school.AttendanceRecord{StudentID: ani.ID, Date: "2024-08-01", Status: attendance.Present},
	)
	require.NoError(t, err)
	require.Len(t, saved, 5)

	// one record per student and date
	again, err := repo.UpsertAttendance(ctx, school.AttendanceRecord{StudentID: budi.ID, Date: "2024-07-01", Status: attendance.Excused})
	require.NoError(t, err)
	assert.Equal(t, saved[1].ID, again[0].ID)

	records, err := repo.QueryAttendance(ctx, school.AttendanceFilter{ClassID: c7a.ID, From: "2024-07-01", To: "2024-07-31"})
	require.NoError(t, err)
	assert.Equal(t, []school.AttendanceRecord{
		{ID: saved[0].ID, StudentID: ani.ID, Date: "2024-07-01", Status: attendance.Present},
		{ID: saved[1].ID, StudentID: budi.ID, Date: "2024-07-01", Status: attendance.Excused},
		{ID: saved[2].ID, StudentID: ani.ID, Date: "2024-07-02", Status: attendance.Late},
	}, records)

	records, err = repo.QueryAttendance(ctx, school.AttendanceFilter{StudentID: ani.ID, From: "2024-07-02"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// the status check constraint guards the stored values
	_, err = repo.UpsertAttendance(ctx, school.AttendanceRecord{StudentID: ani.ID, Date: "2024-07-03", Status: "bolos"})
	assert.Error(t, err)
}

func TestSchoolRepository_Journals(t *testing.T) {
	repo, _ := testutil.NewSchoolRepository(t)
	ctx := context.Background()

	c7a := testutil.CreateClass(t, repo, "7A")
	c7b := testutil.CreateClass(t, repo, "7B")
	math := testutil.CreateSubject(t, repo, "Matematika")
	ipa := testutil.CreateSubject(t, repo, "IPA")

	create := func(author, date string, class school.Class, subject school.Subject) school.Journal {
		t.Helper()
		journal, err := repo.CreateJournal(ctx, school.Journal{
			AuthorID:        author,
			Date:            date,
			ClassID:         class.ID,
			ClassName:       class.Name,
			SubjectID:       subject.ID,
			SubjectName:     subject.Name,
			Material:        "Materi " + date,
			Method:          "ceramah",
			StudentsPresent: 30,
		})
		require.NoError(t, err)
		return journal
	}
	j1 := create("guru-1", "2024-07-01", c7a, math)
	j2 := create("guru-1", "2024-07-02", c7b, ipa)
	j3 := create("guru-2", "2024-07-02", c7a, math)

	_, err := repo.CreateJournal(ctx, school.Journal{AuthorID: "guru-1", Date: "2024-07-03", ClassID: "missing", SubjectID: math.ID, Material: "x", Method: "ceramah"})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	got, err := repo.GetJournal(ctx, j1.ID)
	require.NoError(t, err)
	assert.Equal(t, j1, got)

	_, err = repo.GetJournal(ctx, "missing")
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	tests := []struct {
		name     string
		filter   *school.JournalFilter
		ordering []core.DBOrdering
		want     []school.Journal
	}{
		{name: "newest first, then class", want: []school.Journal{j3, j2, j1}},
		{name: "author", filter: &school.JournalFilter{AuthorID: "guru-1"}, want: []school.Journal{j2, j1}},
		{name: "class", filter: &school.JournalFilter{ClassID: c7a.ID}, want: []school.Journal{j3, j1}},
		{name: "subject", filter: &school.JournalFilter{SubjectID: ipa.ID}, want: []school.Journal{j2}},
		{name: "from", filter: &school.JournalFilter{From: "2024-07-02"}, want: []school.Journal{j3, j2}},
		{name: "to", filter: &school.JournalFilter{To: "2024-07-01"}, want: []school.Journal{j1}},
		{name: "by subject name", ordering: []core.DBOrdering{{Field: "subject", Ascending: true}, {Field: "date", Ascending: true}}, want: []school.Journal{j2, j1, j3}},
		{name: "unknown ordering ignored", ordering: []core.DBOrdering{{Field: "notes"}}, want: []school.Journal{j3, j2, j1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journals, err := repo.QueryJournals(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, journals)
		})
	}

	j1.Notes = "Ulangan minggu depan"
	j1.StudentsPresent = 29
	updated, err := repo.UpdateJournal(ctx, j1)
	require.NoError(t, err)
	assert.Equal(t, j1, updated)
	got, err = repo.GetJournal(ctx, j1.ID)
	require.NoError(t, err)
	assert.Equal(t, j1, got)

	_, err = repo.UpdateJournal(ctx, school.Journal{ID: "missing", Date: "2024-07-01", ClassID: c7a.ID, SubjectID: math.ID})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	// deleting a class deletes its journals
	require.NoError(t, repo.DeleteClass(ctx, c7b.ID))
	_, err = repo.GetJournal(ctx, j2.ID)
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	require.NoError(t, repo.DeleteJournal(ctx, j3.ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(repo.DeleteJournal(ctx, j3.ID)))
}
