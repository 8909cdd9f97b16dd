package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/rapor/apps/api/echo"
	"github.com/trezcool/rapor/core/attendance"
	"github.com/trezcool/rapor/core/grading"
	"github.com/trezcool/rapor/core/report"
	"github.com/trezcool/rapor/core/school"
	"github.com/trezcool/rapor/tests"
)

type recapFixture struct {
	class   school.Class
	subject school.Subject
	ani     school.Student
	budi    school.Student
}

func seedRecaps(t *testing.T, repo school.Repository) recapFixture {
	f := recapFixture{
		class:   testutil.CreateClass(t, repo, "7A"),
		subject: testutil.CreateSubject(t, repo, "Matematika"),
	}
	tugas := testutil.CreateCategory(t, repo, "Tugas", 25)
	ulangan := testutil.CreateCategory(t, repo, "Ulangan", 35)
	uts := testutil.CreateCategory(t, repo, "UTS", 20)
	uas := testutil.CreateCategory(t, repo, "UAS", 20)
	f.ani = testutil.CreateStudent(t, repo, f.class.ID, "Ani", "1001")
	f.budi = testutil.CreateStudent(t, repo, f.class.ID, "Budi", "1002")

	testutil.RecordScores(t, repo, f.ani.ID, f.subject.ID, tugas.ID, 85, 90)
	testutil.RecordScores(t, repo, f.ani.ID, f.subject.ID, ulangan.ID, 78)
	for _, cat := range []school.Category{tugas, ulangan, uts, uas} {
		testutil.RecordScores(t, repo, f.budi.ID, f.subject.ID, cat.ID, 100)
	}

	_, err := repo.UpsertAttendance(context.Background(),
		school.AttendanceRecord{StudentID: f.ani.ID, Date: "2024-07-01", Status: attendance.Present},
		school.AttendanceRecord{StudentID: f.ani.ID, Date: "2024-07-02", Status: attendance.Present},
		school.AttendanceRecord{StudentID: f.budi.ID, Date: "2024-07-01", Status: attendance.Sick},
		school.AttendanceRecord{StudentID: f.budi.ID, Date: "2024-07-02", Status: attendance.Present},
	)
	require.NoError(t, err)
	return f
}

func TestRecapsAPI_grades(t *testing.T) {
	e := setup(t)
	f := seedRecaps(t, e.repo)
	base := "/v1/recaps/grades?class_id=" + f.class.ID + "&subject_id=" + f.subject.ID

	tests := []struct {
		name       string
		query      string
		wantMode   grading.Mode
		wantAni    float64
		wantLetter grading.Letter
	}{
		{name: "default mode", wantMode: grading.ZeroFill, wantAni: 49.2, wantLetter: grading.LetterE},
		{name: "renormalize", query: "&mode=renormalize", wantMode: grading.Renormalize, wantAni: 82, wantLetter: grading.LetterB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodGet, base+tt.query, e.teacher)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var recap school.GradeRecap
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recap))
			assert.Equal(t, tt.wantMode, recap.Mode)
			require.Len(t, recap.Results, 2)
			assert.Equal(t, "Ani", recap.Results[0].Name)
			assert.Equal(t, tt.wantAni, recap.Results[0].FinalScore)
			assert.Equal(t, tt.wantLetter, recap.Results[0].Letter)
			assert.Equal(t, 2, recap.Summary.Students)
			assert.True(t, recap.WeightCheck.Balanced)
		})
	}

	e.run(t, []httpTest{
		{
			name:     "missing params",
			method:   http.MethodGet,
			path:     "/v1/recaps/grades",
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"class_id":   "this field is required",
				"subject_id": "this field is required",
			}),
		},
		{
			name:     "unknown mode",
			method:   http.MethodGet,
			path:     base + "&mode=best_of",
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown subject",
			method:   http.MethodGet,
			path:     "/v1/recaps/grades?class_id=" + f.class.ID + "&subject_id=missing",
			token:    e.teacher,
			wantCode: http.StatusNotFound,
		},
		{name: "requires auth", method: http.MethodGet, path: base, wantCode: http.StatusUnauthorized},
	})
}

func TestRecapsAPI_gradesExport(t *testing.T) {
	e := setup(t)
	f := seedRecaps(t, e.repo)

	rec := e.do(http.MethodGet, "/v1/recaps/grades/export?class_id="+f.class.ID+"&subject_id="+f.subject.ID, e.teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rekap-nilai_7a_matematika.xlsx"`, rec.Header().Get("Content-Disposition"))

	xl, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer xl.Close()
	name, err := xl.GetCellValue(report.GradeSheet, "C8")
	require.NoError(t, err)
	assert.Equal(t, "Ani", name)
}

func TestRecapsAPI_gradesEmail(t *testing.T) {
	e := setup(t)
	f := seedRecaps(t, e.repo)

	e.run(t, []httpTest{
		{
			name:     "no recipients",
			method:   http.MethodPost,
			path:     "/v1/recaps/grades/email",
			body:     []byte(`{"class_id": "` + f.class.ID + `", "subject_id": "` + f.subject.ID + `", "recipients": []}`),
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad recipient",
			method:   http.MethodPost,
			path:     "/v1/recaps/grades/email",
			body:     []byte(`{"class_id": "` + f.class.ID + `", "subject_id": "` + f.subject.ID + `", "recipients": ["wali kelas"]}`),
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
		},
	})
	assert.Empty(t, e.mailSvc.SentMessages())

	e.run(t, []httpTest{
		{
			name:     "sent",
			method:   http.MethodPost,
			path:     "/v1/recaps/grades/email",
			body:     []byte(`{"class_id": "` + f.class.ID + `", "subject_id": "` + f.subject.ID + `", "recipients": ["wali@sekolah.id", "kepsek@sekolah.id"]}`),
			token:    e.teacher,
			wantCode: http.StatusAccepted,
			wantData: marchallObj(t, map[string]string{"success": "grade recap sent to 2 recipient(s)"}),
		},
	})

	sent := e.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Rekap Nilai 7A - Matematika", sent[0].Subject)
	require.Len(t, sent[0].To, 2)
	assert.Equal(t, "kepsek@sekolah.id", sent[0].To[1].Address)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "rekap-nilai_7a_matematika.xlsx", sent[0].Attachments[0].Filename)
}

func TestRecapsAPI_attendance(t *testing.T) {
	e := setup(t)
	f := seedRecaps(t, e.repo)
	base := "/v1/recaps/attendance?class_id=" + f.class.ID

	rec := e.do(http.MethodGet, base+"&from=2024-07-01&to=2024-07-31", e.teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recap school.AttendanceRecap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recap))
	require.Len(t, recap.Rows, 2)
	assert.Equal(t, 100, recap.Rows[0].Percentage)
	assert.Equal(t, attendance.Excellent, recap.Rows[0].Category)
	assert.Equal(t, 50, recap.Rows[1].Percentage)
	assert.Equal(t, attendance.ClassSummary{
		TotalStudents:     2,
		AverageAttendance: 75,
		TotalDays:         2,
		RangeDays:         31,
	}, recap.Summary)

	e.run(t, []httpTest{
		{
			name:     "bad date",
			method:   http.MethodGet,
			path:     base + "&from=01-07-2024&to=2024-07-31",
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"from": "date must be in the YYYY-MM-DD format"}),
		},
		{
			name:     "from after to",
			method:   http.MethodGet,
			path:     base + "&from=2024-07-31&to=2024-07-01",
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"to": "must not be before from"}),
		},
		{
			name:     "unknown class",
			method:   http.MethodGet,
			path:     "/v1/recaps/attendance?class_id=missing&from=2024-07-01&to=2024-07-31",
			token:    e.teacher,
			wantCode: http.StatusNotFound,
		},
	})
}

func TestRecapsAPI_attendanceExportAndEmail(t *testing.T) {
	e := setup(t)
	f := seedRecaps(t, e.repo)
	query := "class_id=" + f.class.ID + "&from=2024-07-01&to=2024-07-31"

	rec := e.do(http.MethodGet, "/v1/recaps/attendance/export?"+query, e.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rekap-kehadiran_7a_2024-07-01_2024-07-31.xlsx"`, rec.Header().Get("Content-Disposition"))

	e.run(t, []httpTest{
		{
			name:     "missing recipients",
			method:   http.MethodPost,
			path:     "/v1/recaps/attendance/email",
			body:     []byte(`{"class_id": "` + f.class.ID + `", "from": "2024-07-01", "to": "2024-07-31"}`),
			token:    e.teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"recipients": "this field is required"}),
		},
		{
			name:     "sent",
			method:   http.MethodPost,
			path:     "/v1/recaps/attendance/email",
			body:     []byte(`{"class_id": "` + f.class.ID + `", "from": "2024-07-01", "to": "2024-07-31", "recipients": ["wali@sekolah.id"]}`),
			token:    e.teacher,
			wantCode: http.StatusAccepted,
			wantData: marchallObj(t, SuccessResponse{Success: "attendance recap sent to 1 recipient(s)"}),
		},
	})

	sent := e.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Rekap Kehadiran 7A (2024-07-01 s/d 2024-07-31)", sent[0].Subject)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, report.ContentType, sent[0].Attachments[0].ContentType)
}
