package report

import (
	"bytes"
	"fmt"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/rapor/core"
	"github.com/trezcool/rapor/core/school"
)

const mailTemplate = "report"

// MailData is the data of the "report" email template.
type MailData struct {
	Title     string
	ClassName string
	Period    string
	Lines     []string
	Filename  string
}

// Mail builds a report email with f attached as filename. f is closed.
func Mail(f *excelize.File, filename, subject string, data MailData, to ...mail.Address) (*core.EmailMessage, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return nil, err
	}

	data.Filename = filename
	msg := &core.EmailMessage{
		To:           to,
		Subject:      subject,
		TemplateName: mailTemplate,
		TemplateData: data,
	}
	if err := msg.Attach(&buf, filename, ContentType); err != nil {
		return nil, errors.Wrap(err, "attaching workbook")
	}
	return msg, nil
}

// GradeMail mails the workbook of a grade recap.
func GradeMail(recap school.GradeRecap, to ...mail.Address) (*core.EmailMessage, error) {
	f, err := GradeWorkbook(recap)
	if err != nil {
		return nil, err
	}

	lines := []string{"Mata pelajaran: " + recap.Subject.Name}
	if recap.Summary.NoData {
		lines = append(lines, "Belum ada data nilai")
	} else {
		lines = append(lines,
			fmt.Sprintf("Jumlah siswa: %d", recap.Summary.Students),
			"Rata-rata kelas: "+formatScore(recap.Summary.Average),
			"Nilai tertinggi: "+formatScore(recap.Summary.Highest),
			"Nilai terendah: "+formatScore(recap.Summary.Lowest),
		)
	}

	filename := Filename(KindGrades, recap.Class.Name, recap.Subject.Name)
	return Mail(f, filename, fmt.Sprintf("Rekap Nilai %s - %s", recap.Class.Name, recap.Subject.Name), MailData{
		Title:     "rekap nilai",
		ClassName: recap.Class.Name,
		Lines:     lines,
	}, to...)
}

// AttendanceMail mails the workbook of an attendance recap.
func AttendanceMail(recap school.AttendanceRecap, to ...mail.Address) (*core.EmailMessage, error) {
	f, err := AttendanceWorkbook(recap)
	if err != nil {
		return nil, err
	}

	var lines []string
	if recap.Summary.NoData {
		lines = []string{"Belum ada data kehadiran"}
	} else {
		lines = []string{
			fmt.Sprintf("Jumlah siswa: %d", recap.Summary.TotalStudents),
			fmt.Sprintf("Hari tercatat: %d dari %d hari", recap.Summary.TotalDays, recap.Summary.RangeDays),
			"Rata-rata kehadiran: " + formatScore(recap.Summary.AverageAttendance) + "%",
		}
	}

	period := recap.From + " s/d " + recap.To
	filename := Filename(KindAttendance, recap.Class.Name, recap.From, recap.To)
	return Mail(f, filename, fmt.Sprintf("Rekap Kehadiran %s (%s)", recap.Class.Name, period), MailData{
		Title:     "rekap kehadiran",
		ClassName: recap.Class.Name,
		Period:    period,
		Lines:     lines,
	}, to...)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
