// Package report renders recaps as xlsx workbooks, reads student import sheets and mails reports.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/trezcool/rapor/core/grading"
	"github.com/trezcool/rapor/core/school"
)

const (
	GradeSheet      = "Nilai"
	AttendanceSheet = "Kehadiran"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Kind string

const (
	KindGrades     Kind = "rekap-nilai"
	KindAttendance Kind = "rekap-kehadiran"
)

// sheetWriter appends rows to a sheet, keeping the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func newSheetWriter(sheet string) *sheetWriter {
	f := excelize.NewFile()
	sw := &sheetWriter{f: f, sheet: sheet}
	sw.err = f.SetSheetName(f.GetSheetName(0), sheet)
	return sw
}

func (sw *sheetWriter) append(values ...interface{}) {
	sw.row++
	if sw.err != nil || len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetSheetRow(sw.sheet, cell, &values)
}

// bold styles the first cols cells of the last appended row.
func (sw *sheetWriter) bold(cols int) {
	if sw.err != nil || cols < 1 {
		return
	}
	style, err := sw.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		sw.err = err
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, sw.row)
	last, _ := excelize.CoordinatesToCellName(cols, sw.row)
	sw.err = sw.f.SetCellStyle(sw.sheet, first, last, style)
}

func (sw *sheetWriter) widths(widths ...float64) {
	for i, w := range widths {
		if sw.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetColWidth(sw.sheet, col, col, w)
	}
}

func (sw *sheetWriter) file() (*excelize.File, error) {
	if sw.err != nil {
		_ = sw.f.Close()
		return nil, errors.Wrapf(sw.err, "writing sheet %s", sw.sheet)
	}
	return sw.f, nil
}

// GradeWorkbook renders a grade recap on the "Nilai" sheet.
func GradeWorkbook(recap school.GradeRecap) (*excelize.File, error) {
	sw := newSheetWriter(GradeSheet)

	weights := make(map[string]int, len(recap.Weights))
	for _, w := range recap.Weights {
		weights[w.Category] = w.Percentage
	}
	balance := fmt.Sprintf("%d%%", recap.WeightCheck.Total)
	if !recap.WeightCheck.Balanced {
		balance += " (tidak 100%)"
	}

	sw.append("Rekap Nilai")
	sw.bold(1)
	sw.append("Kelas", recap.Class.Name)
	sw.append("Mata Pelajaran", recap.Subject.Name)
	sw.append("Mode", modeLabel(recap.Mode))
	sw.append("Total Bobot", balance)
	sw.append()

	header := []interface{}{"No", "NIS", "Nama"}
	for _, cat := range recap.Categories {
		if pct, ok := weights[cat]; ok {
			header = append(header, fmt.Sprintf("%s (%d%%)", cat, pct))
		} else {
			header = append(header, cat+" (tanpa bobot)")
		}
	}
	header = append(header, "Nilai Akhir", "Huruf")
	sw.append(header...)
	sw.bold(len(header))

	for i, res := range recap.Results {
		row := []interface{}{i + 1, res.NIS, res.Name}
		for _, cat := range recap.Categories {
			if avg, ok := res.CategoryAverages[cat]; ok {
				row = append(row, avg)
			} else {
				row = append(row, "")
			}
		}
		row = append(row, res.FinalScore, string(res.Letter))
		sw.append(row...)
	}

	sw.append()
	if recap.Summary.NoData {
		sw.append("Tidak ada data")
	} else {
		sw.append("Jumlah Siswa", recap.Summary.Students)
		sw.append("Rata-rata Kelas", recap.Summary.Average)
		sw.append("Nilai Tertinggi", recap.Summary.Highest)
		sw.append("Nilai Terendah", recap.Summary.Lowest)
	}

	sw.widths(6, 14, 30)
	return sw.file()
}

// AttendanceWorkbook renders an attendance recap on the "Kehadiran" sheet.
func AttendanceWorkbook(recap school.AttendanceRecap) (*excelize.File, error) {
	sw := newSheetWriter(AttendanceSheet)

	sw.append("Rekap Kehadiran")
	sw.bold(1)
	sw.append("Kelas", recap.Class.Name)
	sw.append("Periode", recap.From+" s/d "+recap.To)
	sw.append("Hari Tercatat", recap.Summary.TotalDays)
	sw.append("Hari Kalender", recap.Summary.RangeDays)
	sw.append()

	header := []interface{}{"No", "NIS", "Nama", "Hadir", "Sakit", "Izin", "Alfa", "Terlambat", "Total", "Persentase", "Kategori"}
	sw.append(header...)
	sw.bold(len(header))

	for i, row := range recap.Rows {
		sw.append(i+1, row.NIS, row.Name,
			row.Present, row.Sick, row.Excused, row.Absent, row.Late,
			row.Total, row.Percentage, string(row.Category))
	}

	sw.append()
	if recap.Summary.NoData {
		sw.append("Tidak ada data")
	} else {
		sw.append("Jumlah Siswa", recap.Summary.TotalStudents)
		sw.append("Rata-rata Kehadiran", recap.Summary.AverageAttendance)
	}

	sw.widths(6, 14, 30)
	return sw.file()
}

// Write writes f as xlsx to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	return errors.Wrap(f.Write(w), "writing workbook")
}

// Filename builds an ascii xlsx file name like "rekap-nilai_7a_matematika.xlsx".
func Filename(kind Kind, parts ...string) string {
	segments := []string{string(kind)}
	for _, p := range parts {
		if s := slug(p); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "_") + ".xlsx"
}

func slug(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func modeLabel(mode grading.Mode) string {
	if mode == grading.Renormalize {
		return "Renormalisasi bobot"
	}
	return "Kategori kosong dihitung 0"
}
