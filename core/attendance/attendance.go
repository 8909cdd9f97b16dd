// Package attendance turns daily attendance records into per-student summary rows and class rollups.
package attendance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// Status is the stored value of a daily attendance record.
type Status string

const (
	Present Status = "hadir"
	Sick    Status = "sakit"
	Excused Status = "izin"
	Absent  Status = "alfa"
	Late    Status = "terlambat"
)

// DefaultStatus is given to students left out of an attendance sheet.
const DefaultStatus = Present

var Statuses = []Status{Present, Sick, Excused, Absent, Late}

var statusAliases = map[string]Status{
	"hadir":     Present,
	"present":   Present,
	"sakit":     Sick,
	"sick":      Sick,
	"izin":      Excused,
	"excused":   Excused,
	"alfa":      Absent,
	"absent":    Absent,
	"terlambat": Late,
	"late":      Late,
}

// ParseStatus accepts the stored values and their English names, case-insensitively.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// Valid reports whether s is one of the stored values.
func (s Status) Valid() bool {
	switch s {
	case Present, Sick, Excused, Absent, Late:
		return true
	}
	return false
}

// Category is the attendance band derived from a percentage.
type Category string

const (
	Excellent    Category = "Sangat Baik"
	Good         Category = "Baik"
	Sufficient   Category = "Cukup"
	Insufficient Category = "Kurang"
)

var categoryBands = []struct {
	min      int
	category Category
}{
	{95, Excellent},
	{85, Good},
	{75, Sufficient},
}

type (
	Student struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		NIS  string `json:"nis"`
	}

	Record struct {
		StudentID string
		Date      time.Time
		Status    Status
	}

	// Range is an inclusive calendar-day range.
	Range struct {
		From time.Time
		To   time.Time
	}

	Row struct {
		StudentID  string   `json:"student_id"`
		Name       string   `json:"name"`
		NIS        string   `json:"nis"`
		Present    int      `json:"hadir"`
		Sick       int      `json:"sakit"`
		Excused    int      `json:"izin"`
		Absent     int      `json:"alfa"`
		Late       int      `json:"terlambat"`
		Total      int      `json:"total"`
		Percentage int      `json:"percentage"`
		Category   Category `json:"category"`
	}

	ClassSummary struct {
		TotalStudents     int     `json:"total_students"`
		AverageAttendance float64 `json:"average_attendance"`
		TotalDays         int     `json:"total_days"`
		RangeDays         int     `json:"range_days"`
		NoData            bool    `json:"no_data"`
	}
)

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls on a day within the range.
func (r Range) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(day(r.From)) && !d.After(day(r.To))
}

// Days is the inclusive number of calendar days in the range, 0 when From is after To.
func (r Range) Days() int {
	from, to := day(r.From), day(r.To)
	if from.After(to) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// Percentage is present/total as a whole percentage rounded half up, 0 when total is 0.
func Percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present*100) / float64(total)))
}

// CategoryFor maps a percentage to its band.
func CategoryFor(pct int) Category {
	for _, band := range categoryBands {
		if pct >= band.min {
			return band.category
		}
	}
	return Insufficient
}

type recordKey struct {
	studentID string
	date      string
}

// counted keeps the in-range records of known students, one per (student, day), the last one winning.
func counted(students []Student, records []Record, rng Range) map[recordKey]Status {
	known := make(map[string]bool, len(students))
	for _, st := range students {
		known[st.ID] = true
	}

	kept := make(map[recordKey]Status, len(records))
	for _, rec := range records {
		if !known[rec.StudentID] || !rng.Contains(rec.Date) {
			continue
		}
		kept[recordKey{rec.StudentID, day(rec.Date).Format("2006-01-02")}] = rec.Status
	}
	return kept
}

// Summarize returns one Row per student, in input order.
func Summarize(students []Student, records []Record, rng Range) []Row {
	rows := make([]Row, 0, len(students))
	index := make(map[string]int, len(students))
	for _, st := range students {
		if _, dup := index[st.ID]; dup {
			continue
		}
		index[st.ID] = len(rows)
		rows = append(rows, Row{StudentID: st.ID, Name: st.Name, NIS: st.NIS})
	}

	for key, status := range counted(students, records, rng) {
		row := &rows[index[key.studentID]]
		switch status {
		case Present:
			row.Present++
		case Sick:
			row.Sick++
		case Excused:
			row.Excused++
		case Absent:
			row.Absent++
		case Late:
			row.Late++
		default:
			continue
		}
		row.Total++
	}

	for i := range rows {
		rows[i].Percentage = Percentage(rows[i].Present, rows[i].Total)
		rows[i].Category = CategoryFor(rows[i].Percentage)
	}
	return rows
}

// SummarizeClass rolls the rows up. TotalDays counts the distinct days holding at least one counted record.
func SummarizeClass(rows []Row, records []Record, rng Range) ClassSummary {
	summary := ClassSummary{RangeDays: rng.Days()}
	if len(rows) == 0 {
		summary.NoData = true
		return summary
	}

	students := make([]Student, 0, len(rows))
	pcts := make(stats.Float64Data, 0, len(rows))
	for _, row := range rows {
		students = append(students, Student{ID: row.StudentID})
		pcts = append(pcts, float64(row.Percentage))
	}

	days := make(map[string]bool)
	for key, status := range counted(students, records, rng) {
		if status.Valid() {
			days[key.date] = true
		}
	}

	mean, _ := pcts.Mean()
	summary.AverageAttendance, _ = stats.Round(mean, 1)
	summary.TotalStudents = len(rows)
	summary.TotalDays = len(days)
	return summary
}
