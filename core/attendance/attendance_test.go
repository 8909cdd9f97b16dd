package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "hadir", want: Present},
		{in: "Present", want: Present},
		{in: " SAKIT ", want: Sick},
		{in: "excused", want: Excused},
		{in: "alfa", want: Absent},
		{in: "absent", want: Absent},
		{in: "terlambat", want: Late},
		{in: "late", want: Late},
		{in: "bolos", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
	assert.False(t, Status("present").Valid())
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		present, total, want int
	}{
		{18, 20, 90},
		{0, 0, 0},
		{0, 5, 0},
		{1, 8, 13}, // 12.5 rounds up
		{2, 3, 67},
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.present, tt.total), "Percentage(%d, %d)", tt.present, tt.total)
	}
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		pct  int
		want Category
	}{
		{100, Excellent},
		{95, Excellent},
		{94, Good},
		{85, Good},
		{84, Sufficient},
		{75, Sufficient},
		{74, Insufficient},
		{0, Insufficient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFor(tt.pct), "CategoryFor(%d)", tt.pct)
	}
}

func TestRange(t *testing.T) {
	rng := Range{From: date("2024-07-01"), To: date("2024-07-31")}
	assert.Equal(t, 31, rng.Days())
	assert.True(t, rng.Contains(date("2024-07-01")))
	assert.True(t, rng.Contains(date("2024-07-31").Add(23*time.Hour)))
	assert.False(t, rng.Contains(date("2024-08-01")))
	assert.False(t, rng.Contains(date("2024-06-30")))

	assert.Equal(t, 1, Range{From: date("2024-07-01"), To: date("2024-07-01")}.Days())
	assert.Equal(t, 0, Range{From: date("2024-07-02"), To: date("2024-07-01")}.Days())
}

func TestSummarize(t *testing.T) {
	students := []Student{
		{ID: "s1", Name: "Ani", NIS: "1001"},
		{ID: "s2", Name: "Budi", NIS: "1002"},
		{ID: "s3", Name: "Citra", NIS: "1003"},
	}
	rng := Range{From: date("2024-07-01"), To: date("2024-07-31")}

	var records []Record
	// s1: 18 hadir, 1 sakit, 1 terlambat
	for i := 1; i <= 18; i++ {
		records = append(records, Record{StudentID: "s1", Date: date("2024-07-01").AddDate(0, 0, i-1), Status: Present})
	}
	records = append(records,
		Record{StudentID: "s1", Date: date("2024-07-19"), Status: Sick},
		Record{StudentID: "s1", Date: date("2024-07-20"), Status: Late},
		// s2: duplicate day, the last one counts
		Record{StudentID: "s2", Date: date("2024-07-01"), Status: Absent},
		Record{StudentID: "s2", Date: date("2024-07-01"), Status: Excused},
		Record{StudentID: "s2", Date: date("2024-07-02"), Status: Present},
		// ignored: out of range, unknown student
		Record{StudentID: "s2", Date: date("2024-08-01"), Status: Absent},
		Record{StudentID: "x9", Date: date("2024-07-03"), Status: Present},
	)

	rows := Summarize(students, records, rng)
	require.Len(t, rows, 3)

	assert.Equal(t, Row{
		StudentID: "s1", Name: "Ani", NIS: "1001",
		Present: 18, Sick: 1, Late: 1, Total: 20,
		Percentage: 90, Category: Good,
	}, rows[0])
	assert.Equal(t, Row{
		StudentID: "s2", Name: "Budi", NIS: "1002",
		Present: 1, Excused: 1, Total: 2,
		Percentage: 50, Category: Insufficient,
	}, rows[1])
	assert.Equal(t, Row{
		StudentID: "s3", Name: "Citra", NIS: "1003",
		Category: Insufficient,
	}, rows[2])

	summary := SummarizeClass(rows, records, rng)
	assert.Equal(t, ClassSummary{
		TotalStudents:     3,
		AverageAttendance: 46.7,
		TotalDays:         20,
		RangeDays:         31,
	}, summary)
}

func TestSummarize_Empty(t *testing.T) {
	rng := Range{From: date("2024-07-01"), To: date("2024-07-07")}

	rows := Summarize(nil, []Record{{StudentID: "s1", Date: date("2024-07-01"), Status: Present}}, rng)
	assert.Empty(t, rows)

	summary := SummarizeClass(rows, nil, rng)
	assert.True(t, summary.NoData)
	assert.Equal(t, 0, summary.TotalStudents)
	assert.Equal(t, 0.0, summary.AverageAttendance)
	assert.Equal(t, 7, summary.RangeDays)
}

func TestSummarizeClass_TotalDaysAcrossStudents(t *testing.T) {
	// the first student transferred in late; the class still had 3 recorded days
	students := []Student{{ID: "late"}, {ID: "early"}}
	rng := Range{From: date("2024-07-01"), To: date("2024-07-05")}
	records := []Record{
		{StudentID: "late", Date: date("2024-07-03"), Status: Present},
		{StudentID: "early", Date: date("2024-07-01"), Status: Present},
		{StudentID: "early", Date: date("2024-07-02"), Status: Sick},
		{StudentID: "early", Date: date("2024-07-03"), Status: Present},
	}
	rows := Summarize(students, records, rng)
	summary := SummarizeClass(rows, records, rng)

	assert.Equal(t, 1, rows[0].Total)
	assert.Equal(t, 3, summary.TotalDays)
	assert.Equal(t, 5, summary.RangeDays)
	assert.Equal(t, 83.5, summary.AverageAttendance) // (100 + 67) / 2
}
