// Package grading computes weighted final scores and letter grades from raw category scores.
package grading

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Mode selects how weighted categories without any score are treated.
type Mode string

const (
	// ZeroFill counts a weighted category with no scores as an average of 0.
	ZeroFill Mode = "zero_fill"
	// Renormalize drops weighted categories with no scores and rescales the remaining weights.
	Renormalize Mode = "renormalize"
)

// Modes lists the supported modes.
var Modes = []Mode{ZeroFill, Renormalize}

// ParseMode maps s to a Mode. An empty string gives ZeroFill.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZeroFill:
		return ZeroFill, nil
	case Renormalize:
		return Renormalize, nil
	}
	return "", fmt.Errorf("unknown grading mode %q", s)
}

func (m Mode) String() string { return string(m) }

// Letter is the A to E band of a final score.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
)

var letterBands = []struct {
	min    float64
	letter Letter
}{
	{90, LetterA},
	{80, LetterB},
	{70, LetterC},
	{60, LetterD},
}

type (
	// Weight is the percentage (0..100) a category contributes to the final score.
	Weight struct {
		Category   string `json:"category"`
		Percentage int    `json:"percentage"`
	}

	// Student holds the raw scores of one student for one (class, subject), keyed by category name.
	Student struct {
		ID     string               `json:"id"`
		Name   string               `json:"name"`
		NIS    string               `json:"nis"`
		Scores map[string][]float64 `json:"scores"`
	}

	// Input is everything Compute needs for one class in one subject.
	Input struct {
		Students []Student
		Weights  []Weight
		Mode     Mode
	}

	// Result is the graded outcome of one student.
	Result struct {
		StudentID         string             `json:"student_id"`
		Name              string             `json:"name"`
		NIS               string             `json:"nis"`
		CategoryAverages  map[string]float64 `json:"category_averages"`
		FinalScore        float64            `json:"final_score"`
		Letter            Letter             `json:"letter"`
		MissingCategories []string           `json:"missing_categories"`
	}

	// ClassSummary rolls up the final scores of a class. NoData is set when there is no result.
	ClassSummary struct {
		Students int     `json:"students"`
		Average  float64 `json:"average"`
		Highest  float64 `json:"highest"`
		Lowest   float64 `json:"lowest"`
		NoData   bool    `json:"no_data"`
	}

	// WeightCheck reports weight table problems. It never blocks a computation.
	WeightCheck struct {
		Total      int      `json:"total"`
		Balanced   bool     `json:"balanced"`
		Unweighted []string `json:"unweighted"`
	}
)

// CategoryAverage is the arithmetic mean of scores, 0 when there are none.
func CategoryAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	mean, err := stats.Mean(scores)
	if err != nil {
		return 0
	}
	return mean
}

// LetterFor maps a final score to its letter band.
func LetterFor(score float64) Letter {
	for _, band := range letterBands {
		if score >= band.min {
			return band.letter
		}
	}
	return LetterE
}

// weightTable dedupes weights by category keeping the last entry, in first-seen order.
func weightTable(weights []Weight) ([]string, map[string]int) {
	order := make([]string, 0, len(weights))
	table := make(map[string]int, len(weights))
	for _, w := range weights {
		if _, ok := table[w.Category]; !ok {
			order = append(order, w.Category)
		}
		table[w.Category] = w.Percentage
	}
	return order, table
}

// Compute returns one Result per student, in input order.
// The input is never modified and results share no memory with it.
func Compute(in Input) []Result {
	mode := in.Mode
	if mode == "" {
		mode = ZeroFill
	}
	categories, weights := weightTable(in.Weights)

	results := make([]Result, 0, len(in.Students))
	for _, st := range in.Students {
		results = append(results, computeStudent(st, categories, weights, mode))
	}
	return results
}

func computeStudent(st Student, categories []string, weights map[string]int, mode Mode) Result {
	res := Result{
		StudentID:         st.ID,
		Name:              st.Name,
		NIS:               st.NIS,
		CategoryAverages:  make(map[string]float64, len(categories)+len(st.Scores)),
		MissingCategories: []string{},
	}

	// sum of avg × percentage, divided once at the end to keep 1-decimal rounding exact
	var scaled float64
	var divisor = 100.0
	var included int

	for _, cat := range categories {
		scores := st.Scores[cat]
		if len(scores) == 0 {
			res.CategoryAverages[cat] = 0
			res.MissingCategories = append(res.MissingCategories, cat)
			continue
		}
		avg := CategoryAverage(scores)
		res.CategoryAverages[cat] = avg
		scaled += avg * float64(weights[cat])
		included += weights[cat]
	}

	// scored but unweighted categories are reported and contribute nothing
	for cat, scores := range st.Scores {
		if _, ok := weights[cat]; !ok {
			res.CategoryAverages[cat] = CategoryAverage(scores)
		}
	}

	if mode == Renormalize {
		divisor = float64(included)
	}
	if divisor > 0 {
		res.FinalScore = math.Round(scaled*10/divisor) / 10
	}
	res.Letter = LetterFor(res.FinalScore)
	return res
}

// Summarize rolls final scores up to the class level. No results gives NoData.
func Summarize(results []Result) ClassSummary {
	if len(results) == 0 {
		return ClassSummary{NoData: true}
	}

	finals := make(stats.Float64Data, 0, len(results))
	for _, r := range results {
		finals = append(finals, r.FinalScore)
	}
	mean, _ := finals.Mean()
	avg, _ := stats.Round(mean, 1)
	highest, _ := finals.Max()
	lowest, _ := finals.Min()

	return ClassSummary{
		Students: len(results),
		Average:  avg,
		Highest:  highest,
		Lowest:   lowest,
	}
}

// CheckWeights reports whether the weight table adds up to 100 and which scored categories carry no weight.
// It never blocks a computation.
func CheckWeights(weights []Weight, scoredCategories []string) WeightCheck {
	_, table := weightTable(weights)

	var total int
	for _, pct := range table {
		total += pct
	}

	seen := make(map[string]bool, len(scoredCategories))
	unweighted := make([]string, 0)
	for _, cat := range scoredCategories {
		if _, ok := table[cat]; ok || seen[cat] {
			continue
		}
		seen[cat] = true
		unweighted = append(unweighted, cat)
	}
	sort.Strings(unweighted)

	return WeightCheck{
		Total:      total,
		Balanced:   total == 100,
		Unweighted: unweighted,
	}
}

// ScoredCategories lists the categories holding at least one score across students, sorted.
func ScoredCategories(students []Student) []string {
	seen := make(map[string]bool)
	cats := make([]string, 0)
	for _, st := range students {
		for cat, scores := range st.Scores {
			if len(scores) > 0 && !seen[cat] {
				seen[cat] = true
				cats = append(cats, cat)
			}
		}
	}
	sort.Strings(cats)
	return cats
}
