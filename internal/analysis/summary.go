package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/montanaflynn/stats"
)

// Section keys, in report order.
const (
	SectionShape    = "shape"
	SectionHead     = "head"
	SectionColumns  = "columns"
	SectionDescribe = "describe"
	SectionMissing  = "missing"
	SectionReport   = "report"
)

// Sections lists the individual report sections in order.
var Sections = []string{SectionShape, SectionHead, SectionColumns, SectionDescribe, SectionMissing}

// Options controls summary output.
type Options struct {
	// HeadRows is the number of preview rows; values <= 0 mean 5.
	HeadRows int
}

// DefaultOptions returns reasonable defaults for a summary.
func DefaultOptions() Options {
	return Options{HeadRows: 5}
}

func (o Options) headRows() int {
	if o.HeadRows <= 0 {
		return 5
	}
	return o.HeadRows
}

// Report is the descriptive summary of a table.
type Report struct {
	Name    string
	Rows    int
	Cols    int
	Columns []string
	// Head holds the preview rows as display strings ("NaN" where missing).
	Head    [][]string
	Stats   []ColumnStats
	Missing []MissingCount
}

// ColumnStats is the describe row set of one numeric column.
type ColumnStats struct {
	Name  string
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// MissingCount is the number of missing cells in one column.
type MissingCount struct {
	Name  string
	Count int
}

// Summarize computes every section of the report. It never fails: an empty
// table yields zero counts and empty sections.
func Summarize(t *dataset.Table, opt Options) *Report {
	return &Report{
		Name:    t.Name(),
		Rows:    t.Rows(),
		Cols:    t.Cols(),
		Columns: t.Names(),
		Head:    Head(t, opt.headRows()),
		Stats:   Describe(t),
		Missing: MissingCounts(t),
	}
}

// Shape returns the shape line of the report.
func Shape(t *dataset.Table) string { return shapeText(t.Rows(), t.Cols()) }

// ColumnNames returns the comma-joined column names.
func ColumnNames(t *dataset.Table) string { return strings.Join(t.Names(), ", ") }

// Head returns the first n rows as display strings.
func Head(t *dataset.Table, n int) [][]string {
	if n > t.Rows() {
		n = t.Rows()
	}
	names := t.Names()
	cols := make([]dataset.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	out := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			if c.Missing[r] {
				row[j] = "NaN"
			} else {
				row[j] = c.Str[r]
			}
		}
		out[r] = row
	}
	return out
}

// Describe computes count, mean, std, min, quartiles and max per numeric column.
func Describe(t *dataset.Table) []ColumnStats {
	var out []ColumnStats
	for _, name := range t.NumericNames() {
		c, _ := t.Column(name)
		out = append(out, describe(name, c.Present()))
	}
	return out
}

func describe(name string, vals []float64) ColumnStats {
	nan := math.NaN()
	s := ColumnStats{Name: name, Count: len(vals), Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	if len(vals) == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(vals)
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	if len(vals) > 1 {
		s.Std, _ = stats.StandardDeviationSample(vals)
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Q50 = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	return s
}

// MissingCounts returns the missing cell count of every column in table order.
func MissingCounts(t *dataset.Table) []MissingCount {
	names := t.Names()
	out := make([]MissingCount, 0, len(names))
	for _, name := range names {
		c, _ := t.Column(name)
		out = append(out, MissingCount{Name: name, Count: c.MissingCount()})
	}
	return out
}

// Section renders a single section of the summary as text.
func Section(t *dataset.Table, key string, opt Options) (string, error) {
	switch key {
	case SectionShape:
		return Shape(t), nil
	case SectionHead:
		return headText(t.Names(), Head(t, opt.headRows())), nil
	case SectionColumns:
		return ColumnNames(t), nil
	case SectionDescribe:
		return describeText(Describe(t)), nil
	case SectionMissing:
		return missingText(MissingCounts(t)), nil
	case SectionReport:
		return Summarize(t, opt).Text(), nil
	default:
		return "", fmt.Errorf("unknown summary section %q (valid: %s, %s)", key, strings.Join(Sections, ", "), SectionReport)
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
