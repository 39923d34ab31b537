package charts

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownChart is returned for a chart name the registry does not know.
	ErrUnknownChart = errors.New("unknown chart")
	// ErrColumnRequired is returned when an ad hoc chart is requested without a column.
	ErrColumnRequired = errors.New("column is required for this chart")
)

// Request names the chart to build. Column selects the column for ad hoc
// charts and is ignored otherwise.
type Request struct {
	Name   string `json:"name"`
	Column string `json:"column,omitempty"`
}

// Result is either a *Chart or an Unavailable.
type Result interface {
	isResult()
}

// Unavailable reports that a chart cannot be built from the table.
type Unavailable struct {
	Chart   string   `json:"chart"`
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
}

func (Unavailable) isResult() {}

func (u Unavailable) String() string {
	if len(u.Missing) > 0 {
		return fmt.Sprintf("%s: %s (%s)", u.Chart, u.Reason, strings.Join(u.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", u.Chart, u.Reason)
}

// Chart is renderable figure data. Exactly one of the figure fields is set,
// matching Kind.
type Chart struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	XLabel string `json:"x_label,omitempty"`
	YLabel string `json:"y_label,omitempty"`

	Histogram *Histogram   `json:"histogram,omitempty"`
	Grouped   *GroupedBars `json:"grouped,omitempty"`
	Bars      *Bars        `json:"bars,omitempty"`
	Heatmap   *Heatmap     `json:"-"`

	Notes []string `json:"notes,omitempty"`
}

func (*Chart) isResult() {}

// Histogram holds counts over equal-width bins. Edges has len(Counts)+1 entries.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
	// KDE is the density estimate scaled to counts, if computed.
	KDE *Curve `json:"kde,omitempty"`
	// Total is the number of non-missing values; N of them were binned.
	Total   int  `json:"total"`
	N       int  `json:"n"`
	Sampled bool `json:"sampled"`
}

// Curve is a polyline.
type Curve struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// GroupedBars holds Counts[g][l] for each group and level.
type GroupedBars struct {
	Groups []string `json:"groups"`
	Levels []string `json:"levels"`
	Counts [][]int  `json:"counts"`
}

// Bars is a single bar series.
type Bars struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Heatmap is a labelled symmetric matrix. Entries may be NaN.
type Heatmap struct {
	Labels []string
	Matrix *mat.SymDense
}

// At returns the value at row i, column j.
func (h *Heatmap) At(i, j int) float64 { return h.Matrix.At(i, j) }

// Size returns the number of rows and columns.
func (h *Heatmap) Size() int { return len(h.Labels) }
