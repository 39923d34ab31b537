package dataset

import (
	"errors"
	"fmt"
	"math"
)

// BinSpec maps a numeric source column onto labelled intervals. With Right
// set the intervals are (lo, hi]; otherwise [lo, hi).
type BinSpec struct {
	Source string    `mapstructure:"source" yaml:"source" json:"source"`
	Target string    `mapstructure:"target" yaml:"target" json:"target"`
	Edges  []float64 `mapstructure:"edges" yaml:"edges" json:"edges"`
	Labels []string  `mapstructure:"labels" yaml:"labels" json:"labels"`
	Right  bool      `mapstructure:"right" yaml:"right" json:"right"`
}

// DefaultBinSpec buckets daily active minutes into 100-minute bands.
func DefaultBinSpec() BinSpec {
	return BinSpec{
		Source: "daily_active_minutes_instagram",
		Target: "activity_bin",
		Edges:  []float64{0, 100, 200, 300, 400, 500},
		Labels: []string{"0–100", "100–200", "200–300", "300–400", "400–500"},
		Right:  true,
	}
}

// Validate checks that edges ascend strictly and that there is one label per interval.
func (b BinSpec) Validate() error {
	if b.Source == "" || b.Target == "" {
		return errors.New("bins: source and target columns are required")
	}
	if len(b.Edges) < 2 {
		return errors.New("bins: at least two edges are required")
	}
	if len(b.Labels) != len(b.Edges)-1 {
		return fmt.Errorf("bins: %d edges need %d labels, got %d", len(b.Edges), len(b.Edges)-1, len(b.Labels))
	}
	seen := make(map[string]struct{}, len(b.Labels))
	for i, l := range b.Labels {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("bins: duplicate label %q", l)
		}
		seen[l] = struct{}{}
		if b.Edges[i+1] <= b.Edges[i] {
			return fmt.Errorf("bins: edges must ascend (%g after %g)", b.Edges[i+1], b.Edges[i])
		}
	}
	return nil
}

// Label returns the label of the interval containing v.
func (b BinSpec) Label(v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	for i := 0; i+1 < len(b.Edges); i++ {
		lo, hi := b.Edges[i], b.Edges[i+1]
		in := v >= lo && v < hi
		if b.Right {
			in = v > lo && v <= hi
		}
		if in {
			return b.Labels[i], true
		}
	}
	return "", false
}

// Order returns the position of label in the specification, or -1.
func (b BinSpec) Order(label string) int {
	for i, l := range b.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Apply labels every cell of a numeric column. Missing and out-of-range
// values are reported as missing.
func (b BinSpec) Apply(c Column) (labels []string, missing []bool) {
	labels = make([]string, c.Len())
	missing = make([]bool, c.Len())
	for i := range labels {
		if c.Missing[i] {
			missing[i] = true
			continue
		}
		l, ok := b.Label(c.Num[i])
		if !ok {
			missing[i] = true
			continue
		}
		labels[i] = l
	}
	return labels, missing
}

// Derive returns t with the target column computed from the source column.
// ok is false when the source column is absent or not numeric, in which case
// t is returned unchanged.
func (b BinSpec) Derive(t *Table) (out *Table, ok bool, err error) {
	c, found := t.Column(b.Source)
	if !found || c.Kind != Numeric {
		return t, false, nil
	}
	labels, missing := b.Apply(c)
	out, err = t.WithColumn(b.Target, labels, missing)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
