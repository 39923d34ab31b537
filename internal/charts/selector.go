package charts

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Render builds the requested chart from t. It fails only for an unknown
// chart name or an ad hoc request without a column; unmet column
// requirements yield Unavailable. A nil registry means DefaultRegistry.
func Render(t *dataset.Table, req Request, reg *Registry) (Result, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	spec, ok := reg.Lookup(req.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, req.Name)
	}
	if spec.AdHoc() {
		if req.Column == "" {
			return nil, fmt.Errorf("%s: %w", spec.Name, ErrColumnRequired)
		}
		spec.Column = req.Column
	}
	if spec.Kind != KindCorrelation {
		cols := spec.Required()
		if spec.AdHoc() {
			cols = []string{spec.Column}
		}
		if missing := missingColumns(t, cols); len(missing) > 0 {
			return Unavailable{Chart: spec.Name, Reason: "required columns not found", Missing: missing}, nil
		}
	}
	b := builder{t: t, spec: spec, reg: reg}
	switch spec.Kind {
	case KindDistribution:
		return b.distribution(), nil
	case KindGroupedCount:
		return b.groupedCount(), nil
	case KindBinAggregate:
		return b.binAggregate(), nil
	case KindCorrelation:
		return b.correlation(), nil
	case KindHistogram:
		return b.histogram(), nil
	case KindValueCounts:
		return b.valueCounts(), nil
	}
	return nil, fmt.Errorf("chart %s: unsupported kind %q", spec.Name, spec.Kind)
}

func missingColumns(t *dataset.Table, cols []string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

type builder struct {
	t    *dataset.Table
	spec Spec
	reg  *Registry
}

func (b builder) unavailable(format string, args ...any) Unavailable {
	return Unavailable{Chart: b.spec.Name, Reason: fmt.Sprintf(format, args...)}
}

func (b builder) chart() *Chart {
	return &Chart{Name: b.spec.Name, Kind: b.spec.Kind, Title: b.spec.Title}
}

// numeric returns the present, finite values of a numeric column. Infinite
// values are dropped and noted on ch.
func (b builder) numeric(name string, ch *Chart) ([]float64, *Unavailable) {
	c, _ := b.t.Column(name)
	if c.Kind != dataset.Numeric {
		u := b.unavailable("column %q is not numeric", name)
		return nil, &u
	}
	vals := c.Present()
	if len(vals) == 0 {
		u := b.unavailable("column %q has no values", name)
		return nil, &u
	}
	vals, dropped := finite(vals)
	if len(vals) == 0 {
		u := b.unavailable("column %q has no finite values", name)
		return nil, &u
	}
	if dropped > 0 {
		ch.Notes = append(ch.Notes, fmt.Sprintf("ignored %d infinite values", dropped))
	}
	return vals, nil
}

func (b builder) bins(fallback int) int {
	if b.spec.Bins > 0 {
		return b.spec.Bins
	}
	if fallback > 0 {
		return fallback
	}
	return 10
}

func (b builder) distribution() Result {
	ch := b.chart()
	vals, u := b.numeric(b.spec.Column, ch)
	if u != nil {
		return *u
	}
	edges, counts := histogram(vals, b.bins(b.reg.Opts.DistributionBins))
	ch.XLabel, ch.YLabel = b.spec.Column, "Count"
	h := &Histogram{Edges: edges, Counts: counts, Total: len(vals), N: len(vals)}
	if bw := scottBandwidth(vals); bw > 0 {
		lo, hi := edges[0], edges[len(edges)-1]
		width := edges[1] - edges[0]
		h.KDE = kde(vals, bw, lo, hi, b.reg.Opts.KDEPoints, float64(len(vals))*width)
	} else {
		ch.Notes = append(ch.Notes, "density estimate omitted: not enough spread in values")
	}
	ch.Histogram = h
	return ch
}

func (b builder) histogram() Result {
	ch := b.chart()
	vals, u := b.numeric(b.spec.Column, ch)
	if u != nil {
		return *u
	}
	opt := b.reg.Opts
	total := len(vals)
	sampled := false
	if opt.SampleThreshold > 0 && total > opt.SampleThreshold && opt.SampleSize > 0 && opt.SampleSize < total {
		vals = sample(vals, opt.SampleSize, opt.Seed)
		sampled = true
	}
	edges, counts := histogram(vals, b.bins(opt.HistogramBins))
	ch.Title = fmt.Sprintf("Histogram of %s", b.spec.Column)
	ch.XLabel, ch.YLabel = b.spec.Column, "Frequency"
	ch.Histogram = &Histogram{Edges: edges, Counts: counts, Total: total, N: len(vals), Sampled: sampled}
	if sampled {
		ch.Notes = append(ch.Notes, fmt.Sprintf("sampled %d of %d values", len(vals), total))
	}
	return ch
}

// labelOrder sorts bin labels by their position in the bin specification.
// Labels it does not know follow in alphabetical order.
func (b builder) labelOrder(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		oi, oj := b.reg.Bins.Order(labels[i]), b.reg.Bins.Order(labels[j])
		switch {
		case oi >= 0 && oj >= 0:
			return oi < oj
		case oi >= 0:
			return true
		case oj >= 0:
			return false
		}
		return labels[i] < labels[j]
	})
}

func (b builder) groupedCount() Result {
	g, _ := b.t.Column(b.spec.Group)
	h, _ := b.t.Column(b.spec.Hue)
	var groups, levels []string
	gi := map[string]int{}
	li := map[string]int{}
	type pair struct{ g, l string }
	counts := map[pair]int{}
	for r := 0; r < g.Len(); r++ {
		if g.Missing[r] || h.Missing[r] {
			continue
		}
		gv, lv := g.Str[r], h.Str[r]
		if _, ok := gi[gv]; !ok {
			gi[gv] = len(groups)
			groups = append(groups, gv)
		}
		if _, ok := li[lv]; !ok {
			li[lv] = len(levels)
			levels = append(levels, lv)
		}
		counts[pair{gv, lv}]++
	}
	if len(groups) == 0 {
		return b.unavailable("no rows with both %s and %s", b.spec.Group, b.spec.Hue)
	}
	b.labelOrder(levels)
	grid := make([][]int, len(groups))
	for i, gv := range groups {
		grid[i] = make([]int, len(levels))
		for j, lv := range levels {
			grid[i][j] = counts[pair{gv, lv}]
		}
	}
	ch := b.chart()
	ch.XLabel, ch.YLabel = b.spec.Group, "Count"
	ch.Grouped = &GroupedBars{Groups: groups, Levels: levels, Counts: grid}
	return ch
}

func (b builder) binAggregate() Result {
	m, _ := b.t.Column(b.spec.Column)
	if m.Kind != dataset.Numeric {
		return b.unavailable("column %q is not numeric", b.spec.Column)
	}
	bin, _ := b.t.Column(b.spec.Hue)
	sums := map[string]float64{}
	ns := map[string]int{}
	var labels []string
	for r := 0; r < m.Len(); r++ {
		if m.Missing[r] || bin.Missing[r] || math.IsInf(m.Num[r], 0) {
			continue
		}
		l := bin.Str[r]
		if _, ok := ns[l]; !ok {
			labels = append(labels, l)
		}
		sums[l] += m.Num[r]
		ns[l]++
	}
	if len(labels) == 0 {
		return b.unavailable("no rows with both %s and %s", b.spec.Column, b.spec.Hue)
	}
	b.labelOrder(labels)
	vals := make([]float64, len(labels))
	for i, l := range labels {
		vals[i] = sums[l] / float64(ns[l])
	}
	ch := b.chart()
	ch.XLabel, ch.YLabel = b.spec.Hue, "Mean "+b.spec.Column
	ch.Bars = &Bars{Labels: labels, Values: vals}
	return ch
}

func (b builder) correlation() Result {
	names := b.t.NumericNames()
	if len(names) < 2 {
		return b.unavailable("not enough numeric columns for correlation (need 2, have %d)", len(names))
	}
	cols := make([]dataset.Column, len(names))
	for i, n := range names {
		cols[i], _ = b.t.Column(n)
	}
	m := mat.NewSymDense(len(names), nil)
	for i := range cols {
		m.SetSym(i, i, 1)
		for j := i + 1; j < len(cols); j++ {
			m.SetSym(i, j, pearson(cols[i], cols[j]))
		}
	}
	ch := b.chart()
	ch.Heatmap = &Heatmap{Labels: names, Matrix: m}
	return ch
}

// pearson correlates the rows where both columns are present. Fewer than two
// such rows or a constant side give NaN.
func pearson(a, b dataset.Column) float64 {
	var x, y []float64
	for r := range a.Num {
		if a.Missing[r] || b.Missing[r] {
			continue
		}
		x = append(x, a.Num[r])
		y = append(y, b.Num[r])
	}
	if len(x) < 2 || constant(x) || constant(y) {
		return nan
	}
	return stat.Correlation(x, y, nil)
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func (b builder) valueCounts() Result {
	c, _ := b.t.Column(b.spec.Column)
	counts := map[string]int{}
	var values []string
	for r := 0; r < c.Len(); r++ {
		if c.Missing[r] {
			continue
		}
		v := c.Str[r]
		if _, ok := counts[v]; !ok {
			values = append(values, v)
		}
		counts[v]++
	}
	if len(values) == 0 {
		return b.unavailable("column %q has no values", b.spec.Column)
	}
	opt := b.reg.Opts
	if opt.MaxDistinct > 0 && len(values) >= opt.MaxDistinct {
		return b.unavailable("column %q has %d distinct values (limit %d)", b.spec.Column, len(values), opt.MaxDistinct)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	if opt.Top > 0 && len(values) > opt.Top {
		values = values[:opt.Top]
	}
	bars := &Bars{Labels: values, Values: make([]float64, len(values))}
	for i, v := range values {
		bars.Values[i] = float64(counts[v])
	}
	ch := b.chart()
	ch.Title = fmt.Sprintf("Top values of %s", b.spec.Column)
	ch.XLabel, ch.YLabel = b.spec.Column, "Count"
	ch.Bars = bars
	return ch
}
