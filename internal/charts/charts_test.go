package charts

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, header []string, rows [][]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.FromRecords("t.csv", header, rows, nil)
	require.NoError(t, err)
	out, _, err := dataset.DefaultBinSpec().Derive(tbl)
	require.NoError(t, err)
	return out
}

func mustChart(t *testing.T) func(Result, error) *Chart {
	return func(res Result, err error) *Chart {
		t.Helper()
		require.NoError(t, err)
		ch, ok := res.(*Chart)
		require.True(t, ok, "expected chart, got %#v", res)
		return ch
	}
}

func mustUnavailable(t *testing.T) func(Result, error) Unavailable {
	return func(res Result, err error) Unavailable {
		t.Helper()
		require.NoError(t, err)
		u, ok := res.(Unavailable)
		require.True(t, ok, "expected unavailable, got %#v", res)
		return u
	}
}

func TestGroupedCountExample(t *testing.T) {
	tbl := table(t, []string{"daily_active_minutes_instagram", "gender"},
		[][]string{{"50", "M"}, {"150", "F"}, {"450", "F"}})

	ch := mustChart(t)(Render(tbl, Request{Name: "activity_by_gender"}, nil))
	require.NotNil(t, ch.Grouped)
	assert.Equal(t, []string{"M", "F"}, ch.Grouped.Groups)
	assert.Equal(t, []string{"0–100", "100–200", "400–500"}, ch.Grouped.Levels)
	assert.Equal(t, [][]int{{1, 0, 0}, {0, 1, 1}}, ch.Grouped.Counts)
}

func TestGroupedCountUnavailable(t *testing.T) {
	noGender := table(t, []string{"daily_active_minutes_instagram"}, [][]string{{"50"}})
	u := mustUnavailable(t)(Render(noGender, Request{Name: "activity_by_gender"}, nil))
	assert.Equal(t, []string{"gender"}, u.Missing)

	noBins := table(t, []string{"gender"}, [][]string{{"M"}})
	u = mustUnavailable(t)(Render(noBins, Request{Name: "activity_by_gender"}, nil))
	assert.Equal(t, []string{"activity_bin"}, u.Missing)
	assert.Equal(t, "activity_by_gender", u.Chart)
}

func TestBinAggregateNaturalOrder(t *testing.T) {
	tbl := table(t, []string{"daily_active_minutes_instagram", "reels_watched_per_day"},
		[][]string{{"450", "40"}, {"50", "10"}, {"60", ""}, {"150", "20"}, {"420", "60"}})

	ch := mustChart(t)(Render(tbl, Request{Name: "reels_by_activity"}, nil))
	require.NotNil(t, ch.Bars)
	assert.Equal(t, []string{"0–100", "100–200", "400–500"}, ch.Bars.Labels)
	assert.Equal(t, []float64{10, 20, 50}, ch.Bars.Values)

	text := table(t, []string{"daily_active_minutes_instagram", "reels_watched_per_day"},
		[][]string{{"50", "many"}})
	u := mustUnavailable(t)(Render(text, Request{Name: "reels_by_activity"}, nil))
	assert.Contains(t, u.Reason, "not numeric")
}

func TestCorrelation(t *testing.T) {
	one := table(t, []string{"x", "g"}, [][]string{{"1", "a"}, {"2", "b"}})
	mustUnavailable(t)(Render(one, Request{Name: "correlation_matrix"}, nil))

	tbl := table(t, []string{"x", "y", "z", "c"}, [][]string{
		{"1", "2", "5", "7"},
		{"2", "4", "4", "7"},
		{"3", "6", "", "7"},
		{"4", "8", "2", "7"},
	})
	ch := mustChart(t)(Render(tbl, Request{Name: "correlation_matrix"}, nil))
	h := ch.Heatmap
	require.NotNil(t, h)
	assert.Equal(t, []string{"x", "y", "z", "c"}, h.Labels)
	for i := 0; i < h.Size(); i++ {
		assert.Equal(t, 1.0, h.At(i, i))
		for j := 0; j < h.Size(); j++ {
			a, b := h.At(i, j), h.At(j, i)
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.InDelta(t, a, b, 1e-12)
		}
	}
	assert.InDelta(t, 1.0, h.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, h.At(0, 2), 1e-12, "pairwise complete rows only")
	assert.True(t, math.IsNaN(h.At(0, 3)), "constant column")
}

func TestDistribution(t *testing.T) {
	rows := [][]string{}
	for _, v := range []string{"10", "20", "20", "30", "90", ""} {
		rows = append(rows, []string{v})
	}
	tbl := table(t, []string{"daily_active_minutes_instagram"}, rows)
	ch := mustChart(t)(Render(tbl, Request{Name: "activity_distribution"}, nil))
	h := ch.Histogram
	require.NotNil(t, h)
	assert.Len(t, h.Counts, 20)
	assert.Len(t, h.Edges, 21)
	assert.Equal(t, 10.0, h.Edges[0])
	assert.Equal(t, 90.0, h.Edges[20])
	sum := 0
	for _, c := range h.Counts {
		sum += c
	}
	assert.Equal(t, 5, sum)
	assert.Equal(t, 1, h.Counts[19], "maximum falls in the last bin")
	require.NotNil(t, h.KDE)
	assert.Len(t, h.KDE.X, 200)
	for _, y := range h.KDE.Y {
		assert.GreaterOrEqual(t, y, 0.0)
	}

	flat := table(t, []string{"daily_active_minutes_instagram"}, [][]string{{"5"}, {"5"}})
	ch = mustChart(t)(Render(flat, Request{Name: "activity_distribution"}, nil))
	assert.Nil(t, ch.Histogram.KDE)
	assert.Equal(t, []float64{4.5, 5.5}, []float64{ch.Histogram.Edges[0], ch.Histogram.Edges[20]})
	assert.NotEmpty(t, ch.Notes)
}

func TestHistogramSampling(t *testing.T) {
	rows := make([][]string, 12000)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i)}
	}
	tbl := table(t, []string{"v"}, rows)
	req := Request{Name: "histogram", Column: "v"}

	first := mustChart(t)(Render(tbl, req, nil))
	second := mustChart(t)(Render(tbl, req, nil))
	h := first.Histogram
	assert.True(t, h.Sampled)
	assert.Equal(t, 12000, h.Total)
	assert.Equal(t, 10000, h.N)
	assert.Len(t, h.Counts, 30)
	assert.Equal(t, h.Counts, second.Histogram.Counts)
	assert.Contains(t, first.Notes, "sampled 10000 of 12000 values")

	small := table(t, []string{"v"}, [][]string{{"1"}, {"2"}})
	ch := mustChart(t)(Render(small, req, nil))
	assert.False(t, ch.Histogram.Sampled)
	assert.Empty(t, ch.Notes)
}

func TestAdHocErrors(t *testing.T) {
	tbl := table(t, []string{"v", "g"}, [][]string{{"1", "a"}})

	_, err := Render(tbl, Request{Name: "histogram"}, nil)
	assert.True(t, errors.Is(err, ErrColumnRequired))

	_, err = Render(tbl, Request{Name: "nope"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownChart))

	u := mustUnavailable(t)(Render(tbl, Request{Name: "histogram", Column: "g"}, nil))
	assert.Contains(t, u.Reason, "not numeric")

	u = mustUnavailable(t)(Render(tbl, Request{Name: "histogram", Column: "missing"}, nil))
	assert.Equal(t, []string{"missing"}, u.Missing)
}

func TestValueCounts(t *testing.T) {
	var rows [][]string
	for _, v := range []string{"b", "a", "b", "c", "a", "b", "", "d"} {
		rows = append(rows, []string{v})
	}
	tbl := table(t, []string{"g"}, rows)
	ch := mustChart(t)(Render(tbl, Request{Name: "value_counts", Column: "g"}, nil))
	assert.Equal(t, []string{"b", "a", "c", "d"}, ch.Bars.Labels)
	assert.Equal(t, []float64{3, 2, 1, 1}, ch.Bars.Values)

	reg := DefaultRegistry()
	reg.Opts.Top = 2
	ch = mustChart(t)(Render(tbl, Request{Name: "value_counts", Column: "g"}, reg))
	assert.Equal(t, []string{"b", "a"}, ch.Bars.Labels)

	reg.Opts.MaxDistinct = 4
	u := mustUnavailable(t)(Render(tbl, Request{Name: "value_counts", Column: "g"}, reg))
	assert.Contains(t, u.Reason, "4 distinct values")
}

func TestRegistryMerge(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Merge(map[string]Spec{
		"reels_by_activity": {Column: "reels_per_day"},
		"sleep_by_activity": {Kind: KindBinAggregate, Column: "sleep_hours", Hue: "activity_bin"},
	}))
	s, ok := reg.Lookup("reels_by_activity")
	require.True(t, ok)
	assert.Equal(t, "reels_per_day", s.Column)
	assert.Equal(t, KindBinAggregate, s.Kind)
	assert.Equal(t, "sleep_by_activity", reg.Names()[len(reg.Names())-1])

	err := reg.Merge(map[string]Spec{"broken": {Kind: KindGroupedCount, Group: "gender"}})
	assert.Error(t, err)
	err = reg.Register(Spec{Name: "x", Kind: "pie"})
	assert.Error(t, err)
}

func TestHistogramEdges(t *testing.T) {
	edges, counts := histogram([]float64{0, 1, 2, 3, 4}, 4)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, edges)
	assert.Equal(t, []int{1, 1, 1, 2}, counts)
}

func TestSampleIsDeterministic(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	a := sample(vals, 10, 42)
	b := sample(vals, 10, 42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 10)
	seen := map[float64]bool{}
	for _, v := range a {
		assert.False(t, seen[v], "drawn without replacement")
		seen[v] = true
	}
	assert.Equal(t, float64(0), vals[0], "input is not modified")
}

func TestInfiniteValuesAreIgnored(t *testing.T) {
	tbl := table(t, []string{"daily_active_minutes_instagram", "score", "blowup"}, [][]string{
		{"50", "1", "inf"},
		{"150", "2", "-Infinity"},
		{"250", "inf", "inf"},
		{"450", "3", ""},
	})

	res, err := Render(tbl, Request{Name: "histogram", Column: "score"}, nil)
	ch := mustChart(t)(res, err)
	assert.Equal(t, 3, ch.Histogram.Total)
	assert.Contains(t, ch.Notes, "ignored 1 infinite values")
	for _, e := range ch.Histogram.Edges {
		assert.False(t, math.IsNaN(e) || math.IsInf(e, 0), "edge %v", e)
	}

	u := mustUnavailable(t)(Render(tbl, Request{Name: "histogram", Column: "blowup"}, nil))
	assert.Contains(t, u.Reason, "no finite values")

	reg := DefaultRegistry()
	require.NoError(t, reg.Register(Spec{Name: "score_by_activity", Kind: KindBinAggregate, Column: "score", Hue: "activity_bin"}))
	ch = mustChart(t)(Render(tbl, Request{Name: "score_by_activity"}, reg))
	assert.Equal(t, []string{"0–100", "100–200", "400–500"}, ch.Bars.Labels)
	assert.Equal(t, []float64{1, 2, 3}, ch.Bars.Values)
}
