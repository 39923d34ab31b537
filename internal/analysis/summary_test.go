package analysis

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.FromRecords("survey.csv",
		[]string{"user", "daily_active_minutes_instagram", "age", "gender"},
		[][]string{
			{"u1", "50", "21", "M"},
			{"u2", "150", "", "F"},
			{"u3", "450", "35", "F"},
			{"u4", "", "40", ""},
			{"u5", "250", "28", "M"},
			{"u6", "320", "30", "F"},
		}, nil)
	require.NoError(t, err)
	return tbl
}

func TestSummarizeSections(t *testing.T) {
	rep := Summarize(surveyTable(t), DefaultOptions())

	assert.Equal(t, 6, rep.Rows)
	assert.Equal(t, 4, rep.Cols)
	assert.Equal(t, []string{"user", "daily_active_minutes_instagram", "age", "gender"}, rep.Columns)
	require.Len(t, rep.Head, 5)
	assert.Equal(t, []string{"u2", "150", "NaN", "F"}, rep.Head[1])

	require.Len(t, rep.Stats, 2)
	mins := rep.Stats[0]
	assert.Equal(t, "daily_active_minutes_instagram", mins.Name)
	assert.Equal(t, 5, mins.Count)
	assert.InDelta(t, 244.0, mins.Mean, 1e-9)
	assert.InDelta(t, 50.0, mins.Min, 1e-9)
	assert.InDelta(t, 150.0, mins.Q25, 1e-9)
	assert.InDelta(t, 250.0, mins.Q50, 1e-9)
	assert.InDelta(t, 320.0, mins.Q75, 1e-9)
	assert.InDelta(t, 450.0, mins.Max, 1e-9)
	assert.InDelta(t, 153.88307, mins.Std, 1e-4)

	want := map[string]int{"user": 0, "daily_active_minutes_instagram": 1, "age": 1, "gender": 1}
	for _, m := range rep.Missing {
		assert.Equal(t, want[m.Name], m.Count, m.Name)
	}

	text := rep.Text()
	for _, frag := range []string{
		"Dataset Shape: 6 rows, 4 columns",
		"--- First 5 Rows ---",
		"--- Column Names ---",
		"user, daily_active_minutes_instagram, age, gender",
		"--- Summary Statistics ---",
		"244.000000",
		"--- Missing Values ---",
	} {
		assert.Contains(t, text, frag)
	}
	assert.NotContains(t, text, "u6", "preview must stop at five rows")
}

func TestSummarizeEmptyTable(t *testing.T) {
	tbl, err := dataset.FromRecords("empty.csv", []string{"a", "b", "c"}, nil, nil)
	require.NoError(t, err)

	rep := Summarize(tbl, DefaultOptions())
	assert.Equal(t, 0, rep.Rows)
	assert.Equal(t, 3, rep.Cols)
	assert.Empty(t, rep.Head)
	require.Len(t, rep.Missing, 3)
	for _, m := range rep.Missing {
		assert.Zero(t, m.Count)
	}
	// Columns without any values are numeric; their describe rows hold count 0.
	for _, s := range rep.Stats {
		assert.Zero(t, s.Count)
		assert.True(t, math.IsNaN(s.Mean))
	}
	text := rep.Text()
	assert.Contains(t, text, "Dataset Shape: 0 rows, 3 columns")
	assert.Contains(t, text, "Empty DataFrame")
}

func TestSummarizeNoColumns(t *testing.T) {
	tbl, err := dataset.FromRecords("", nil, nil, nil)
	require.NoError(t, err)
	rep := Summarize(tbl, DefaultOptions())
	assert.Equal(t, 0, rep.Cols)
	text := rep.Text()
	assert.Contains(t, text, "Dataset Shape: 0 rows, 0 columns")
	assert.Contains(t, text, "(no numeric columns)")
	assert.Contains(t, text, "(no columns)")
}

func TestDescribeWithoutNumericColumns(t *testing.T) {
	tbl, err := dataset.FromRecords("", []string{"gender"}, [][]string{{"M"}, {"F"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, Describe(tbl))
	out, err := Section(tbl, SectionDescribe, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "(no numeric columns)", out)
}

func TestDescribeSingleValueHasNaNStd(t *testing.T) {
	tbl, err := dataset.FromRecords("", []string{"x"}, [][]string{{"7"}}, nil)
	require.NoError(t, err)
	st := Describe(tbl)
	require.Len(t, st, 1)
	assert.Equal(t, 1, st[0].Count)
	assert.True(t, math.IsNaN(st[0].Std))
	assert.Equal(t, 7.0, st[0].Q75)
}

func TestSectionKeys(t *testing.T) {
	tbl := surveyTable(t)
	for _, key := range append(Sections, SectionReport) {
		out, err := Section(tbl, key, DefaultOptions())
		require.NoError(t, err, key)
		assert.NotEmpty(t, out, key)
	}
	_, err := Section(tbl, "bogus", DefaultOptions())
	assert.Error(t, err)

	shape, _ := Section(tbl, SectionShape, DefaultOptions())
	assert.Equal(t, "Dataset Shape: 6 rows, 4 columns", shape)
}

func TestMarkdownTables(t *testing.T) {
	md := Summarize(surveyTable(t), Options{HeadRows: 2}).Markdown()
	assert.Contains(t, md, "## First 2 Rows")
	assert.Contains(t, md, "| statistic | daily_active_minutes_instagram | age |")
	assert.Contains(t, md, "| gender | 1 |")
	assert.Equal(t, 1, strings.Count(md, "# Dataset Summary"))
}

func TestMarkdownTruncatesLongCellsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", 76) + strings.Repeat("–", 5)
	tbl, err := dataset.FromRecords("notes.csv", []string{"note"}, [][]string{{long}}, nil)
	require.NoError(t, err)

	md := Summarize(tbl, DefaultOptions()).Markdown()
	assert.True(t, utf8.ValidString(md))
	assert.Contains(t, md, strings.Repeat("a", 76)+"–...")
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		in   []float64
		q    float64
		want float64
	}{
		{[]float64{1, 2, 3, 4}, 0.25, 1.75},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4}, 0.75, 3.25},
		{[]float64{5}, 0.5, 5},
		{[]float64{1, 3}, 0, 1},
		{[]float64{1, 3}, 1, 3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, quantile(tt.in, tt.q), 1e-12)
	}
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}
