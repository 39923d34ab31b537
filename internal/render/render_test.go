package render

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleCharts() []*charts.Chart {
	m := mat.NewSymDense(3, []float64{
		1, 0.5, math.NaN(),
		0.5, 1, -0.8,
		math.NaN(), -0.8, 1,
	})
	return []*charts.Chart{
		{
			Name: "activity_distribution", Kind: charts.KindDistribution, Title: "Minutes",
			Histogram: &charts.Histogram{
				Edges:  []float64{0, 1, 2},
				Counts: []int{3, 1},
				KDE:    &charts.Curve{X: []float64{0, 1, 2}, Y: []float64{1, 2, 1}},
				Total:  4, N: 4,
			},
		},
		{
			Name: "activity_by_gender", Kind: charts.KindGroupedCount, Title: "By gender",
			Grouped: &charts.GroupedBars{
				Groups: []string{"M", "F"},
				Levels: []string{"0–100", "100–200"},
				Counts: [][]int{{1, 0}, {0, 2}},
			},
		},
		{
			Name: "reels_by_activity", Kind: charts.KindBinAggregate, Title: "Reels",
			Bars: &charts.Bars{Labels: []string{"0–100", "100–200"}, Values: []float64{10, 20}},
		},
		{
			Name: "correlation_matrix", Kind: charts.KindCorrelation, Title: "Correlations",
			Heatmap: &charts.Heatmap{Labels: []string{"a", "b", "c"}, Matrix: m},
		},
	}
}

func TestWriteImageSignatures(t *testing.T) {
	for _, c := range sampleCharts() {
		t.Run(c.Name, func(t *testing.T) {
			var png bytes.Buffer
			require.NoError(t, Write(&png, c, PNG, Options{Width: 640, Height: 400}))
			assert.True(t, bytes.HasPrefix(png.Bytes(), pngMagic))

			var svg bytes.Buffer
			require.NoError(t, Write(&svg, c, SVG, DefaultOptions()))
			assert.Contains(t, svg.String(), "<svg")
		})
	}
}

func TestWriteJSONHeatmap(t *testing.T) {
	c := sampleCharts()[3]
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, JSON, DefaultOptions()))

	var got struct {
		Name    string `json:"name"`
		Heatmap struct {
			Labels []string     `json:"labels"`
			Values [][]*float64 `json:"values"`
			Text   [][]string   `json:"text"`
		} `json:"heatmap"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "correlation_matrix", got.Name)
	assert.Nil(t, got.Heatmap.Values[0][2])
	require.NotNil(t, got.Heatmap.Values[1][2])
	assert.Equal(t, -0.8, *got.Heatmap.Values[1][2])
	assert.Equal(t, "0.50", got.Heatmap.Text[0][1])
	assert.Equal(t, "nan", got.Heatmap.Text[2][0])
}

func TestWriteJSONBars(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleCharts()[2], JSON, DefaultOptions()))
	assert.Contains(t, buf.String(), `"labels": [`)
	assert.NotContains(t, buf.String(), `"heatmap"`)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": PNG, "PNG": PNG, ".svg": SVG, "json": JSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use png, svg, json")
	assert.Equal(t, "png|svg|json", FormatNames("|"))
	assert.Equal(t, "image/svg+xml", SVG.ContentType())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "correlation_matrix.png", FileName(charts.Request{Name: "correlation_matrix"}, PNG))
	assert.Equal(t, "histogram_sleep_hours.svg", FileName(charts.Request{Name: "histogram", Column: "sleep hours"}, SVG))
	assert.Equal(t, "chart.json", FileName(charts.Request{Name: "//"}, JSON))
}

func TestDivergingColor(t *testing.T) {
	assert.Equal(t, uint8(255), divergingColor(0).R)
	assert.Equal(t, coolEnd.B, divergingColor(-1).B)
	assert.Equal(t, warmEnd.R, divergingColor(2).R)
	assert.Equal(t, nanCell, divergingColor(math.NaN()))
}
