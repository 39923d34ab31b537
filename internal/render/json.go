package render

import (
	"encoding/json"
	"io"
	"math"

	"github.com/KaramelBytes/edaloom/internal/charts"
)

type heatmapJSON struct {
	Labels []string     `json:"labels"`
	Values [][]*float64 `json:"values"`
	Text   [][]string   `json:"text"`
}

type chartJSON struct {
	*charts.Chart
	Heatmap *heatmapJSON `json:"heatmap,omitempty"`
}

// writeJSON encodes the figure data. NaN matrix entries become null.
func writeJSON(w io.Writer, c *charts.Chart) error {
	out := chartJSON{Chart: c}
	if hm := c.Heatmap; hm != nil {
		n := hm.Size()
		h := &heatmapJSON{Labels: hm.Labels, Values: make([][]*float64, n), Text: make([][]string, n)}
		for i := 0; i < n; i++ {
			h.Values[i] = make([]*float64, n)
			h.Text[i] = make([]string, n)
			for j := 0; j < n; j++ {
				v := hm.At(i, j)
				h.Text[i][j] = annotation(v)
				if !math.IsNaN(v) {
					h.Values[i][j] = &v
				}
			}
		}
		out.Heatmap = h
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
