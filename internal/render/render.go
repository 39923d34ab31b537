package render

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an output encoding for a chart.
type Format string

const (
	PNG  Format = "png"
	SVG  Format = "svg"
	JSON Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{PNG, SVG, JSON}

// FormatNames joins the supported format names with sep.
func FormatNames(sep string) string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, sep)
}

// ParseFormat resolves a format name; empty means PNG.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(s, "."))
	if name == "" {
		return PNG, nil
	}
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (use %s)", s, FormatNames(", "))
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case SVG:
		return "image/svg+xml"
	case JSON:
		return "application/json"
	}
	return "image/png"
}

// Options sets the canvas size in pixels.
type Options struct {
	Width  int `mapstructure:"width" yaml:"width" json:"width"`
	Height int `mapstructure:"height" yaml:"height" json:"height"`
}

// DefaultOptions returns a 1024x640 canvas.
func DefaultOptions() Options { return Options{Width: 1024, Height: 640} }

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 640
	}
	return w, h
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns a stable output name for a chart request.
func FileName(req charts.Request, f Format) string {
	name := req.Name
	if req.Column != "" {
		name += "_" + req.Column
	}
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "chart"
	}
	return name + "." + string(f)
}

// Write encodes c to w in format f.
func Write(w io.Writer, c *charts.Chart, f Format, opt Options) error {
	if f == JSON {
		return writeJSON(w, c)
	}
	var rp chart.RendererProvider
	switch f {
	case PNG:
		rp = chart.PNG
	case SVG:
		rp = chart.SVG
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
	width, height := opt.size()
	switch {
	case c.Histogram != nil:
		return histogramChart(c, width, height).Render(rp, w)
	case c.Grouped != nil:
		return groupedChart(c, width, height).Render(rp, w)
	case c.Bars != nil:
		return barChart(c, width, height).Render(rp, w)
	case c.Heatmap != nil:
		return drawHeatmap(w, rp, c, width, height)
	}
	return fmt.Errorf("chart %s has no figure data", c.Name)
}

var palette = []drawing.Color{
	drawing.ColorFromHex("4c72b0"),
	drawing.ColorFromHex("dd8452"),
	drawing.ColorFromHex("55a868"),
	drawing.ColorFromHex("c44e52"),
	drawing.ColorFromHex("8172b3"),
	drawing.ColorFromHex("937860"),
	drawing.ColorFromHex("da8bc3"),
	drawing.ColorFromHex("8c8c8c"),
	drawing.ColorFromHex("ccb974"),
	drawing.ColorFromHex("64b5cd"),
}

func color(i int) drawing.Color { return palette[i%len(palette)] }

func title(c *charts.Chart) string {
	if len(c.Notes) == 0 {
		return c.Title
	}
	return fmt.Sprintf("%s (%s)", c.Title, strings.Join(c.Notes, "; "))
}

// histogramChart draws the bins as a filled step outline with the optional
// density curve on top.
func histogramChart(c *charts.Chart, width, height int) *chart.Chart {
	h := c.Histogram
	xs := []float64{h.Edges[0]}
	ys := []float64{0}
	top := 0.0
	for i, n := range h.Counts {
		v := float64(n)
		xs = append(xs, h.Edges[i], h.Edges[i+1])
		ys = append(ys, v, v)
		top = math.Max(top, v)
	}
	xs = append(xs, h.Edges[len(h.Edges)-1])
	ys = append(ys, 0)

	fill := color(0).WithAlpha(110)
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "count",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: color(0), StrokeWidth: 1.5, FillColor: fill},
		},
	}
	if h.KDE != nil {
		for _, y := range h.KDE.Y {
			top = math.Max(top, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "density",
			XValues: h.KDE.X,
			YValues: h.KDE.Y,
			Style:   chart.Style{StrokeColor: color(3), StrokeWidth: 2},
		})
	}
	if top == 0 {
		top = 1
	}
	ch := &chart.Chart{
		Title:      title(c),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: c.XLabel},
		YAxis:      chart.YAxis{Name: c.YLabel, Range: &chart.ContinuousRange{Min: 0, Max: top * 1.05}},
		Series:     series,
	}
	if h.KDE != nil {
		ch.Elements = []chart.Renderable{chart.Legend(ch)}
	}
	return ch
}

func barRange(vals []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi * 1.05}
}

func barChart(c *charts.Chart, width, height int) *chart.BarChart {
	b := c.Bars
	bars := make([]chart.Value, len(b.Labels))
	for i, l := range b.Labels {
		bars[i] = chart.Value{
			Label: l,
			Value: b.Values[i],
			Style: chart.Style{FillColor: color(0), StrokeColor: color(0)},
		}
	}
	bw, sp := barLayout(width, len(bars))
	return &chart.BarChart{
		Title:      title(c),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   bw,
		BarSpacing: sp,
		XAxis:      chart.Style{},
		YAxis:      chart.YAxis{Name: c.YLabel, Range: barRange(b.Values)},
		Bars:       bars,
	}
}

// groupedChart lays out one run of bars per group, coloured by level, with an
// invisible spacer bar between groups.
func groupedChart(c *charts.Chart, width, height int) *chart.BarChart {
	g := c.Grouped
	var bars []chart.Value
	var vals []float64
	for gi, group := range g.Groups {
		if gi > 0 {
			bars = append(bars, chart.Value{
				Label: " ",
				Value: 0,
				Style: chart.Style{FillColor: drawing.ColorTransparent, StrokeColor: drawing.ColorTransparent},
			})
		}
		for li, level := range g.Levels {
			v := float64(g.Counts[gi][li])
			vals = append(vals, v)
			bars = append(bars, chart.Value{
				Label: group + " · " + level,
				Value: v,
				Style: chart.Style{FillColor: color(li), StrokeColor: color(li)},
			})
		}
	}
	bw, sp := barLayout(width, len(bars))
	return &chart.BarChart{
		Title:      title(c),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   bw,
		BarSpacing: sp,
		XAxis:      chart.Style{FontSize: 7},
		YAxis:      chart.YAxis{Name: c.YLabel, Range: barRange(vals)},
		Bars:       bars,
	}
}

// barLayout splits the plot width into bar and gap widths so every bar fits.
func barLayout(width, n int) (bar, spacing int) {
	if n == 0 {
		return 40, 20
	}
	per := (width - 120) / n
	if per < 3 {
		per = 3
	}
	bar = per * 3 / 4
	if bar > 80 {
		bar = 80
	}
	if bar < 2 {
		bar = 2
	}
	spacing = per - bar
	if spacing < 1 {
		spacing = 1
	}
	return bar, spacing
}
