package render

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	coolEnd = drawing.ColorFromHex("3b4cc0")
	warmEnd = drawing.ColorFromHex("b40426")
	nanCell = drawing.ColorFromHex("d9d9d9")
)

// divergingColor maps [-1, 1] onto blue-white-red with white at 0.
func divergingColor(v float64) drawing.Color {
	if math.IsNaN(v) {
		return nanCell
	}
	v = math.Max(-1, math.Min(1, v))
	end := warmEnd
	if v < 0 {
		end, v = coolEnd, -v
	}
	mix := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*v + 0.5) }
	w := drawing.ColorWhite
	return drawing.Color{R: mix(w.R, end.R), G: mix(w.G, end.G), B: mix(w.B, end.B), A: 255}
}

func annotation(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.2f", v)
}

// drawHeatmap paints the matrix cell by cell with row labels on the left,
// column labels underneath and the value annotated in each cell.
func drawHeatmap(w io.Writer, rp chart.RendererProvider, c *charts.Chart, width, height int) error {
	hm := c.Heatmap
	n := hm.Size()
	if n == 0 {
		return fmt.Errorf("chart %s: empty matrix", c.Name)
	}
	r, err := rp(width, height)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	r.SetFont(font)

	r.SetFillColor(drawing.ColorWhite)
	fillRect(r, 0, 0, width, height)

	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(10)
	labelW := 0
	for _, l := range hm.Labels {
		if tw := r.MeasureText(l).Width(); tw > labelW {
			labelW = tw
		}
	}
	const top, pad, legendW = 50, 12, 40
	left := labelW + 2*pad
	bottom := labelW + 2*pad
	cell := min((width-left-legendW-2*pad)/n, (height-top-bottom)/n)
	if cell < 8 {
		cell = 8
	}

	r.SetFontSize(14)
	tb := r.MeasureText(c.Title)
	r.Text(c.Title, (width-tb.Width())/2, top/2+tb.Height()/2)

	annotSize := math.Min(12, float64(cell)/4)
	for i := 0; i < n; i++ {
		y := top + i*cell
		for j := 0; j < n; j++ {
			x := left + j*cell
			v := hm.At(i, j)
			r.SetFillColor(divergingColor(v))
			r.SetStrokeColor(drawing.ColorWhite)
			r.SetStrokeWidth(1)
			fillRect(r, x, y, x+cell, y+cell)

			txt := annotation(v)
			r.SetFontSize(annotSize)
			if !math.IsNaN(v) && math.Abs(v) > 0.6 {
				r.SetFontColor(drawing.ColorWhite)
			} else {
				r.SetFontColor(drawing.ColorBlack)
			}
			b := r.MeasureText(txt)
			r.Text(txt, x+(cell-b.Width())/2, y+(cell+b.Height())/2)
		}
	}

	r.SetFontSize(10)
	r.SetFontColor(drawing.ColorBlack)
	for i, l := range hm.Labels {
		b := r.MeasureText(l)
		r.Text(l, left-pad-b.Width(), top+i*cell+(cell+b.Height())/2)
	}
	r.SetTextRotation(chart.DegreesToRadians(90))
	for j, l := range hm.Labels {
		r.Text(l, left+j*cell+cell/2, top+n*cell+pad)
	}
	r.ClearTextRotation()

	drawScale(r, left+n*cell+pad, top, legendW/2, n*cell)
	return r.Save(w)
}

// drawScale draws the colour bar for [-1, 1], top to bottom.
func drawScale(r chart.Renderer, x, y, w, h int) {
	const steps = 40
	for s := 0; s < steps; s++ {
		v := 1 - 2*float64(s)/float64(steps-1)
		y0 := y + s*h/steps
		y1 := y + (s+1)*h/steps
		r.SetFillColor(divergingColor(v))
		r.SetStrokeColor(divergingColor(v))
		r.SetStrokeWidth(0)
		fillRect(r, x, y0, x+w, y1)
	}
	r.SetFontSize(9)
	r.SetFontColor(drawing.ColorBlack)
	for _, tick := range []float64{1, 0, -1} {
		ty := y + int((1-tick)/2*float64(h))
		r.Text(fmt.Sprintf("%.0f", tick), x+w+3, ty+4)
	}
}

func fillRect(r chart.Renderer, x0, y0, x1, y1 int) {
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.FillStroke()
}
