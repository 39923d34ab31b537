package charts

import (
	"math"
	"math/rand/v2"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

var nan = math.NaN()

// histogram counts vals into bins equal-width bins spanning their range.
// Every bin is half-open except the last, which also includes the maximum.
// A constant input gets the range [v-0.5, v+0.5].
func histogram(vals []float64, bins int) (edges []float64, counts []int) {
	lo, _ := stats.Min(vals)
	hi, _ := stats.Max(vals)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges = make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi
	counts = make([]int, bins)
	for _, v := range vals {
		idx := int((v - lo) / (hi - lo) * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		// Guard against rounding placing v one bin off its edges.
		if idx > 0 && v < edges[idx] {
			idx--
		} else if idx < bins-1 && v >= edges[idx+1] {
			idx++
		}
		counts[idx]++
	}
	return edges, counts
}

// scottBandwidth is std * n^(-1/5) with the sample standard deviation.
// It returns 0 when the bandwidth is undefined.
// finite drops ±Inf values, which have no place on a binned axis.
func finite(vals []float64) (kept []float64, dropped int) {
	kept = vals[:0:0]
	for _, v := range vals {
		if math.IsInf(v, 0) {
			dropped++
			continue
		}
		kept = append(kept, v)
	}
	return kept, dropped
}

func scottBandwidth(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(vals)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return sd * math.Pow(float64(len(vals)), -0.2)
}

// kde evaluates a Gaussian kernel density estimate on points evenly spaced
// over [lo, hi]. scale multiplies the density, e.g. n*binWidth for counts.
func kde(vals []float64, bw, lo, hi float64, points int, scale float64) *Curve {
	if points < 2 {
		points = 2
	}
	c := &Curve{X: make([]float64, points), Y: make([]float64, points)}
	step := (hi - lo) / float64(points-1)
	kernel := distuv.Normal{Mu: 0, Sigma: bw}
	n := float64(len(vals))
	for i := range c.X {
		x := lo + float64(i)*step
		sum := 0.0
		for _, v := range vals {
			sum += kernel.Prob(x - v)
		}
		c.X[i] = x
		c.Y[i] = sum / n * scale
	}
	return c
}

// sample draws k values without replacement. The same seed yields the same
// sample for the same input.
func sample(vals []float64, k int, seed uint64) []float64 {
	if k >= len(vals) {
		return vals
	}
	buf := make([]float64, len(vals))
	copy(buf, vals)
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}
