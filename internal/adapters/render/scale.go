package render

import (
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/okian/covita/internal/domain/model"
)

const desiredTicks = 6

// axis maps data values onto the drawn y coordinate.
type axis struct {
	scale model.Scale
}

func (a axis) project(v float64) float64 {
	if a.scale == model.SymLog {
		return symlog(v)
	}
	return v
}

// ticks returns y ticks spanning [lo, hi] in data units. The chart range
// follows the outermost ticks.
func (a axis) ticks(lo, hi float64) []chart.Tick {
	if a.scale == model.SymLog {
		return symlogTicks(lo, hi)
	}
	return linearTicks(lo, hi, desiredTicks)
}

// symlog is sign(v)*log10(1+|v|): linear around zero, logarithmic beyond,
// and defined for the negative values day-over-day series produce.
func symlog(v float64) float64 {
	return math.Copysign(math.Log10(1+math.Abs(v)), v)
}

func symlogTicks(lo, hi float64) []chart.Tick {
	ticks := []chart.Tick{{Value: 0, Label: "0"}}
	for p := 1.0; ; p *= 10 {
		ticks = append(ticks, chart.Tick{Value: symlog(p), Label: formatValue(p)})
		if p >= hi {
			break
		}
	}
	if lo < 0 {
		neg := []chart.Tick{}
		for p := 1.0; ; p *= 10 {
			neg = append([]chart.Tick{{Value: symlog(-p), Label: formatValue(-p)}}, neg...)
			if -p <= lo {
				break
			}
		}
		ticks = append(neg, ticks...)
	}
	return ticks
}

// linearTicks picks a 1, 2, 2.5 or 5 step giving roughly n ticks.
func linearTicks(lo, hi float64, n int) []chart.Tick {
	if hi <= lo {
		hi = lo + 1
	}
	mag := math.Pow(10, math.Floor(math.Log10((hi-lo)/float64(n-1))))
	step := mag
	best := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		s := c * mag
		count := math.Ceil((hi - lo) / s)
		if score := math.Abs(count - float64(n)); score < best {
			best = score
			step = s
		}
	}

	start := math.Floor(lo/step) * step
	end := math.Ceil(hi/step) * step
	var ticks []chart.Tick
	// Multiply rather than accumulate so labels carry no summation error.
	decimals := max(0, -int(math.Floor(math.Log10(step)))+1)
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > end+step/2 {
			break
		}
		v = roundTo(v, decimals)
		ticks = append(ticks, chart.Tick{Value: v, Label: formatValue(v)})
	}
	return ticks
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
