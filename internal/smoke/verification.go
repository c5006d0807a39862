package smoke

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/covita/internal/domain/model"
)

// CheckNational verifies a cumulative national series against its daily
// counterpart.
func CheckNational(metric string, cum, daily []model.Point) []Violation {
	var out []Violation
	add := func(property, format string, args ...any) {
		out = append(out, Violation{Metric: metric, Series: SeriesNational, Property: property, Detail: fmt.Sprintf(format, args...)})
	}

	for _, s := range []struct {
		name string
		ps   []model.Point
	}{{"cumulative", cum}, {"daily", daily}} {
		name, ps := s.name, s.ps
		for i := 1; i < len(ps); i++ {
			if !ps[i].Date.After(ps[i-1].Date) {
				add(PropertyOrdered, "%s: %s does not follow %s", name, day(ps[i].Date), day(ps[i-1].Date))
			}
		}
	}

	dates := make([]time.Time, len(cum))
	values := make([]float64, len(cum))
	for i, p := range cum {
		dates[i], values[i] = p.Date, p.Value
	}
	ddates := make([]time.Time, len(daily))
	dvalues := make([]float64, len(daily))
	for i, p := range daily {
		ddates[i], dvalues[i] = p.Date, p.Value
	}
	for _, v := range checkDifferences(dates, values, ddates, dvalues) {
		add(v.property, "%s", v.detail)
	}
	return out
}

// CheckRegional verifies per-region series: ordering by date then region,
// and differencing that restarts for every region.
func CheckRegional(metric string, cum, daily []model.RegionPoint) []Violation {
	var out []Violation
	add := func(property, format string, args ...any) {
		out = append(out, Violation{Metric: metric, Series: SeriesRegional, Property: property, Detail: fmt.Sprintf(format, args...)})
	}

	for _, s := range []struct {
		name string
		ps   []model.RegionPoint
	}{{"cumulative", cum}, {"daily", daily}} {
		name, ps := s.name, s.ps
		for i := 1; i < len(ps); i++ {
			prev, cur := ps[i-1], ps[i]
			if cur.Date.Before(prev.Date) || (cur.Date.Equal(prev.Date) && cur.Region <= prev.Region) {
				add(PropertyOrdered, "%s: (%s, %s) does not follow (%s, %s)", name, day(cur.Date), cur.Region, day(prev.Date), prev.Region)
			}
		}
	}

	type series struct {
		dates  []time.Time
		values []float64
	}
	group := func(ps []model.RegionPoint) (map[string]*series, []string) {
		m := map[string]*series{}
		var order []string
		for _, p := range ps {
			s, ok := m[p.Region]
			if !ok {
				s = &series{}
				m[p.Region] = s
				order = append(order, p.Region)
			}
			s.dates = append(s.dates, p.Date)
			s.values = append(s.values, p.Value)
		}
		return m, order
	}

	cumByRegion, regions := group(cum)
	dailyByRegion, dailyRegions := group(daily)
	for _, r := range dailyRegions {
		if _, ok := cumByRegion[r]; !ok {
			add(PropertyRegionIsolated, "%s: daily points without a cumulative series", r)
		}
	}
	for _, r := range regions {
		c := cumByRegion[r]
		d, ok := dailyByRegion[r]
		if !ok {
			d = &series{}
		}
		for _, v := range checkDifferences(c.dates, c.values, d.dates, d.values) {
			property := v.property
			if property == PropertyDifference {
				property = PropertyRegionIsolated
			}
			add(property, "%s: %s", r, v.detail)
		}
	}
	return out
}

type finding struct {
	property string
	detail   string
}

// checkDifferences compares one ascending cumulative series with its daily
// series: the first date must be gone and every later value must be the
// difference of consecutive totals.
func checkDifferences(dates []time.Time, values []float64, ddates []time.Time, dvalues []float64) []finding {
	var out []finding
	if len(dates) == 0 {
		if len(ddates) > 0 {
			out = append(out, finding{PropertyFirstDate, fmt.Sprintf("%d daily points without cumulative data", len(ddates))})
		}
		return out
	}

	for _, d := range ddates {
		if d.Equal(dates[0]) {
			out = append(out, finding{PropertyFirstDate, fmt.Sprintf("first date %s present in daily series", day(d))})
		}
	}
	if len(ddates) != len(dates)-1 {
		out = append(out, finding{PropertyDifference, fmt.Sprintf("daily has %d points, want %d", len(ddates), len(dates)-1)})
		return out
	}

	for i := range ddates {
		if !ddates[i].Equal(dates[i+1]) {
			out = append(out, finding{PropertyDifference, fmt.Sprintf("daily date %s, want %s", day(ddates[i]), day(dates[i+1]))})
			continue
		}
		want := values[i+1] - values[i]
		if !almostEqual(dvalues[i], want) {
			out = append(out, finding{PropertyDifference, fmt.Sprintf("%s: daily %g, want %g", day(ddates[i]), dvalues[i], want)})
		}
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func day(t time.Time) string {
	return t.Format(model.DateLayout)
}
