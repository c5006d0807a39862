// Package aggregate turns a dataset into national and per-region series.
//
// Both entry points are pure: they never mutate the dataset and hold no
// state between calls.
package aggregate

import (
	"sort"
	"time"

	"github.com/okian/covita/internal/domain/model"
)

// National sums req.Metric across all regions per date, sorted by date
// ascending. In daily-change mode each value becomes the difference from
// the previous date and the first date is dropped.
func National(ds *model.Dataset, req model.Request) ([]model.Point, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sums := make(map[time.Time]float64)
	for _, r := range records(ds) {
		sums[model.TruncateToDay(r.Date)] += r.Value(req.Metric)
	}

	totals := make([]model.Point, 0, len(sums))
	for d, v := range sums {
		totals = append(totals, model.Point{Date: d, Value: v, Total: v})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date.Before(totals[j].Date) })

	if req.Mode == model.Cumulative {
		return totals, nil
	}
	return differenceNational(totals), nil
}

// differenceNational returns first differences of an ascending series. The
// first point has no predecessor and is left out.
func differenceNational(totals []model.Point) []model.Point {
	if len(totals) < 2 {
		return []model.Point{}
	}
	out := make([]model.Point, 0, len(totals)-1)
	for i := 1; i < len(totals); i++ {
		out = append(out, model.Point{
			Date:  totals[i].Date,
			Value: totals[i].Total - totals[i-1].Total,
			Total: totals[i].Total,
		})
	}
	return out
}

type regionDay struct {
	region string
	date   time.Time
}

// ByRegion sums req.Metric per (date, region) for the regions in
// req.Regions. An empty region filter selects nothing. In daily-change mode
// differences are taken within each region only, and every region loses its
// own first date.
//
// Output is ordered by date, then region name.
func ByRegion(ds *model.Dataset, req model.Request) ([]model.RegionPoint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Regions) == 0 {
		return []model.RegionPoint{}, nil
	}

	wanted := make(map[string]struct{}, len(req.Regions))
	for _, name := range req.Regions {
		wanted[name] = struct{}{}
	}

	sums := make(map[regionDay]float64)
	for _, r := range records(ds) {
		if _, ok := wanted[r.Region]; !ok {
			continue
		}
		sums[regionDay{region: r.Region, date: model.TruncateToDay(r.Date)}] += r.Value(req.Metric)
	}

	partitions := make(map[string][]model.RegionPoint)
	for k, v := range sums {
		partitions[k.region] = append(partitions[k.region], model.RegionPoint{
			Date:   k.date,
			Region: k.region,
			Value:  v,
			Total:  v,
		})
	}

	out := make([]model.RegionPoint, 0, len(sums))
	for _, part := range partitions {
		sort.Slice(part, func(i, j int) bool { return part[i].Date.Before(part[j].Date) })
		if req.Mode == model.DailyChange {
			part = differenceRegion(part)
		}
		out = append(out, part...)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}

// differenceRegion differences one region's ascending partition.
func differenceRegion(part []model.RegionPoint) []model.RegionPoint {
	if len(part) < 2 {
		return nil
	}
	out := make([]model.RegionPoint, 0, len(part)-1)
	for i := 1; i < len(part); i++ {
		out = append(out, model.RegionPoint{
			Date:   part[i].Date,
			Region: part[i].Region,
			Value:  part[i].Total - part[i-1].Total,
			Total:  part[i].Total,
		})
	}
	return out
}

func records(ds *model.Dataset) []model.Record {
	if ds == nil {
		return nil
	}
	return ds.Records
}
