package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of series dates.
const DateLayout = "2006-01-02"

// Point is one national observation.
type Point struct {
	Date  time.Time
	Value float64
	// Total is the cumulative value at Date; equal to Value in cumulative mode.
	Total float64
}

// RegionPoint is one observation of a single region.
type RegionPoint struct {
	Date   time.Time
	Region string
	Value  float64
	Total  float64
}

type pointJSON struct {
	Date   string  `json:"date"`
	Region string  `json:"region,omitempty"`
	Value  float64 `json:"value"`
	Total  float64 `json:"total"`
}

// MarshalJSON encodes the date as YYYY-MM-DD.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Date: p.Date.Format(DateLayout), Value: p.Value, Total: p.Total})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	*p = Point{Date: d, Value: raw.Value, Total: raw.Total}
	return nil
}

// MarshalJSON encodes the date as YYYY-MM-DD.
func (p RegionPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Date: p.Date.Format(DateLayout), Region: p.Region, Value: p.Value, Total: p.Total})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (p *RegionPoint) UnmarshalJSON(data []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	*p = RegionPoint{Date: d, Region: raw.Region, Value: raw.Value, Total: raw.Total}
	return nil
}
