package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// RasterSample is one georeferenced land-surface-temperature reading in kelvin
type RasterSample struct {
	Lon float64 `json:"lon" db:"lon"`
	Lat float64 `json:"lat" db:"lat"`
	LST float64 `json:"LST" db:"lst"`
}

// Validate rejects samples that cannot be placed on the map
func (s RasterSample) Validate() error {
	if math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0) || s.Lon < -180 || s.Lon > 180 {
		return &ValidationError{Field: "lon", Value: fmt.Sprint(s.Lon), Message: "longitude must be finite and within [-180, 180]"}
	}
	if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || s.Lat < -90 || s.Lat > 90 {
		return &ValidationError{Field: "lat", Value: fmt.Sprint(s.Lat), Message: "latitude must be finite and within [-90, 90]"}
	}
	if math.IsNaN(s.LST) || math.IsInf(s.LST, 0) {
		return &ValidationError{Field: "LST", Value: fmt.Sprint(s.LST), Message: "LST must be finite"}
	}
	return nil
}

// DayFile is the on-disk document holding one day of samples
type DayFile struct {
	Date string         `json:"date,omitempty"`
	Data []RasterSample `json:"data"`
}

// DaySnapshot is one julian day's full raster. Day is 1-based.
type DaySnapshot struct {
	Day     int            `json:"day"`
	Samples []RasterSample `json:"samples"`
}

// DailyMean is the arithmetic mean LST of one snapshot. MeanLST is NaN for an empty snapshot.
type DailyMean struct {
	Day         int
	MeanLST     float64
	SampleCount int
}

// MarshalJSON writes NaN means as null
func (m DailyMean) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Day         int      `json:"day"`
		MeanLST     *float64 `json:"meanLST"`
		SampleCount int      `json:"sampleCount"`
	}{m.Day, finiteOrNil(m.MeanLST), m.SampleCount})
}

// DailyMeanRecord is the export row of daily_mean_LST_US.json
type DailyMeanRecord struct {
	Date    string   `json:"date"`
	MeanLST *float64 `json:"mean_LST"`
}

// ProbeLocation is the geographic point being inspected
type ProbeLocation struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// String formats the location the way the panel title shows it
func (p ProbeLocation) String() string {
	return fmt.Sprintf("%.2f°, %.2f°", p.Lon, p.Lat)
}

// ProbeTimeSeries holds the nearest-sample LST at Location for every day of the range.
// Values[i] belongs to day i+1; nil marks a day with no data.
type ProbeTimeSeries struct {
	Location ProbeLocation `json:"location"`
	Values   []*float64    `json:"values"`
}

// At returns the value for a 1-based day
func (ts *ProbeTimeSeries) At(day int) (float64, bool) {
	if ts == nil || day < 1 || day > len(ts.Values) || ts.Values[day-1] == nil {
		return 0, false
	}
	return *ts.Values[day-1], true
}

// Present counts days holding a value
func (ts *ProbeTimeSeries) Present() int {
	n := 0
	for _, v := range ts.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// Float returns a pointer to a copy of v, or nil when v is not finite
func Float(v float64) *float64 {
	return finiteOrNil(v)
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
