package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Fallback index values used when imagery is unavailable for the window.
const (
	DefaultNDVI          = 0.5
	DefaultNDMI          = 0.3
	DefaultBareSoilIndex = 0.2
	DefaultErosionRisk   = 0.3
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// IndicatorSet holds the spectral indices measured for an area on a date,
// plus the externally supplied erosion risk.
type IndicatorSet struct {
	NDVI          float64 `json:"ndvi"`
	NDMI          float64 `json:"ndmi"`
	BareSoilIndex float64 `json:"bare_soil_index"`
	ErosionRisk   float64 `json:"erosion_risk"`
}

// DefaultIndicators returns the set substituted when no imagery is available.
func DefaultIndicators(erosionRisk float64) IndicatorSet {
	return IndicatorSet{
		NDVI:          DefaultNDVI,
		NDMI:          DefaultNDMI,
		BareSoilIndex: DefaultBareSoilIndex,
		ErosionRisk:   erosionRisk,
	}
}

// Validate reports whether every field is a finite number.
func (s IndicatorSet) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"ndvi", s.NDVI},
		{"ndmi", s.NDMI},
		{"bare_soil_index", s.BareSoilIndex},
		{"erosion_risk", s.ErosionRisk},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidIndicators, f.name)
		}
	}
	return nil
}

// IndicatorReading is what the imagery backend returns. Any index may be
// missing when the scene has no valid pixels over the area.
type IndicatorReading struct {
	NDVI          *float64 `json:"ndvi"`
	NDMI          *float64 `json:"ndmi"`
	BareSoilIndex *float64 `json:"bare_soil_index"`
}

// Resolve fills missing indices with their defaults and attaches the erosion risk.
func (r IndicatorReading) Resolve(erosionRisk float64) IndicatorSet {
	return IndicatorSet{
		NDVI:          valueOr(r.NDVI, DefaultNDVI),
		NDMI:          valueOr(r.NDMI, DefaultNDMI),
		BareSoilIndex: valueOr(r.BareSoilIndex, DefaultBareSoilIndex),
		ErosionRisk:   erosionRisk,
	}
}

// Complete reports whether all three indices were measured.
func (r IndicatorReading) Complete() bool {
	return r.NDVI != nil && r.NDMI != nil && r.BareSoilIndex != nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return *v
}

// Sample is one NDVI observation of a historical series.
type Sample struct {
	Date string  `json:"date"`
	NDVI float64 `json:"ndvi"`
}

// HistoricalSeries is a chronologically ordered list of NDVI samples.
type HistoricalSeries []Sample

// NDVIValues returns the ndvi column in series order.
func (h HistoricalSeries) NDVIValues() []float64 {
	values := make([]float64, len(h))
	for i, s := range h {
		values[i] = s.NDVI
	}
	return values
}

// Coordinate is a WGS-84 position, encoded on the wire as [lon, lat].
type Coordinate struct {
	Lon float64
	Lat float64
}

// MarshalJSON encodes the coordinate as a two-element array.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

// UnmarshalJSON decodes a [lon, lat] pair and rejects any other arity.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate: expected [lon, lat], got %d values", len(pair))
	}
	c.Lon, c.Lat = pair[0], pair[1]
	return nil
}

// Polygon is the area of interest as an ordered ring of vertices.
type Polygon []Coordinate

// Validate checks the ring has at least three vertices inside WGS-84 bounds.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("%w: need at least 3 vertices, got %d", ErrInvalidPolygon, len(p))
	}
	for i, c := range p {
		if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
			return fmt.Errorf("%w: vertex %d is not finite", ErrInvalidPolygon, i)
		}
		if c.Lon < -180 || c.Lon > 180 {
			return fmt.Errorf("%w: vertex %d longitude %g out of range [-180, 180]", ErrInvalidPolygon, i, c.Lon)
		}
		if c.Lat < -90 || c.Lat > 90 {
			return fmt.Errorf("%w: vertex %d latitude %g out of range [-90, 90]", ErrInvalidPolygon, i, c.Lat)
		}
	}
	return nil
}

// Centroid returns the vertex average. The closing vertex of an explicitly
// closed ring is not counted twice.
func (p Polygon) Centroid() Coordinate {
	pts := p
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) == 0 {
		return Coordinate{}
	}
	var sumLon, sumLat float64
	for _, c := range pts {
		sumLon += c.Lon
		sumLat += c.Lat
	}
	n := float64(len(pts))
	return Coordinate{Lon: sumLon / n, Lat: sumLat / n}
}

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Validate rejects windows whose start falls after their end.
func (w DateWindow) Validate() error {
	if w.Start.After(w.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow,
			w.Start.Format(DateLayout), w.End.Format(DateLayout))
	}
	return nil
}

var (
	ErrInvalidPolygon    = errors.New("invalid polygon")
	ErrInvalidWindow     = errors.New("invalid date window")
	ErrInvalidIndicators = errors.New("invalid indicators")
)
