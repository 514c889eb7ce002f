package domain

import (
	"context"
	"errors"
	"time"
)

// ErrLocationNotFound is returned by stores for an unknown location ID.
var ErrLocationNotFound = errors.New("location not found")

// IndicatorSource acquires spectral statistics for an area from an imagery backend.
type IndicatorSource interface {
	// FetchIndicators returns mean indices over the polygon for the scenes
	// available in the lookback window ending on date.
	FetchIndicators(ctx context.Context, polygon Polygon, date time.Time) (IndicatorReading, error)

	// FetchNDVISeries returns one NDVI sample per usable scene in the window,
	// oldest first.
	FetchNDVISeries(ctx context.Context, polygon Polygon, window DateWindow) (HistoricalSeries, error)
}

// Advisor produces free-text restoration advice for an assessment summary.
type Advisor interface {
	Advise(ctx context.Context, summary RecommendationSummary) (string, error)
}

// Location identifies a monitored area in the record store.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Lon       float64   `json:"longitude"`
	Lat       float64   `json:"latitude"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRecord is a persisted assessment.
type AnalysisRecord struct {
	ID         string     `json:"id"`
	LocationID int64      `json:"location_id"`
	Date       string     `json:"date"`
	Result     Assessment `json:"result"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AssessmentStore persists assessments keyed by location.
type AssessmentStore interface {
	// SaveAssessment upserts the location by name and appends the assessment,
	// returning the new record ID.
	SaveAssessment(ctx context.Context, loc Location, date string, a Assessment) (string, error)
	ListLocations(ctx context.Context) ([]Location, error)
	// LocationHistory returns up to limit records, newest first.
	LocationHistory(ctx context.Context, locationID int64, limit int) ([]AnalysisRecord, error)
	Ping(ctx context.Context) error
}
