package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// DefaultLocationName labels requests that do not name their area.
const DefaultLocationName = "Unnamed Location"

// AnalysisRequest describes an area of interest and the period to examine.
// EndDate is the assessment date; StartDate bounds the NDVI history.
type AnalysisRequest struct {
	Polygon      domain.Polygon `json:"polygon" validate:"required"`
	LocationName string         `json:"location_name,omitempty" validate:"max=200"`
	StartDate    string         `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string         `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ErosionRisk  *float64       `json:"erosion_risk,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// AnalysisResult is an assessment for a request, with its provenance.
type AnalysisResult struct {
	domain.Assessment
	Date         string `json:"date"`
	LocationName string `json:"location_name"`
	RecordID     string `json:"record_id,omitempty"`
	DataSource   string `json:"data_source"`
}

// Indicator provenance reported in AnalysisResult.DataSource.
const (
	SourceImagery  = "imagery"
	SourceDefaults = "defaults"
)

// PredictionResult is a risk forecast together with the assessment it
// projects forward.
type PredictionResult struct {
	domain.RiskForecast
	Current        domain.Assessment `json:"current"`
	HistorySamples int               `json:"history_samples"`
	LocationName   string            `json:"location_name"`
}

// TimeSeriesResult is the NDVI history for a request window.
type TimeSeriesResult struct {
	LocationName string                  `json:"location_name"`
	StartDate    string                  `json:"start_date"`
	EndDate      string                  `json:"end_date"`
	Series       domain.HistoricalSeries `json:"time_series"`
}

// resolved is a validated request with every default applied.
type resolved struct {
	polygon     domain.Polygon
	name        string
	window      domain.DateWindow
	erosionRisk float64
}

func (r resolved) date() string { return r.window.End.Format(domain.DateLayout) }

func (s *Service) resolve(req AnalysisRequest) (resolved, error) {
	if err := s.validate.Struct(req); err != nil {
		return resolved{}, invalid(err)
	}
	if err := req.Polygon.Validate(); err != nil {
		return resolved{}, invalid(err)
	}

	end := today()
	if req.EndDate != "" {
		end, _ = time.Parse(domain.DateLayout, req.EndDate)
	}
	start := end.Add(-s.opts.HistoryWindow)
	if req.StartDate != "" {
		start, _ = time.Parse(domain.DateLayout, req.StartDate)
	}
	window := domain.DateWindow{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return resolved{}, invalid(err)
	}

	name := strings.TrimSpace(req.LocationName)
	if name == "" {
		name = DefaultLocationName
	}
	erosion := s.opts.ErosionRisk
	if req.ErosionRisk != nil {
		erosion = *req.ErosionRisk
	}

	return resolved{polygon: req.Polygon, name: name, window: window, erosionRisk: erosion}, nil
}

func today() time.Time {
	return domain.Now().Truncate(24 * time.Hour)
}

// invalid wraps a validation failure as ErrInvalidRequest with a readable message.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
