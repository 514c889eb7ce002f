package domain

import (
	"fmt"
	"math"
	"time"
)

// RiskLevel is the ordinal class of a forward-looking risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
	RiskUnknown  RiskLevel = "Unknown"
)

// Risk level boundaries, lower bound inclusive.
const (
	RiskMediumFrom   = 25.0
	RiskHighFrom     = 50.0
	RiskCriticalFrom = 75.0
)

const (
	// ForecastConfidence is the fixed confidence reported with every forecast.
	ForecastConfidence = 0.78

	ForecastMonths = 6
	daysPerMonth   = 30

	// Each month of projection adds up to this many points at risk score 100.
	monthlyProgression = 10.0

	pointConfidenceStart = 0.9
	pointConfidenceDecay = 0.05
	pointConfidenceFloor = 0.5

	maxDrivers = 3
)

// Driver labels, in their fixed priority order.
const (
	DriverDecliningVegetation = "Declining vegetation health"
	DriverMoistureStress      = "Moisture stress"
	DriverSoilExposure        = "High soil exposure"
	DriverErosion             = "Erosion susceptibility"
	DriverUnstableVegetation  = "Unstable vegetation cover"
)

// Current is the present state of the area: its indicators and the
// degradation score computed from them.
type Current struct {
	IndicatorSet
	DegradationScore float64 `json:"degradation_score"`
}

// ForecastPoint is the projected degradation score for one future month.
type ForecastPoint struct {
	Month          int     `json:"month"`
	Date           string  `json:"date"`
	ProjectedScore float64 `json:"projected_score"`
	Confidence     float64 `json:"confidence"`
}

// RiskForecast is the six-month outlook for an area.
type RiskForecast struct {
	RiskLevel      RiskLevel       `json:"risk_level"`
	RiskScore      float64         `json:"risk_score"`
	Confidence     float64         `json:"confidence,omitempty"`
	Forecast       []ForecastPoint `json:"forecast,omitempty"`
	KeyDrivers     []string        `json:"key_drivers,omitempty"`
	PredictionDate time.Time       `json:"prediction_date"`
	Error          string          `json:"error,omitempty"`
}

// Failed reports whether the forecast is the degraded Unknown result.
func (f RiskForecast) Failed() bool {
	return f.RiskLevel == RiskUnknown
}

// RiskScorer turns extracted features into a 0-100 risk score. The heuristic
// is the default; a trained model can be dropped in behind this interface.
type RiskScorer interface {
	Score(f Features) float64
}

// Forecaster projects degradation risk from history and current conditions.
// It is stateless and safe for concurrent use.
type Forecaster struct {
	scorer RiskScorer
}

// NewForecaster returns a Forecaster using scorer, or the heuristic when nil.
func NewForecaster(scorer RiskScorer) *Forecaster {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	return &Forecaster{scorer: scorer}
}

// Predict scores the risk of further degradation and projects it over the
// next six months. It never fails: bad input or a misbehaving scorer yields
// an Unknown forecast carrying the error message.
func (f *Forecaster) Predict(history HistoricalSeries, current Current) (result RiskForecast) {
	now := Now()

	defer func() {
		if r := recover(); r != nil {
			result = failedForecast(now, fmt.Errorf("%v", r))
		}
	}()

	if err := validateInputs(history, current); err != nil {
		return failedForecast(now, err)
	}

	features := ExtractFeatures(history, current.IndicatorSet)
	score := f.scorer.Score(features)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return failedForecast(now, fmt.Errorf("scorer returned %v", score))
	}
	score = math.Min(100, math.Max(0, score))
	reported := round(score, 2)

	return RiskForecast{
		RiskLevel:      ClassifyRisk(reported),
		RiskScore:      reported,
		Confidence:     ForecastConfidence,
		Forecast:       projectForecast(now, score, current.DegradationScore),
		KeyDrivers:     identifyDrivers(features),
		PredictionDate: now,
	}
}

// ClassifyRisk maps a risk score onto half-open risk bands.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score < RiskMediumFrom:
		return RiskLow
	case score < RiskHighFrom:
		return RiskMedium
	case score < RiskCriticalFrom:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func projectForecast(now time.Time, riskScore, baseScore float64) []ForecastPoint {
	rate := riskScore / 100
	points := make([]ForecastPoint, 0, ForecastMonths)
	for m := 1; m <= ForecastMonths; m++ {
		projected := math.Min(100, baseScore+rate*float64(m)*monthlyProgression)
		points = append(points, ForecastPoint{
			Month:          m,
			Date:           now.AddDate(0, 0, daysPerMonth*m).Format(DateLayout),
			ProjectedScore: round(projected, 1),
			Confidence:     round(math.Max(pointConfidenceFloor, pointConfidenceStart-pointConfidenceDecay*float64(m)), 2),
		})
	}
	return points
}

func identifyDrivers(f Features) []string {
	candidates := []struct {
		label string
		hit   bool
	}{
		{DriverDecliningVegetation, f.NDVITrend < TrendDeclineBelow},
		{DriverMoistureStress, f.Moisture < MoistureStressBelow},
		{DriverSoilExposure, f.BareSoil > BareSoilExposedAbove},
		{DriverErosion, f.ErosionRisk > ErosionSusceptibleAbove},
		{DriverUnstableVegetation, f.NDVIVolatility > VolatilityUnstableAbove},
	}
	drivers := make([]string, 0, maxDrivers)
	for _, c := range candidates {
		if c.hit && len(drivers) < maxDrivers {
			drivers = append(drivers, c.label)
		}
	}
	return drivers
}

func validateInputs(history HistoricalSeries, current Current) error {
	if err := current.IndicatorSet.Validate(); err != nil {
		return err
	}
	if math.IsNaN(current.DegradationScore) || math.IsInf(current.DegradationScore, 0) {
		return fmt.Errorf("%w: degradation_score is not a finite number", ErrInvalidIndicators)
	}
	for i, s := range history {
		if math.IsNaN(s.NDVI) || math.IsInf(s.NDVI, 0) {
			return fmt.Errorf("%w: history sample %d ndvi is not a finite number", ErrInvalidIndicators, i)
		}
	}
	return nil
}

func failedForecast(now time.Time, err error) RiskForecast {
	return RiskForecast{
		RiskLevel:      RiskUnknown,
		RiskScore:      0,
		PredictionDate: now,
		Error:          fmt.Sprintf("Prediction failed: %v", err),
	}
}
