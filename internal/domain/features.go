package domain

import "math"

// Heuristic thresholds shared by the scorer and the driver ranking.
const (
	NDVISparseBelow         = 0.3
	NDVIThinBelow           = 0.5
	TrendDeclineBelow       = -0.01
	VolatilityUnstableAbove = 0.1
	MoistureStressBelow     = 0.2
	BareSoilExposedAbove    = 0.5
	ErosionSusceptibleAbove = 0.5
)

// Heuristic score contributions.
const (
	pointsSparseVegetation = 30.0
	pointsThinVegetation   = 15.0
	pointsDecliningTrend   = 25.0
	pointsVolatility       = 15.0
	pointsMoistureStress   = 20.0
	pointsBareSoil         = 20.0
	pointsPerErosionUnit   = 25.0
	maxRiskScore           = 100.0
)

// Features are the model inputs derived from history and current conditions.
type Features struct {
	CurrentNDVI    float64 `json:"current_ndvi"`
	NDVITrend      float64 `json:"ndvi_trend"`
	NDVIVolatility float64 `json:"ndvi_volatility"`
	Moisture       float64 `json:"moisture"`
	BareSoil       float64 `json:"bare_soil"`
	ErosionRisk    float64 `json:"erosion_risk"`
	Samples        int     `json:"samples"`
}

// ExtractFeatures derives trend and volatility from the NDVI history. With no
// history those terms are zero and only the current indicators contribute.
func ExtractFeatures(history HistoricalSeries, current IndicatorSet) Features {
	f := Features{
		CurrentNDVI: current.NDVI,
		Moisture:    current.NDMI,
		BareSoil:    current.BareSoilIndex,
		ErosionRisk: current.ErosionRisk,
		Samples:     len(history),
	}
	if len(history) == 0 {
		return f
	}
	values := history.NDVIValues()
	f.NDVITrend = LinearTrend(values)
	f.NDVIVolatility = StdDev(values)
	return f
}

// LinearTrend is the least-squares slope of values against their index.
// Fewer than two points have no slope and yield 0.
func LinearTrend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	meanX := float64(n-1) / 2
	meanY := mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	return num / den
}

// StdDev is the population standard deviation; empty input yields 0.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// HeuristicScorer is the additive rule set that stands in for a trained model.
type HeuristicScorer struct{}

// Score sums the rule contributions and caps the total at 100.
func (HeuristicScorer) Score(f Features) float64 {
	var score float64

	switch {
	case f.CurrentNDVI < NDVISparseBelow:
		score += pointsSparseVegetation
	case f.CurrentNDVI < NDVIThinBelow:
		score += pointsThinVegetation
	}
	if f.NDVITrend < TrendDeclineBelow {
		score += pointsDecliningTrend
	}
	if f.NDVIVolatility > VolatilityUnstableAbove {
		score += pointsVolatility
	}
	if f.Moisture < MoistureStressBelow {
		score += pointsMoistureStress
	}
	if f.BareSoil > BareSoilExposedAbove {
		score += pointsBareSoil
	}
	score += f.ErosionRisk * pointsPerErosionUnit

	return math.Min(maxRiskScore, score)
}
