package domain

import (
	"cmp"
	"math"
	"slices"
)

// Severity is the ordinal class of a composite degradation score.
type Severity string

const (
	SeverityHealthy          Severity = "Healthy"
	SeverityAtRisk           Severity = "At Risk"
	SeverityDegraded         Severity = "Degraded"
	SeveritySeverelyDegraded Severity = "Severely Degraded"
)

// Composite weights. They sum to 1 so the score spans 0-100.
const (
	WeightVegetation   = 0.30
	WeightMoisture     = 0.25
	WeightSoilExposure = 0.25
	WeightErosion      = 0.20
)

// Signal transform constants: the index value at which a signal reaches zero.
const (
	ndviHealthyLevel = 0.6
	ndmiHealthyLevel = 0.4
	bsiSignalGain    = 2.0
)

// Severity boundaries, lower bound inclusive.
const (
	SeverityAtRiskFrom   = 25.0
	SeverityDegradedFrom = 50.0
	SeveritySevereFrom   = 75.0
)

const (
	// AssessmentConfidence is the fixed confidence reported with every assessment.
	AssessmentConfidence = 0.85

	// factorThreshold is the signal level a factor must exceed to be reported.
	factorThreshold = 0.3
	maxFactors      = 2
)

// Factor labels, in their fixed enumeration order.
const (
	FactorVegetation   = "Low vegetation cover"
	FactorMoisture     = "Soil moisture deficit"
	FactorSoilExposure = "High bare soil exposure"
	FactorErosion      = "Erosion risk"
)

// Signals are the indices normalized so that 0 is healthy and 1 is fully degraded.
type Signals struct {
	Vegetation   float64
	Moisture     float64
	SoilExposure float64
	Erosion      float64
}

// Breakdown reports each signal as a percentage.
type Breakdown struct {
	VegetationHealth float64 `json:"vegetation_health"`
	MoistureLevel    float64 `json:"moisture_level"`
	SoilExposure     float64 `json:"soil_exposure"`
	ErosionRisk      float64 `json:"erosion_risk"`
}

// Assessment is the degradation verdict for one indicator set.
type Assessment struct {
	DegradationScore float64   `json:"degradation_score"`
	Severity         Severity  `json:"severity"`
	Confidence       float64   `json:"confidence"`
	PrimaryFactors   []string  `json:"primary_factors"`
	Indicators       Breakdown `json:"indicators"`
}

// ComputeSignals converts raw indices into degradation signals in [0, 1].
func ComputeSignals(in IndicatorSet) Signals {
	return Signals{
		Vegetation:   clamp01((ndviHealthyLevel - in.NDVI) / ndviHealthyLevel),
		Moisture:     clamp01((ndmiHealthyLevel - in.NDMI) / ndmiHealthyLevel),
		SoilExposure: clamp01(in.BareSoilIndex * bsiSignalGain),
		Erosion:      clamp01(in.ErosionRisk),
	}
}

// ComputeAssessment scores an indicator set, classifies its severity, and
// names the factors driving it. It is a pure function of its input.
func ComputeAssessment(in IndicatorSet) Assessment {
	s := ComputeSignals(in)

	composite := (s.Vegetation*WeightVegetation +
		s.Moisture*WeightMoisture +
		s.SoilExposure*WeightSoilExposure +
		s.Erosion*WeightErosion) * 100
	score := round(composite, 2)

	return Assessment{
		DegradationScore: score,
		Severity:         ClassifySeverity(score),
		Confidence:       AssessmentConfidence,
		PrimaryFactors:   primaryFactors(s),
		Indicators: Breakdown{
			VegetationHealth: round((1-s.Vegetation)*100, 1),
			MoistureLevel:    round((1-s.Moisture)*100, 1),
			SoilExposure:     round(s.SoilExposure*100, 1),
			ErosionRisk:      round(s.Erosion*100, 1),
		},
	}
}

// ClassifySeverity maps a composite score onto half-open severity bands.
func ClassifySeverity(score float64) Severity {
	switch {
	case score < SeverityAtRiskFrom:
		return SeverityHealthy
	case score < SeverityDegradedFrom:
		return SeverityAtRisk
	case score < SeveritySevereFrom:
		return SeverityDegraded
	default:
		return SeveritySeverelyDegraded
	}
}

type factor struct {
	label  string
	signal float64
}

// primaryFactors ranks the signals from worst to best and keeps up to two
// that exceed the reporting threshold. Equal signals keep enumeration order.
func primaryFactors(s Signals) []string {
	ranked := []factor{
		{FactorVegetation, s.Vegetation},
		{FactorMoisture, s.Moisture},
		{FactorSoilExposure, s.SoilExposure},
		{FactorErosion, s.Erosion},
	}
	slices.SortStableFunc(ranked, func(a, b factor) int {
		return cmp.Compare(b.signal, a.signal)
	})

	out := make([]string, 0, maxFactors)
	for _, f := range ranked[:maxFactors] {
		if f.signal > factorThreshold {
			out = append(out, f.label)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// round rounds half away from zero to the given number of decimals.
func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
