package domain

import (
	"fmt"
	"strings"
)

// RecommendationConfidence is reported with generated advice.
const RecommendationConfidence = 0.85

// FallbackNote accompanies the static advice table.
const FallbackNote = "Generic recommendations provided. Connect API for personalized analysis."

// RecommendationSummary is the slice of an assessment handed to the advisor.
type RecommendationSummary struct {
	Severity         Severity  `json:"severity" validate:"required"`
	DegradationScore float64   `json:"degradation_score" validate:"gte=0,lte=100"`
	PrimaryFactors   []string  `json:"primary_factors"`
	Indicators       Breakdown `json:"indicators"`
	Date             string    `json:"date,omitempty"`
	LocationName     string    `json:"location_name,omitempty"`
}

// SummaryOf builds a recommendation summary from an assessment.
func SummaryOf(a Assessment, date, locationName string) RecommendationSummary {
	return RecommendationSummary{
		Severity:         a.Severity,
		DegradationScore: a.DegradationScore,
		PrimaryFactors:   a.PrimaryFactors,
		Indicators:       a.Indicators,
		Date:             date,
		LocationName:     locationName,
	}
}

// RecommendationResult is restoration advice for an assessed area. Exactly
// one of Recommendations or Fallback is populated.
type RecommendationResult struct {
	Recommendations string   `json:"recommendations,omitempty"`
	Fallback        []string `json:"fallback_recommendations,omitempty"`
	Severity        Severity `json:"severity"`
	PrimaryFocus    []string `json:"primary_focus"`
	GeneratedAt     string   `json:"generated_at,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	Note            string   `json:"note,omitempty"`
	Error           string   `json:"error,omitempty"`
}

var fallbackAdvice = map[Severity][]string{
	SeveritySeverelyDegraded: {
		"Implement erosion control measures (terracing, contour farming)",
		"Plant cover crops to restore soil structure",
		"Add organic matter and compost",
		"Consider agroforestry systems",
	},
	SeverityDegraded: {
		"Establish cover cropping rotation",
		"Implement conservation tillage",
		"Improve irrigation efficiency",
		"Plant deep-rooted vegetation",
	},
	SeverityAtRisk: {
		"Monitor soil moisture regularly",
		"Apply mulch to reduce evaporation",
		"Introduce crop diversity",
		"Implement nutrient management plan",
	},
	SeverityHealthy: {
		"Maintain current practices",
		"Continue monitoring",
		"Rotate crops seasonally",
		"Preserve vegetation cover",
	},
}

// FallbackRecommendations returns the canned advice for a severity. Unknown
// severities get the At Risk list.
func FallbackRecommendations(s Severity) []string {
	advice, ok := fallbackAdvice[s]
	if !ok {
		advice = fallbackAdvice[SeverityAtRisk]
	}
	return append([]string(nil), advice...)
}

// FallbackResult wraps the static advice for a summary, recording why the
// generator was not used when cause is non-nil.
func FallbackResult(summary RecommendationSummary, cause error) RecommendationResult {
	res := RecommendationResult{
		Fallback:     FallbackRecommendations(summary.Severity),
		Severity:     summary.Severity,
		PrimaryFocus: summary.PrimaryFactors,
		GeneratedAt:  summary.Date,
		Note:         FallbackNote,
	}
	if cause != nil {
		res.Error = fmt.Sprintf("failed to generate recommendations: %v", cause)
	}
	return res
}

// BuildRecommendationPrompt renders the advisor prompt for a summary.
func BuildRecommendationPrompt(s RecommendationSummary) string {
	var b strings.Builder
	b.WriteString("As a soil health expert, analyze the following soil degradation data and provide specific, actionable restoration recommendations.\n\n")
	b.WriteString("Soil Health Assessment:\n")
	if s.LocationName != "" {
		fmt.Fprintf(&b, "- Location: %s\n", s.LocationName)
	}
	fmt.Fprintf(&b, "- Degradation Severity: %s\n", s.Severity)
	fmt.Fprintf(&b, "- Overall Score: %g/100\n", s.DegradationScore)
	fmt.Fprintf(&b, "- Primary Concerns: %s\n\n", strings.Join(s.PrimaryFactors, ", "))
	b.WriteString("Detailed Indicators:\n")
	fmt.Fprintf(&b, "- Vegetation Health: %g%%\n", s.Indicators.VegetationHealth)
	fmt.Fprintf(&b, "- Moisture Level: %g%%\n", s.Indicators.MoistureLevel)
	fmt.Fprintf(&b, "- Soil Exposure: %g%%\n", s.Indicators.SoilExposure)
	fmt.Fprintf(&b, "- Erosion Risk: %g%%\n\n", s.Indicators.ErosionRisk)
	b.WriteString(`Please provide:
1. Top 3-5 specific interventions (e.g., cover cropping, terracing, mulching)
2. Recommended implementation timeline (immediate, short-term, long-term)
3. Expected outcomes and monitoring metrics
4. Estimated cost category (low, medium, high)
5. Priority ranking of interventions

Format your response as clear, numbered recommendations with practical details.`)
	return b.String()
}
