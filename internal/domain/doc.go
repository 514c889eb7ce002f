// Package domain models land degradation derived from satellite spectral indices.
//
// # Indices
//
// All indices arrive as area means over the polygon of interest:
//
//	NDVI  (NIR - Red) / (NIR + Red). Vegetation vigour; healthy cropland
//	      and grassland sit at or above 0.6.
//	NDMI  (NIR - SWIR1) / (NIR + SWIR1). Canopy and surface moisture;
//	      0.4 and above is treated as no deficit.
//	BSI   ((SWIR1 + Red) - (NIR + Blue)) / ((SWIR1 + Red) + (NIR + Blue)).
//	      Bare soil exposure; 0.5 or more means the surface is fully exposed.
//
// Erosion risk is not observed from imagery. It is a 0-1 susceptibility
// supplied by the caller or by configuration.
//
// Missing indices are replaced by conservative defaults (NDVI 0.5, NDMI 0.3,
// BSI 0.2) so a scene with cloud cover still produces an assessment. See
// [IndicatorReading.Resolve].
//
// # Degradation score
//
// Each index becomes a signal in [0, 1] where 0 is healthy. The weighted sum
// (vegetation 0.30, moisture 0.25, soil exposure 0.25, erosion 0.20) scaled
// to 0-100 is the degradation score:
//
//	< 25   Healthy
//	< 50   At Risk
//	< 75   Degraded
//	>= 75  Severely Degraded
//
// # Risk forecast
//
// [Forecaster] scores the risk of further decline from the NDVI history
// (least-squares trend and population standard deviation) and the current
// indicators, then projects the degradation score six months ahead in 30-day
// steps. The scoring rule sits behind [RiskScorer]; [HeuristicScorer] is the
// additive rule set used by default.
//
// Timestamps come from the package clock, which tests replace with
// [SetClock].
package domain
