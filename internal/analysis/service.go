// Package analysis runs degradation assessments, forecasts and
// recommendations against the configured imagery, advice and record-store
// collaborators. Collaborator failures degrade the result rather than fail
// the request, except where a caller explicitly asks for upstream data.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
)

// History limits for LocationHistory.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Service is safe for concurrent use.
type Service struct {
	source     domain.IndicatorSource
	advisor    domain.Advisor
	store      domain.AssessmentStore
	forecaster *domain.Forecaster
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     *slog.Logger
	opts       Options
}

// NewService creates a Service. A nil source means imagery is disabled and
// every assessment uses default indicators.
func NewService(source domain.IndicatorSource, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		source:     source,
		forecaster: domain.NewForecaster(nil),
		validate:   newValidator(),
		metrics:    metrics,
		logger:     logger,
		opts:       DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Analyze scores the area on the request end date. Unavailable imagery falls
// back to default indicators and a failed save only drops the record ID.
func (s *Service) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	r, err := s.resolve(req)
	if err != nil {
		return AnalysisResult{}, err
	}

	indicators, source := s.currentIndicators(ctx, r)
	a := domain.ComputeAssessment(indicators)
	s.metrics.Assessments.WithLabelValues(string(a.Severity), source).Inc()

	return AnalysisResult{
		Assessment:   a,
		Date:         r.date(),
		LocationName: r.name,
		RecordID:     s.persist(ctx, r, a),
		DataSource:   source,
	}, nil
}

// Predict forecasts degradation risk from the NDVI history of the request
// window and the current indicators, fetched concurrently.
func (s *Service) Predict(ctx context.Context, req AnalysisRequest) (PredictionResult, error) {
	r, err := s.resolve(req)
	if err != nil {
		return PredictionResult{}, err
	}

	var (
		indicators domain.IndicatorSet
		history    domain.HistoricalSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		indicators, _ = s.currentIndicators(gctx, r)
		return nil
	})
	g.Go(func() error {
		history = s.history(gctx, r)
		return nil
	})
	_ = g.Wait() // both branches degrade instead of failing

	current := domain.ComputeAssessment(indicators)
	forecast := s.forecaster.Predict(history, domain.Current{
		IndicatorSet:     indicators,
		DegradationScore: current.DegradationScore,
	})
	if forecast.Failed() {
		s.logger.Warn("risk forecast failed", "error", forecast.Error, "location", r.name)
	}
	s.metrics.Forecasts.WithLabelValues(string(forecast.RiskLevel)).Inc()

	return PredictionResult{
		RiskForecast:   forecast,
		Current:        current,
		HistorySamples: len(history),
		LocationName:   r.name,
	}, nil
}

// Recommend returns restoration advice for an assessment summary. Without an
// advisor, or when it fails, the static advice table is returned.
func (s *Service) Recommend(ctx context.Context, summary domain.RecommendationSummary) (domain.RecommendationResult, error) {
	if err := s.validate.Struct(summary); err != nil {
		return domain.RecommendationResult{}, invalid(err)
	}
	if summary.Date == "" {
		summary.Date = today().Format(domain.DateLayout)
	}

	if s.advisor == nil {
		s.metrics.Recommendations.WithLabelValues("fallback").Inc()
		return domain.FallbackResult(summary, nil), nil
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.AdviceTimeout)
	defer cancel()

	text, err := s.advisor.Advise(actx, summary)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("advisor returned an empty response")
	}
	if err != nil {
		s.logger.Warn("recommendation generation failed, using fallback advice",
			"error", err, "severity", summary.Severity)
		s.metrics.Recommendations.WithLabelValues("error").Inc()
		return domain.FallbackResult(summary, err), nil
	}

	s.metrics.Recommendations.WithLabelValues("generated").Inc()
	return domain.RecommendationResult{
		Recommendations: text,
		Severity:        summary.Severity,
		PrimaryFocus:    summary.PrimaryFactors,
		GeneratedAt:     summary.Date,
		Confidence:      domain.RecommendationConfidence,
	}, nil
}

// TimeSeries returns the NDVI history for the request window. Unlike Analyze
// it fails when the imagery backend is unavailable.
func (s *Service) TimeSeries(ctx context.Context, req AnalysisRequest) (TimeSeriesResult, error) {
	r, err := s.resolve(req)
	if err != nil {
		return TimeSeriesResult{}, err
	}
	if s.source == nil {
		return TimeSeriesResult{}, fmt.Errorf("%w: no imagery backend configured", ErrUpstreamUnavailable)
	}

	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	series, err := s.source.FetchNDVISeries(fctx, r.polygon, r.window)
	if err != nil {
		return TimeSeriesResult{}, fmt.Errorf("%w: fetch ndvi series: %w", ErrUpstreamUnavailable, err)
	}
	if series == nil {
		series = domain.HistoricalSeries{}
	}

	return TimeSeriesResult{
		LocationName: r.name,
		StartDate:    r.window.Start.Format(domain.DateLayout),
		EndDate:      r.date(),
		Series:       series,
	}, nil
}

// Locations lists every monitored location.
func (s *Service) Locations(ctx context.Context) ([]domain.Location, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	locs, err := s.store.ListLocations(sctx)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("list_locations").Inc()
		return nil, fmt.Errorf("%w: list locations: %w", ErrUpstreamUnavailable, err)
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	return locs, nil
}

// History returns the newest assessments for a location. A non-positive
// limit means DefaultHistoryLimit; limits above MaxHistoryLimit are capped.
func (s *Service) History(ctx context.Context, locationID int64, limit int) ([]domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	if locationID <= 0 {
		return nil, fmt.Errorf("%w: location id must be positive", ErrInvalidRequest)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	records, err := s.store.LocationHistory(sctx, locationID, limit)
	if errors.Is(err, domain.ErrLocationNotFound) {
		return nil, fmt.Errorf("%w: location %d", ErrNotFound, locationID)
	}
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("location_history").Inc()
		return nil, fmt.Errorf("%w: location history: %w", ErrUpstreamUnavailable, err)
	}
	if records == nil {
		records = []domain.AnalysisRecord{}
	}
	return records, nil
}

// CheckReadiness pings the record store when one is configured.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	return nil
}

// currentIndicators fetches the indicators for the request date, falling
// back to the defaults when imagery is disabled or failing.
func (s *Service) currentIndicators(ctx context.Context, r resolved) (domain.IndicatorSet, string) {
	if s.source == nil {
		s.metrics.IndicatorFallbacks.Inc()
		return domain.DefaultIndicators(r.erosionRisk), SourceDefaults
	}

	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	reading, err := s.source.FetchIndicators(fctx, r.polygon, r.window.End)
	if err != nil {
		s.logger.Warn("imagery unavailable, using default indicators",
			"error", err, "location", r.name, "date", r.date())
		s.metrics.IndicatorFallbacks.Inc()
		return domain.DefaultIndicators(r.erosionRisk), SourceDefaults
	}
	if !reading.Complete() {
		s.logger.Debug("partial imagery reading, missing indices use defaults",
			"location", r.name, "date", r.date())
	}
	return reading.Resolve(r.erosionRisk), SourceImagery
}

// history fetches the NDVI series for the request window. Failures yield an
// empty series so the forecast still runs on current conditions.
func (s *Service) history(ctx context.Context, r resolved) domain.HistoricalSeries {
	if s.source == nil {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	series, err := s.source.FetchNDVISeries(fctx, r.polygon, r.window)
	if err != nil {
		s.logger.Warn("ndvi history unavailable, forecasting from current conditions",
			"error", err, "location", r.name)
		return nil
	}
	return series
}

// persist saves the assessment when a store is configured and returns the
// record ID, or "" when nothing was saved.
func (s *Service) persist(ctx context.Context, r resolved, a domain.Assessment) string {
	if s.store == nil {
		return ""
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancel()

	centroid := r.polygon.Centroid()
	loc := domain.Location{Name: r.name, Lon: centroid.Lon, Lat: centroid.Lat}
	id, err := s.store.SaveAssessment(sctx, loc, r.date(), a)
	if err != nil {
		s.logger.Warn("save assessment failed", "error", err, "location", r.name)
		s.metrics.StoreErrors.WithLabelValues("save_assessment").Inc()
		return ""
	}
	return id
}
