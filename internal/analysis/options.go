package analysis

import (
	"time"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// Options tune request defaults and collaborator deadlines.
type Options struct {
	// ErosionRisk is used when a request does not supply one.
	ErosionRisk float64
	// HistoryWindow is how far back the NDVI history reaches when a request
	// has no start date.
	HistoryWindow time.Duration

	FetchTimeout  time.Duration
	StoreTimeout  time.Duration
	AdviceTimeout time.Duration
}

// DefaultOptions returns the values used when the service is built without
// explicit options.
func DefaultOptions() Options {
	return Options{
		ErosionRisk:   domain.DefaultErosionRisk,
		HistoryWindow: 365 * 24 * time.Hour,
		FetchTimeout:  30 * time.Second,
		StoreTimeout:  5 * time.Second,
		AdviceTimeout: 60 * time.Second,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithOptions replaces the defaults and deadlines.
func WithOptions(o Options) Option {
	return func(s *Service) { s.opts = o }
}

// WithAdvisor enables generated recommendations. Without one the static
// advice table is used.
func WithAdvisor(a domain.Advisor) Option {
	return func(s *Service) { s.advisor = a }
}

// WithStore enables persistence and the location endpoints.
func WithStore(st domain.AssessmentStore) Option {
	return func(s *Service) { s.store = st }
}

// WithForecaster replaces the default heuristic forecaster.
func WithForecaster(f *domain.Forecaster) Option {
	return func(s *Service) { s.forecaster = f }
}
