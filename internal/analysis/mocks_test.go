package analysis

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

type mockSource struct{ mock.Mock }

func (m *mockSource) FetchIndicators(ctx context.Context, p domain.Polygon, date time.Time) (domain.IndicatorReading, error) {
	args := m.Called(ctx, p, date)
	return args.Get(0).(domain.IndicatorReading), args.Error(1)
}

func (m *mockSource) FetchNDVISeries(ctx context.Context, p domain.Polygon, w domain.DateWindow) (domain.HistoricalSeries, error) {
	args := m.Called(ctx, p, w)
	series, _ := args.Get(0).(domain.HistoricalSeries)
	return series, args.Error(1)
}

type mockAdvisor struct{ mock.Mock }

func (m *mockAdvisor) Advise(ctx context.Context, s domain.RecommendationSummary) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveAssessment(ctx context.Context, loc domain.Location, date string, a domain.Assessment) (string, error) {
	args := m.Called(ctx, loc, date, a)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ListLocations(ctx context.Context) ([]domain.Location, error) {
	args := m.Called(ctx)
	locs, _ := args.Get(0).([]domain.Location)
	return locs, args.Error(1)
}

func (m *mockStore) LocationHistory(ctx context.Context, id int64, limit int) ([]domain.AnalysisRecord, error) {
	args := m.Called(ctx, id, limit)
	recs, _ := args.Get(0).([]domain.AnalysisRecord)
	return recs, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
