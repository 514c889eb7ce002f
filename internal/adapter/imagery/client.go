// Package imagery talks to the spectral-index backend that reduces satellite
// scenes over a polygon to NDVI, NDMI and BSI statistics.
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
)

// Request methods, used as metric labels.
const (
	methodIndicators = "indicators"
	methodSeries     = "series"
)

// breakerTripAfter is the number of consecutive failures that opens the circuit.
const breakerTripAfter = 5

// maxErrorBody caps how much of an error response is echoed into the error.
const maxErrorBody = 512

// Client implements domain.IndicatorSource over the backend's HTTP API.
type Client struct {
	baseURL      string
	apiKey       string
	lookbackDays int
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an imagery client. Indicator requests cover the
// lookbackDays ending on the requested date.
func NewClient(baseURL, apiKey string, timeout time.Duration, lookbackDays int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		lookbackDays: lookbackDays,
		httpClient:   &http.Client{Timeout: timeout},
		breaker:      newBreaker(logger),
		metrics:      metrics,
		logger:       logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "imagery",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		// 4xx responses do not count toward tripping.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("imagery circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imagery API error: status %d: %s", e.Code, e.Body)
}

// FetchIndicators returns the mean indices over polygon for the lookback
// window ending on date. Null indices in the response stay nil.
func (c *Client) FetchIndicators(ctx context.Context, polygon domain.Polygon, date time.Time) (domain.IndicatorReading, error) {
	req := windowRequest{
		Polygon:   polygon,
		StartDate: date.AddDate(0, 0, -c.lookbackDays).Format(domain.DateLayout),
		EndDate:   date.Format(domain.DateLayout),
	}

	var reading domain.IndicatorReading
	if err := c.post(ctx, methodIndicators, "/v1/indicators", req, &reading); err != nil {
		return domain.IndicatorReading{}, err
	}
	return reading, nil
}

// FetchNDVISeries returns the NDVI samples in window sorted by date. Samples
// without a usable value are dropped.
func (c *Client) FetchNDVISeries(ctx context.Context, polygon domain.Polygon, window domain.DateWindow) (domain.HistoricalSeries, error) {
	req := windowRequest{
		Polygon:   polygon,
		StartDate: window.Start.Format(domain.DateLayout),
		EndDate:   window.End.Format(domain.DateLayout),
	}

	var resp seriesResponse
	if err := c.post(ctx, methodSeries, "/v1/ndvi-series", req, &resp); err != nil {
		return nil, err
	}
	return resp.toSeries(), nil
}

func (c *Client) post(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, payload)
	})
	c.metrics.ImageryAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		c.metrics.ImageryRequests.WithLabelValues(method, outcome).Inc()
		return fmt.Errorf("%s request: %w", method, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.metrics.ImageryRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	c.metrics.ImageryRequests.WithLabelValues(method, "success").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return io.ReadAll(resp.Body)
}

// Backend API types.

type windowRequest struct {
	Polygon   domain.Polygon `json:"polygon"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
}

type seriesResponse struct {
	Features []seriesSample `json:"features"`
}

type seriesSample struct {
	Date string   `json:"date"`
	NDVI *float64 `json:"ndvi"`
}

func (r seriesResponse) toSeries() domain.HistoricalSeries {
	series := make(domain.HistoricalSeries, 0, len(r.Features))
	for _, f := range r.Features {
		if f.NDVI == nil || math.IsNaN(*f.NDVI) || math.IsInf(*f.NDVI, 0) {
			continue
		}
		series = append(series, domain.Sample{Date: f.Date, NDVI: *f.NDVI})
	}
	slices.SortStableFunc(series, func(a, b domain.Sample) int {
		return strings.Compare(a.Date, b.Date)
	})
	return series
}
