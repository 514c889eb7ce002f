package imagery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
)

// CachedSource wraps an IndicatorSource with expiring in-memory LRU caches.
type CachedSource struct {
	inner      domain.IndicatorSource
	indicators *expirable.LRU[string, domain.IndicatorReading]
	series     *expirable.LRU[string, domain.HistoricalSeries]
	metrics    *observability.Metrics
}

// NewCachedSource creates a cache decorator holding up to maxEntries results
// per method, each for ttl.
func NewCachedSource(inner domain.IndicatorSource, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:      inner,
		indicators: expirable.NewLRU[string, domain.IndicatorReading](maxEntries, nil, ttl),
		series:     expirable.NewLRU[string, domain.HistoricalSeries](maxEntries, nil, ttl),
		metrics:    metrics,
	}
}

func (c *CachedSource) FetchIndicators(ctx context.Context, polygon domain.Polygon, date time.Time) (domain.IndicatorReading, error) {
	key := cacheKey(polygon, date.Format(domain.DateLayout))
	if reading, ok := c.indicators.Get(key); ok {
		c.metrics.ImageryCache.WithLabelValues(methodIndicators, "hit").Inc()
		return reading, nil
	}
	c.metrics.ImageryCache.WithLabelValues(methodIndicators, "miss").Inc()

	reading, err := c.inner.FetchIndicators(ctx, polygon, date)
	if err != nil {
		return reading, err
	}
	// Fully cloudy scenes are not cached so a later pass can fill them in.
	if reading.NDVI != nil || reading.NDMI != nil || reading.BareSoilIndex != nil {
		c.indicators.Add(key, reading)
	}
	return reading, nil
}

func (c *CachedSource) FetchNDVISeries(ctx context.Context, polygon domain.Polygon, window domain.DateWindow) (domain.HistoricalSeries, error) {
	key := cacheKey(polygon, window.Start.Format(domain.DateLayout), window.End.Format(domain.DateLayout))
	if series, ok := c.series.Get(key); ok {
		c.metrics.ImageryCache.WithLabelValues(methodSeries, "hit").Inc()
		return clone(series), nil
	}
	c.metrics.ImageryCache.WithLabelValues(methodSeries, "miss").Inc()

	series, err := c.inner.FetchNDVISeries(ctx, polygon, window)
	if err != nil {
		return series, err
	}
	if len(series) > 0 {
		c.series.Add(key, clone(series))
	}
	return series, nil
}

// cacheKey hashes the polygon vertices and dates into a fixed-size key.
func cacheKey(polygon domain.Polygon, dates ...string) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(polygon)
	for _, d := range dates {
		h.Write([]byte{'|'})
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func clone(s domain.HistoricalSeries) domain.HistoricalSeries {
	return append(domain.HistoricalSeries(nil), s...)
}
