package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
	"github.com/Isheboy/SoilSense-AI/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out its messages as one batch, then blocks.
type mockExtractor struct {
	messages []domain.RawMessage
	served   atomic.Bool
	err      error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !m.served.Swap(true) && len(m.messages) > 0 {
		n := min(batchSize, len(m.messages))
		return m.messages[:n], nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.OutputMessage{}, errors.New("bad request")
	}
	return domain.OutputMessage{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.OutputMessage
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, msgs []domain.OutputMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, msgs...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func rawMessage(key string, commit *atomic.Int32) domain.RawMessage {
	raw := domain.RawMessage{Key: []byte(key), Value: []byte(`{"request_id":"` + key + `"}`), Topic: "soil-analysis-requests"}
	if commit != nil {
		raw.Commit = func(context.Context) error {
			commit.Add(1)
			return nil
		}
	}
	return raw
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{messages: []domain.RawMessage{
		rawMessage("a", &commits), rawMessage("b", &commits), rawMessage("c", &commits),
	}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 3)
	keys := []string{string(ldr.loaded[0].Key), string(ldr.loaded[1].Key), string(ldr.loaded[2].Key)}
	assert.Equal(t, []string{"a", "b", "c"}, keys, "source order is preserved")
	assert.Equal(t, int32(3), commits.Load())
	assert.True(t, p.Loaded())
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{messages: []domain.RawMessage{rawMessage("good", &commits), rawMessage("poison", &commits)}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{failKeys: map[string]bool{"poison": true}}, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, []byte("good"), ldr.loaded[0].Key)
	assert.Equal(t, int32(2), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_AllTransformsFail(t *testing.T) {
	ext := &mockExtractor{messages: []domain.RawMessage{rawMessage("x", nil)}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{failKeys: map[string]bool{"x": true}}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 200*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.False(t, p.Loaded())
}

func TestPipeline_Run_RetriesFailedLoad(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{messages: []domain.RawMessage{rawMessage("a", &commits)}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, time.Second)

	assert.Equal(t, 2, ldr.calls)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, int32(1), commits.Load(), "offset is committed only after the load succeeds")
}

func TestPipeline_Run_NoCommitWhenLoadNeverSucceeds(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{messages: []domain.RawMessage{rawMessage("a", &commits)}}
	ldr := &mockLoader{failures: 1000}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Zero(t, commits.Load())
}

func TestPipeline_CheckReadiness(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)
		assert.EqualError(t, p.CheckReadiness(context.Background()), "pipeline is not running")
	})

	t.Run("idle consumer is ready", func(t *testing.T) {
		p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = p.Run(ctx)
		}()

		assert.Eventually(t, func() bool { return p.CheckReadiness(context.Background()) == nil },
			time.Second, 10*time.Millisecond)
		cancel()
		<-done
	})

	t.Run("extract failures", func(t *testing.T) {
		p := pipeline.New(&mockExtractor{err: errors.New("no brokers")}, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = p.Run(ctx)
		}()

		assert.Eventually(t, func() bool {
			err := p.CheckReadiness(context.Background())
			return err != nil && err.Error() == "pipeline is retrying after a broker failure"
		}, time.Second, 10*time.Millisecond)
		cancel()
		<-done
	})
}

// --- transformer ---

var transformNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func newAnalysisTransformer(t *testing.T) *pipeline.AnalysisTransformer {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(transformNow))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	svc := analysis.NewService(nil, newTestMetrics(), slog.Default())
	return pipeline.NewTransformer(svc, slog.Default())
}

const northField = `[[36.8,-1.3],[36.9,-1.3],[36.9,-1.2],[36.8,-1.3]]`

func TestAnalysisTransformer_Transform(t *testing.T) {
	tfm := newAnalysisTransformer(t)
	raw := domain.RawMessage{Value: []byte(`{"request_id":"req-9","location_name":"North Field","polygon":` + northField + `}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-9"), out.Key)
	assert.Equal(t, map[string]string{
		pipeline.HeaderSeverity:    "At Risk",
		pipeline.HeaderProcessedAt: "2025-03-10T14:00:00Z",
		pipeline.HeaderDataSource:  analysis.SourceDefaults,
	}, out.Headers)

	var got pipeline.AnalysisResultMessage
	require.NoError(t, json.Unmarshal(out.Value, &got))

	want := pipeline.AnalysisResultMessage{
		RequestID: "req-9",
		AnalysisResult: analysis.AnalysisResult{
			Assessment:   domain.ComputeAssessment(domain.DefaultIndicators(domain.DefaultErosionRisk)),
			Date:         "2025-03-10",
			LocationName: "North Field",
			DataSource:   analysis.SourceDefaults,
		},
		ProcessedAt: transformNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalysisTransformer_KeyFallsBackToMessageKey(t *testing.T) {
	tfm := newAnalysisTransformer(t)
	raw := domain.RawMessage{Key: []byte("kafka-key"), Value: []byte(`{"polygon":` + northField + `}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("kafka-key"), out.Key)
	assert.Contains(t, string(out.Value), `"request_id":"kafka-key"`)
}

func TestAnalysisTransformer_GeneratesKeyWhenUnidentified(t *testing.T) {
	tfm := newAnalysisTransformer(t)
	out, err := tfm.Transform(context.Background(), domain.RawMessage{Value: []byte(`{"polygon":` + northField + `}`)})
	require.NoError(t, err)
	assert.Len(t, out.Key, 36)
}

func TestAnalysisTransformer_RejectsBadInput(t *testing.T) {
	tfm := newAnalysisTransformer(t)

	_, err := tfm.Transform(context.Background(), domain.RawMessage{Value: []byte("not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode analysis request")

	_, err = tfm.Transform(context.Background(), domain.RawMessage{Value: []byte(`{"request_id":"r1","polygon":[[0,0],[1,1]]}`)})
	require.ErrorIs(t, err, analysis.ErrInvalidRequest)
	assert.Contains(t, err.Error(), `analyze request "r1"`)
}
