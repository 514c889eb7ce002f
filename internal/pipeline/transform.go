package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// Analyzer runs one assessment. *analysis.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.AnalysisRequest) (analysis.AnalysisResult, error)
}

// AnalysisRequestMessage is the payload read from the source topic.
type AnalysisRequestMessage struct {
	RequestID string `json:"request_id,omitempty"`
	analysis.AnalysisRequest
}

// AnalysisResultMessage is the payload published to the sink topic.
type AnalysisResultMessage struct {
	RequestID string `json:"request_id,omitempty"`
	analysis.AnalysisResult
	ProcessedAt time.Time `json:"processed_at"`
}

// Message headers set on every result.
const (
	HeaderSeverity    = "severity"
	HeaderProcessedAt = "processed_at"
	HeaderDataSource  = "data_source"
)

// AnalysisTransformer implements Transformer by running each request
// through the analysis service.
type AnalysisTransformer struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// NewTransformer creates an AnalysisTransformer.
func NewTransformer(analyzer Analyzer, logger *slog.Logger) *AnalysisTransformer {
	return &AnalysisTransformer{analyzer: analyzer, logger: logger}
}

// Transform decodes the request, assesses the area, and serializes the
// result. Undecodable or invalid requests return an error so the pipeline
// skips them.
func (t *AnalysisTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	var req AnalysisRequestMessage
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.OutputMessage{}, fmt.Errorf("decode analysis request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}

	res, err := t.analyzer.Analyze(ctx, req.AnalysisRequest)
	if err != nil {
		return domain.OutputMessage{}, fmt.Errorf("analyze request %q: %w", req.RequestID, err)
	}

	out := AnalysisResultMessage{
		RequestID:      req.RequestID,
		AnalysisResult: res,
		ProcessedAt:    domain.Now(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return domain.OutputMessage{}, fmt.Errorf("serialize analysis result: %w", err)
	}

	t.logger.Debug("analysis request processed",
		"request_id", req.RequestID,
		"severity", res.Severity,
		"data_source", res.DataSource,
	)

	return domain.OutputMessage{
		Key:   []byte(messageKey(out)),
		Value: data,
		Headers: map[string]string{
			HeaderSeverity:    string(res.Severity),
			HeaderProcessedAt: out.ProcessedAt.Format(time.RFC3339),
			HeaderDataSource:  res.DataSource,
		},
	}, nil
}

// messageKey prefers the stored record ID, then the caller's request ID.
func messageKey(m AnalysisResultMessage) string {
	switch {
	case m.RecordID != "":
		return m.RecordID
	case m.RequestID != "":
		return m.RequestID
	default:
		return uuid.NewString()
	}
}
