package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/observability"
	"github.com/Isheboy/SoilSense-AI/internal/pipeline"
)

func newGenmockCommand() *cobra.Command {
	var (
		inPath, outPath string
		processedAt     string
	)
	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Generate expected result fixtures from request fixtures",
		Long: `Run every request in a fixture file through the analysis rules using
default indicators, and write the result messages the pipeline would publish.

The processing clock is fixed so the output is reproducible.

Examples:
  soilsense-cli genmock --in data/mock/analysis_requests.json
  soilsense-cli genmock --in data/mock/analysis_requests.json --out data/mock/analysis_results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := time.Parse(time.RFC3339, processedAt)
			if err != nil {
				return fmt.Errorf("parse --processed-at: %w", err)
			}

			data, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read fixture: %w", err)
			}

			results, err := generateResults(cmd.Context(), data, at)
			if err != nil {
				return err
			}

			if outPath == "" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			if err := printJSON(f, results); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d results to %s\n", len(results), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "data/mock/analysis_requests.json", "request fixture file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&processedAt, "processed-at", "2025-03-11T06:00:00Z", "fixed processing time (RFC 3339)")
	return cmd
}

// generateResults analyzes each request offline. The package clock is fixed
// to at for the duration of the call.
func generateResults(ctx context.Context, data []byte, at time.Time) ([]pipeline.AnalysisResultMessage, error) {
	var requests []pipeline.AnalysisRequestMessage
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	domain.SetClock(clockwork.NewFakeClockAt(at))
	defer domain.SetClock(nil)

	svc := analysis.NewService(nil, observability.NewMetricsForTesting(), observability.DiscardLogger())

	results := make([]pipeline.AnalysisResultMessage, 0, len(requests))
	for _, req := range requests {
		res, err := svc.Analyze(ctx, req.AnalysisRequest)
		if err != nil {
			return nil, fmt.Errorf("request %q: %w", req.RequestID, err)
		}
		results = append(results, pipeline.AnalysisResultMessage{
			RequestID:      req.RequestID,
			AnalysisResult: res,
			ProcessedAt:    domain.Now(),
		})
	}
	return results, nil
}
