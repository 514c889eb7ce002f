package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
	"github.com/Isheboy/SoilSense-AI/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var severities = []domain.Severity{
	domain.SeverityHealthy,
	domain.SeverityAtRisk,
	domain.SeverityDegraded,
	domain.SeveritySeverelyDegraded,
}

func newValidateCommand() *cobra.Command {
	var requestsPath, resultsPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the request and result fixtures against the analysis rules",
		Long: `Check the mock fixtures for integrity: request IDs and polygons are
well formed, every stored result matches what the analysis rules produce
today, and every result is internally consistent.

Examples:
  soilsense-cli validate
  soilsense-cli validate --requests my_requests.json --results my_results.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			requests, err := loadJSON[pipeline.AnalysisRequestMessage](requestsPath)
			if err != nil {
				return fmt.Errorf("load requests: %w", err)
			}
			results, err := loadJSON[pipeline.AnalysisResultMessage](resultsPath)
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}

			phases := []*phase{
				validateRequests(requests),
				validateRegeneration(cmd, requestsPath, results),
				validateResultSchema(results),
			}

			failed := report(cmd.OutOrStdout(), phases, len(requests), len(results))
			if failed > 0 {
				return fmt.Errorf("validation failed: %d of %d phases", failed, len(phases))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&requestsPath, "requests", "data/mock/analysis_requests.json", "request fixture file")
	cmd.Flags().StringVar(&resultsPath, "results", "data/mock/analysis_results.json", "result fixture file")
	return cmd
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func report(w io.Writer, phases []*phase, requests, results int) int {
	fmt.Fprintln(w, "=== Fixture Validation ===")
	fmt.Fprintln(w)

	failed := 0
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			failed++
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nRecords: %d requests, %d results\n", requests, results)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  %d. %s\n", i+1, e)
		}
	}
	return failed
}

func validateRequests(requests []pipeline.AnalysisRequestMessage) *phase {
	p := &phase{name: "Request fixture integrity"}
	seen := make(map[string]bool, len(requests))
	for i, req := range requests {
		if req.RequestID == "" {
			p.errorf("request %d: missing request_id", i)
		} else if seen[req.RequestID] {
			p.errorf("request %d: duplicate request_id %q", i, req.RequestID)
		}
		seen[req.RequestID] = true

		if err := req.Polygon.Validate(); err != nil {
			p.errorf("%s: %v", req.RequestID, err)
		}
		if e := req.ErosionRisk; e != nil && (*e < 0 || *e > 1) {
			p.errorf("%s: erosion_risk %g outside [0, 1]", req.RequestID, *e)
		}
	}
	return p
}

func validateRegeneration(cmd *cobra.Command, requestsPath string, stored []pipeline.AnalysisResultMessage) *phase {
	p := &phase{name: "Result regeneration"}
	if len(stored) == 0 {
		p.errorf("result fixture is empty")
		return p
	}

	data, err := os.ReadFile(requestsPath)
	if err != nil {
		p.errorf("read requests: %v", err)
		return p
	}
	fresh, err := generateResults(cmd.Context(), data, stored[0].ProcessedAt)
	if err != nil {
		p.errorf("regenerate: %v", err)
		return p
	}

	if len(fresh) != len(stored) {
		p.errorf("result count: got %d stored, want %d", len(stored), len(fresh))
	}
	byID := make(map[string]pipeline.AnalysisResultMessage, len(stored))
	for _, r := range stored {
		byID[r.RequestID] = r
	}

	opts := []cmp.Option{
		cmpopts.EquateApprox(0, 1e-6),
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(pipeline.AnalysisResultMessage{}, "ProcessedAt"),
	}
	for _, want := range fresh {
		got, ok := byID[want.RequestID]
		if !ok {
			p.errorf("%s: missing from result fixture", want.RequestID)
			continue
		}
		if diff := cmp.Diff(want, got, opts...); diff != "" {
			p.errorf("%s: stored result differs (-want +got):\n%s", want.RequestID, diff)
		}
	}
	return p
}

func validateResultSchema(results []pipeline.AnalysisResultMessage) *phase {
	p := &phase{name: "Result schema alignment"}
	for i, r := range results {
		id := r.RequestID
		if id == "" {
			id = fmt.Sprintf("result %d", i)
		}
		if !slices.Contains(severities, r.Severity) {
			p.errorf("%s: unknown severity %q", id, r.Severity)
		}
		if r.DegradationScore < 0 || r.DegradationScore > 100 {
			p.errorf("%s: degradation_score %g outside [0, 100]", id, r.DegradationScore)
		} else if want := domain.ClassifySeverity(r.DegradationScore); r.Severity != want {
			p.errorf("%s: severity %q does not match score %g (want %q)", id, r.Severity, r.DegradationScore, want)
		}
		if r.Confidence != domain.AssessmentConfidence {
			p.errorf("%s: confidence %g, want %g", id, r.Confidence, domain.AssessmentConfidence)
		}
		if len(r.PrimaryFactors) > 2 {
			p.errorf("%s: %d primary factors, want at most 2", id, len(r.PrimaryFactors))
		}
		if r.DataSource != analysis.SourceImagery && r.DataSource != analysis.SourceDefaults {
			p.errorf("%s: unknown data_source %q", id, r.DataSource)
		}
		if r.Date == "" || r.LocationName == "" {
			p.errorf("%s: missing date or location_name", id)
		}
		if r.ProcessedAt.IsZero() {
			p.errorf("%s: missing processed_at", id)
		}
	}
	return p
}
