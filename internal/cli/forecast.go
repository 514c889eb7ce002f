package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

func newForecastCommand() *cobra.Command {
	var (
		flags       indicatorFlags
		historyPath string
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast degradation risk over the next six months",
		Long: `Score the risk of further degradation and project it six months ahead.

The NDVI history is a JSON array of {"date","ndvi"} samples, oldest first.
Pass "-" to read it from stdin. Without a history only current conditions
are scored.

Examples:
  soilsense-cli forecast --ndvi 0.2 --ndmi 0.1 --bsi 0.6 --erosion 0.7
  soilsense-cli forecast --history ndvi.json
  cat ndvi.json | soilsense-cli forecast --history -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.set()
			if err != nil {
				return err
			}
			history, err := readHistory(cmd.InOrStdin(), historyPath)
			if err != nil {
				return err
			}

			current := domain.Current{
				IndicatorSet:     in,
				DegradationScore: domain.ComputeAssessment(in).DegradationScore,
			}
			forecast := domain.NewForecaster(nil).Predict(history, current)
			if err := printJSON(cmd.OutOrStdout(), forecast); err != nil {
				return err
			}
			if forecast.Failed() {
				return fmt.Errorf("forecast failed: %s", forecast.Error)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&historyPath, "history", "", `NDVI history JSON file, or "-" for stdin`)
	return cmd
}

func readHistory(stdin io.Reader, path string) (domain.HistoricalSeries, error) {
	if path == "" {
		return nil, nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		defer f.Close()
		r = f
	}

	var series domain.HistoricalSeries
	if err := json.NewDecoder(r).Decode(&series); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return series, nil
}
