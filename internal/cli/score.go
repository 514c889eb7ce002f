package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// indicatorFlags are shared by score and forecast.
type indicatorFlags struct {
	ndvi, ndmi, bsi, erosion float64
}

func (f *indicatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.ndvi, "ndvi", domain.DefaultNDVI, "normalized difference vegetation index")
	cmd.Flags().Float64Var(&f.ndmi, "ndmi", domain.DefaultNDMI, "normalized difference moisture index")
	cmd.Flags().Float64Var(&f.bsi, "bsi", domain.DefaultBareSoilIndex, "bare soil index")
	cmd.Flags().Float64Var(&f.erosion, "erosion", domain.DefaultErosionRisk, "erosion risk in [0, 1]")
}

func (f *indicatorFlags) set() (domain.IndicatorSet, error) {
	in := domain.IndicatorSet{NDVI: f.ndvi, NDMI: f.ndmi, BareSoilIndex: f.bsi, ErosionRisk: f.erosion}
	if err := in.Validate(); err != nil {
		return in, err
	}
	if in.ErosionRisk < 0 || in.ErosionRisk > 1 {
		return in, fmt.Errorf("%w: --erosion %g outside [0, 1]", domain.ErrInvalidIndicators, in.ErosionRisk)
	}
	return in, nil
}

func newScoreCommand() *cobra.Command {
	var flags indicatorFlags
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the degradation assessment for one indicator set",
		Long: `Compute the composite degradation score, severity and primary factors.

Unset indices take the values used when imagery is unavailable.

Examples:
  soilsense-cli score --ndvi 0.1 --ndmi 0.05 --bsi 0.6
  soilsense-cli score --erosion 0.7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := flags.set()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), domain.ComputeAssessment(in))
		},
	}
	flags.register(cmd)
	return cmd
}
