// Package cli provides the offline soilsense-cli commands. They run the
// scoring and forecasting rules locally without imagery, advice, or storage.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "soilsense-cli",
		Short: "Score and forecast soil degradation from spectral indices",
		Long: `soilsense-cli runs the SoilSense degradation rules offline.

Feed it NDVI, NDMI and bare soil index values measured for an area and it
prints the degradation assessment, or a six-month risk forecast when an NDVI
history is supplied.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScoreCommand(), newForecastCommand(), newGenmockCommand(), newValidateCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
