package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"glucotune/internal/app"
)

var (
	analyzeFrom string
	analyzeTo   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Assemble a session window and estimate dosing multipliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{}

		if analyzeFrom != "" {
			from, err := time.Parse(time.RFC3339, analyzeFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if analyzeTo != "" {
			to, err := time.Parse(time.RFC3339, analyzeTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "Session start (RFC3339, inclusive)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "Session end (RFC3339, exclusive)")
}
