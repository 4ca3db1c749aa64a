package cli

import (
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the estimation pipeline over a generated synthetic session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Simulate(cmd.Context())
	},
}
