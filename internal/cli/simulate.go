package cli

import (
	"github.com/spf13/cobra"
)

var simulateGallonID string

var simulateCmd = &cobra.Command{
	Use:   "simulate-leak",
	Short: "Run a monitoring session against a simulated pressure decay",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateLeak(cmd.Context(), simulateGallonID)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateGallonID, "gallon", "WG-TEST", "Inventory ID to use for the simulated session")
}
