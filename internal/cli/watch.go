package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var watchGallonID string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a gallon's pressure until a leak is confirmed or interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchGallonID == "" {
			return errors.New("--gallon is required")
		}
		return getApp().Watch(cmd.Context(), watchGallonID)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchGallonID, "gallon", "", "Inventory ID of the gallon to watch")
}
