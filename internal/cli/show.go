package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gallon-leak-watch/internal/app"
)

var (
	showLimit int
	showLeaks bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent pressure samples or leak events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit: showLimit,
			Leaks: showLeaks,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showLeaks, "leaks", false, "Show confirmed leak events instead of samples")
}
