package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var gallonCmd = &cobra.Command{
	Use:   "gallon",
	Short: "Manage the gallon inventory",
}

var gallonAddName string

var gallonAddCmd = &cobra.Command{
	Use:   "add <inventory-id>",
	Short: "Add a new gallon to the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if gallonAddName == "" {
			return errors.New("--name is required")
		}
		return getApp().AddGallon(cmd.Context(), args[0], gallonAddName)
	},
}

var gallonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the inventory with statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListGallons(cmd.Context())
	},
}

var gallonRefillCmd = &cobra.Command{
	Use:   "refill <inventory-id>",
	Short: "Record a refill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RecordRefill(cmd.Context(), args[0])
	},
}

var gallonDefectCmd = &cobra.Command{
	Use:   "defect <inventory-id>",
	Short: "Report a defect and mark the gallon defective",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ReportDefect(cmd.Context(), args[0])
	},
}

var gallonFixCmd = &cobra.Command{
	Use:   "fix <inventory-id>",
	Short: "Fix a defect and return the gallon to active status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().FixDefect(cmd.Context(), args[0])
	},
}

var gallonRemoveCmd = &cobra.Command{
	Use:   "rm <inventory-id>",
	Short: "Remove a gallon from the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DeleteGallon(cmd.Context(), args[0])
	},
}

var gallonDetailsCmd = &cobra.Command{
	Use:   "details <inventory-id>",
	Short: "Export a detail report with activity history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ExportDetails(cmd.Context(), args[0])
	},
}

func init() {
	gallonAddCmd.Flags().StringVar(&gallonAddName, "name", "", "Display name of the gallon")

	gallonCmd.AddCommand(gallonAddCmd)
	gallonCmd.AddCommand(gallonListCmd)
	gallonCmd.AddCommand(gallonRefillCmd)
	gallonCmd.AddCommand(gallonDefectCmd)
	gallonCmd.AddCommand(gallonFixCmd)
	gallonCmd.AddCommand(gallonRemoveCmd)
	gallonCmd.AddCommand(gallonDetailsCmd)
}
