package cli

import (
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Create the daily inventory report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Report(cmd.Context())
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write the inventory backup snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Backup(cmd.Context())
	},
}
