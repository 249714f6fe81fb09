package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reindex all enabled directories once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.catalog.TriggerReindex(context.Background()); err != nil {
			return err
		}

		status := a.catalog.ScanStatus()
		fmt.Printf("Scan complete: %d files seen, %d indexed, %d skipped\n",
			status.LastStats.FilesSeen, status.LastStats.Indexed, status.LastStats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
