package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Manage indexed directories",
}

var dirAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a music directory and index it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		directory, err := a.catalog.AddDirectory(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Added directory %s (%s)\n", directory.Location, directory.ID)
		return nil
	},
}

var dirRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a directory and everything indexed under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.catalog.RemoveDirectory(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Println("Directory removed")
		return nil
	},
}

var dirListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		directories, err := a.catalog.ListDirectories(context.Background())
		if err != nil {
			return err
		}
		for _, directory := range directories {
			state := "enabled"
			if !directory.Enabled {
				state = "disabled"
			}
			fmt.Printf("%s  %s  (%s)\n", directory.ID, directory.Location, state)
		}
		return nil
	},
}

func init() {
	dirCmd.AddCommand(dirAddCmd, dirRemoveCmd, dirListCmd)
	rootCmd.AddCommand(dirCmd)
}
