package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupList bool

func init() {
	backupCmd.Flags().BoolVar(&backupList, "list", false, "List local backups instead of taking one.")
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshots the candidate database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}

		if backupList {
			paths, err := a.backups.Backups()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		}

		path, err := a.backups.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backup written to %s\n", path)
		return nil
	},
}
