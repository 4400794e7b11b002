package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/export"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file. Defaults to users.xlsx in export.dir.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes every stored candidate, with contact status, to a spreadsheet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}

		cs, err := a.candidates.All(ctx)
		if err != nil {
			return err
		}
		path := exportOut
		if path == "" {
			path = filepath.Join(a.cfg.Export.Dir, "users.xlsx")
		}
		if err := export.WriteCandidates(path, cs, true); err != nil {
			return err
		}
		fmt.Printf("Exported %d candidates to %s\n", len(cs), path)
		return nil
	},
}
