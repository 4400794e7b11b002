package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkTokenCmd)
}

var checkTokenCmd = &cobra.Command{
	Use:   "check-token",
	Short: "Verifies the VK access token.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd)
		defer a.Close()
		if err := a.connect(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Token is valid.")
		return nil
	},
}
