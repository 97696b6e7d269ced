package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print the user id graphs are stored under",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := resolveUser()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), user)
		return nil
	},
}
