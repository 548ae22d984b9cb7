package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <profile>",
	Short: "Reset learner data",
	Long: "Delete every mastery record for the profile so all entries start over\n" +
		"in box 0. Session history is kept unless --history is given.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, _ := cmd.Flags().GetBool("history")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Profile(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := a.Reset(cmd.Context(), args[0], history); err != nil {
			return err
		}
		fmt.Printf("Profile %s reset.\n", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("history", false, "Also delete session history")
}
