package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dueCmd = &cobra.Command{
	Use:   "due <profile>",
	Short: "Show the entries due for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit == 0 {
			limit = cfg.Leitner.BatchSize
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		batch, err := a.Due(cmd.Context(), args[0], limit, now())
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			fmt.Println("Nothing due. Come back later.")
			return nil
		}

		fmt.Printf("%-24s  %-13s  %-22s  %s\n", "ID", "Kind", "Term", "Meaning")
		fmt.Println(strings.Repeat("─", 90))
		for _, e := range batch {
			fmt.Printf("%-24s  %-13s  %-22s  %s\n", e.ID, e.Kind, e.Term, e.Meaning)
		}
		fmt.Printf("\n%d due\n", len(batch))
		return nil
	},
}

func init() {
	dueCmd.Flags().IntP("limit", "n", 0, "Maximum entries to show (default leitner.batch_size)")
}
