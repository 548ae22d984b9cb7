package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/spacedrep"
	"github.com/abhisek/dojang/internal/ui/theme"
)

var reviewCmd = &cobra.Command{
	Use:   "review <profile> <entry> <correct|incorrect>",
	Short: "Record a review outcome",
	Long: "Record a review outcome and reschedule the entry.\n\n" +
		"If the profile has an open session the review is also logged there.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordReview(cmd, args[0], "", args[1], args[2])
	},
}

// recordReview is shared by "review" and "session review".
func recordReview(cmd *cobra.Command, profileID, sessionID, entryID, outcomeArg string) error {
	outcome, err := spacedrep.ParseOutcome(outcomeArg)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Review(cmd.Context(), profileID, sessionID, entryID, outcome, now())
	if err != nil {
		return err
	}

	mark := theme.Correct.Render("✓")
	if outcome == spacedrep.Incorrect {
		mark = theme.Incorrect.Render("✗")
	}
	fmt.Printf("%s %s  box %d (%s), next review %s\n",
		mark, entryID, rec.Box, rec.Level(),
		rec.DueAt.Local().Format("2006-01-02 15:04"))
	return nil
}
