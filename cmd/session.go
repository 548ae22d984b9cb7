package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Open, log and close study sessions",
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open <profile>",
	Short: "Start a study session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindArg, _ := cmd.Flags().GetString("kind")
		kind, err := session.ParseKind(kindArg)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Profile(cmd.Context(), args[0]); err != nil {
			return err
		}
		id, err := a.Recorder.OpenSession(cmd.Context(), args[0], kind, now())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var sessionReviewCmd = &cobra.Command{
	Use:   "review <session> <profile> <entry> <correct|incorrect>",
	Short: "Record a review in a specific session",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordReview(cmd, args[1], args[0], args[2], args[3])
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <session>",
	Short: "End a session and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.Recorder.CloseSession(cmd.Context(), args[0], now())
		if err != nil {
			return err
		}

		fmt.Printf("Session:   %s\n", sum.SessionID)
		fmt.Printf("Kind:      %s\n", sum.Kind)
		fmt.Printf("Reviews:   %d (%d correct)\n", sum.TotalReviews, sum.CorrectCount)
		fmt.Printf("Accuracy:  %.0f%%\n", sum.Accuracy*100)
		fmt.Printf("Duration:  %s\n", sum.Duration.Round(time.Second))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list <profile>",
	Short: "List recent sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.Recorder.History(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-36s  %-10s  %-16s  %7s  %8s  %s\n",
			"ID", "Kind", "Started", "Reviews", "Accuracy", "Duration")
		fmt.Println(strings.Repeat("─", 100))
		for _, s := range sessions {
			started := s.StartedAt.Local().Format("2006-01-02 15:04")
			if s.Summary == nil {
				fmt.Printf("%-36s  %-10s  %-16s  %7s  %8s  %s\n", s.ID, s.Kind, started, "-", "-", "open")
				continue
			}
			fmt.Printf("%-36s  %-10s  %-16s  %7d  %7.0f%%  %s\n",
				s.ID, s.Kind, started, s.Summary.TotalReviews,
				s.Summary.Accuracy*100, s.Summary.Duration.Round(time.Second))
		}
		return nil
	},
}

func init() {
	sessionOpenCmd.Flags().String("kind", string(session.KindMixed), "Session kind: flashcards, testing, patterns or mixed")
	sessionListCmd.Flags().IntP("limit", "n", 10, "Maximum sessions to show (0 for all)")

	sessionCmd.AddCommand(sessionOpenCmd)
	sessionCmd.AddCommand(sessionReviewCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
	sessionCmd.AddCommand(sessionListCmd)
}
