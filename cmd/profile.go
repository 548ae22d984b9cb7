package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/catalog"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage learner profiles",
}

var profileAddCmd = &cobra.Command{
	Use:   "add <id> <belt>",
	Short: "Create a profile, or update its name and belt",
	Long: "Create a profile, or update its name and belt.\n\n" +
		"Belts are written as \"9th_keup\" or \"1st_dan\", or as a rank number\n" +
		"from 1 (10th keup) to 19 (9th dan).",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rank, err := catalog.ParseRank(args[1])
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p := catalog.Profile{ID: args[0], Name: name, CurrentRank: rank}
		if err := a.Profiles.Upsert(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Printf("Profile %s is now %s (%d entries unlocked).\n",
			p.ID, rank, len(a.Catalog.Eligible(p)))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		profiles, err := a.Profiles.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles yet. Create one with: dojang profile add <id> <belt>")
			return nil
		}

		fmt.Printf("%-20s  %-24s  %-10s  %s\n", "ID", "Name", "Belt", "Unlocked")
		fmt.Println(strings.Repeat("─", 68))
		for _, p := range profiles {
			fmt.Printf("%-20s  %-24s  %-10s  %d\n",
				p.ID, p.Name, p.CurrentRank, len(a.Catalog.Eligible(p)))
		}
		return nil
	},
}

func init() {
	profileAddCmd.Flags().String("name", "", "Display name")

	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
}
