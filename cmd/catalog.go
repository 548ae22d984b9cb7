package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate curricula",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a curriculum file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: valid, version %s, %d entries\n", args[0], c.Version(), c.Len())

		builtin, err := catalog.Default()
		if err == nil && c.NewerThan(builtin.Version()) {
			fmt.Printf("Newer than the built-in curriculum (%s).\n", builtin.Version())
		}
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List curriculum entries (optionally up to a belt)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		if c == nil {
			if c, err = catalog.Default(); err != nil {
				return err
			}
		}

		entries := c.Entries()
		if belt, _ := cmd.Flags().GetString("belt"); belt != "" {
			rank, err := catalog.ParseRank(belt)
			if err != nil {
				return err
			}
			entries = catalog.EligibleEntries(catalog.Profile{CurrentRank: rank}, entries)
		}

		fmt.Printf("%-24s  %-10s  %-13s  %-22s  %s\n", "ID", "Belt", "Kind", "Term", "Meaning")
		fmt.Println(strings.Repeat("─", 100))
		for _, e := range entries {
			meaning := e.Meaning
			if len(meaning) > 40 {
				meaning = meaning[:37] + "..."
			}
			fmt.Printf("%-24s  %-10s  %-13s  %-22s  %s\n", e.ID, e.GateLevel, e.Kind, e.Term, meaning)
		}
		fmt.Printf("\n%d entries (catalog %s)\n", len(entries), c.Version())
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("belt", "", "Only entries unlocked at this belt")

	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
