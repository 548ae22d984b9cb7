package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [profile]",
	Short: "Export a profile's progress as JSON",
	Long: "Export a profile's progress as JSON.\n\n" +
		"With --all, every profile is written into one bundle file.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("give either a profile id or --all")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = os.Stdout
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		if all {
			b, err := a.ExportAll(cmd.Context(), now())
			if err != nil {
				return err
			}
			b.AppVersion = version
			if err := export.WriteBundle(w, b); err != nil {
				return err
			}
			log.Info("profiles exported", "profiles", len(b.Profiles))
			return nil
		}

		doc, err := a.Export(cmd.Context(), args[0], now())
		if err != nil {
			return err
		}
		doc.AppVersion = version
		if err := export.Write(w, doc); err != nil {
			return err
		}
		log.Info("profile exported", "profile_id", args[0], "records", len(doc.Progress), "sessions", len(doc.Sessions))
		return nil
	},
}

var exportValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		b, err := export.Validate(f)
		if err != nil {
			return err
		}
		fmt.Printf("%s: valid export, %d profile(s)\n", args[0], len(b.Profiles))
		for _, doc := range b.Profiles {
			fmt.Printf("  %s (%s): %d records, %d sessions\n",
				doc.Profile.ID, doc.Profile.Belt, len(doc.Progress), len(doc.Sessions))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().Bool("all", false, "Export every profile into one bundle")

	exportCmd.AddCommand(exportValidateCmd)
}
