package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/progress"
	"github.com/abhisek/dojang/internal/spacedrep"
	"github.com/abhisek/dojang/internal/ui/components"
	"github.com/abhisek/dojang/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats <profile>",
	Short: "Show learning statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rep, err := a.Stats(cmd.Context(), p.ID, now())
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}

		fmt.Println(renderStats(p, len(a.Catalog.Eligible(p)), rep))
		return nil
	},
}

func renderStats(p catalog.Profile, unlocked int, rep progress.Report) string {
	const width = 48

	row := func(label, value string) string {
		return theme.Label.Render(fmt.Sprintf("%-16s", label)) + theme.Value.Render(value)
	}

	name := p.ID
	if p.Name != "" {
		name = p.Name
	}
	lines := []string{
		theme.Title.Render(name) + "  " + theme.Belt(int(p.CurrentRank)).Render(p.CurrentRank.String()),
		"",
		row("Unlocked", fmt.Sprintf("%d entries", unlocked)),
		row("Tracked", fmt.Sprintf("%d entries", rep.TrackedEntries)),
		row("Due now", theme.Due.Render(fmt.Sprint(rep.DueNow))),
		row("Sessions", fmt.Sprint(rep.TotalSessions)),
		row("Reviews", fmt.Sprintf("%d (%.0f%% correct)", rep.TotalReviews, rep.Accuracy*100)),
		row("Study time", rep.StudyTime.Round(time.Minute).String()),
		row("Streak", fmt.Sprintf("%d days", rep.StreakDays)),
		"",
		theme.Label.Render("Leitner boxes"),
	}

	for box, n := range rep.Boxes {
		var pct float64
		if rep.TrackedEntries > 0 {
			pct = float64(n) / float64(rep.TrackedEntries)
		}
		bar := components.ProgressBar{
			Label:   fmt.Sprintf("box %d", box),
			Percent: pct,
			Width:   width,
			Fill:    theme.BoxColor(box),
			Suffix:  fmt.Sprint(n),
		}
		lines = append(lines, bar.View())
	}

	lines = append(lines, "")
	levels := make([]string, 0, len(spacedrep.Levels))
	for _, lvl := range spacedrep.Levels {
		levels = append(levels, fmt.Sprintf("%s %d", lvl, rep.Levels[lvl]))
	}
	lines = append(lines, theme.Hint.Render(strings.Join(levels, " · ")))

	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print the report as JSON")
}
