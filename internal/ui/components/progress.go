package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/dojang/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int

	// Fill defaults to theme.Secondary.
	Fill color.Color
	// Suffix replaces the percentage when set, e.g. a raw count.
	Suffix string
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	suffix := p.Suffix
	if suffix == "" && p.ShowPercent {
		suffix = fmt.Sprintf("%d%%", int(p.Percent*100))
	}
	suffixWidth := 0
	if suffix != "" {
		suffixWidth = len(suffix) + 2
	}

	barWidth := p.Width - labelWidth - suffixWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Percent)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	fill := p.Fill
	if fill == nil {
		fill = theme.Secondary
	}

	filledStr := lipgloss.NewStyle().
		Background(fill).
		Render(strings.Repeat(" ", filled))

	emptyStr := lipgloss.NewStyle().
		Background(theme.Border).
		Render(strings.Repeat(" ", empty))

	result += filledStr + emptyStr

	if suffix != "" {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render("  " + suffix)
	}

	return result
}
