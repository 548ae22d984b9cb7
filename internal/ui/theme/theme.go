package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Due = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Box colors run from red (new) to green (mastered).
var boxColors = []color.Color{
	lipgloss.Color("#F43F5E"),
	lipgloss.Color("#F97316"),
	lipgloss.Color("#EAB308"),
	lipgloss.Color("#14B8A6"),
	lipgloss.Color("#22C55E"),
}

// BoxColor returns the bar color for a Leitner box.
func BoxColor(box int) color.Color {
	if box < 0 {
		box = 0
	}
	if box >= len(boxColors) {
		box = len(boxColors) - 1
	}
	return boxColors[box]
}

// Belt returns a style tinted with the belt color for a rank. Keup ranks
// alternate between a solid belt and a tip stripe toward the next color.
func Belt(rank int) lipgloss.Style {
	var c color.Color
	switch {
	case rank <= 2:
		c = lipgloss.Color("#F8FAFC") // white
	case rank <= 4:
		c = lipgloss.Color("#EAB308") // yellow
	case rank <= 6:
		c = lipgloss.Color("#22C55E") // green
	case rank <= 8:
		c = lipgloss.Color("#3B82F6") // blue
	case rank <= 10:
		c = lipgloss.Color("#EF4444") // red
	default:
		c = lipgloss.Color("#A1A1AA") // black, shown light for contrast
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
