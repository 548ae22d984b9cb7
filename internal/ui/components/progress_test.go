package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

func TestProgressBarWidth(t *testing.T) {
	tests := []struct {
		name string
		bar  ProgressBar
	}{
		{"percent", NewProgressBar("box 0", 0.5, true, 40)},
		{"suffix", ProgressBar{Label: "box 4", Percent: 1, Width: 40, Suffix: "12"}},
		{"no label", ProgressBar{Percent: 0.25, Width: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lipgloss.Width(tt.bar.View()); got != tt.bar.Width {
				t.Errorf("width = %d, want %d", got, tt.bar.Width)
			}
		})
	}
}

func TestProgressBarSuffix(t *testing.T) {
	view := ProgressBar{Label: "box 2", Percent: 0.1, Width: 30, Suffix: "7"}.View()
	if !strings.HasSuffix(strings.TrimRight(ansi.Strip(view), " "), "7") {
		t.Errorf("suffix missing from %q", view)
	}
}

func TestProgressBarClampsPercent(t *testing.T) {
	over := ProgressBar{Percent: 3, Width: 20}.View()
	under := ProgressBar{Percent: -1, Width: 20}.View()
	if lipgloss.Width(over) != 20 || lipgloss.Width(under) != 20 {
		t.Errorf("out-of-range percent changed the bar width")
	}
}
