package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

// RenderStatusBar renders the bottom bar: key hints on the left, data
// freshness on the right, and an error in place of the hints when set.
// A non-empty busy replaces the freshness text.
func RenderStatusBar(width int, dataAge, errMsg, busy string) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	busyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := hintStyle.Render(" [?]help  [r]efresh  [q]uit")
	if errMsg != "" {
		left = errStyle.Render(" " + errMsg)
	}

	right := ""
	if busy != "" {
		right = busyStyle.Render(busy + " ")
	} else if dataAge != "" {
		right = hintStyle.Render("updated " + dataAge + " ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return barStyle.Width(width).Render(left + barStyle.Render(strings.Repeat(" ", gap)) + right)
}
