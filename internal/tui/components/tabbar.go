package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

// Tab is one entry in the tab bar.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines the dashboard tabs in display order. Every key is the
// lowercase first letter of its name.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Sensors", Key: 's'},
	{Name: "Events", Key: 'e'},
}

// RenderTabBar renders the tab bar on one row.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)
	sepStyle := lipgloss.NewStyle().Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
		} else {
			parts = append(parts, inactiveStyle.Render(tab.Name))
		}
	}

	row := strings.Join(parts, sepStyle.Render(" "))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabVisualWidth returns the rendered width of a tab including padding.
func TabVisualWidth(tab Tab) int {
	return lipgloss.Width(tab.Name) + 2
}

// TabAtX returns the index of the tab under column x, or -1.
func TabAtX(x int) int {
	pos := 0
	for i, tab := range Tabs {
		w := TabVisualWidth(tab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1
	}
	return -1
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
