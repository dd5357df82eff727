package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

// ColorForSpent picks a color for the share of a category's budget already
// spent: green while comfortable, red once overspent.
func ColorForSpent(pct float64) string {
	t := theme.Active
	switch {
	case pct > 1:
		return string(t.Red)
	case pct >= 0.9:
		return string(t.Orange)
	case pct >= 0.7:
		return string(t.Yellow)
	default:
		return string(t.Green)
	}
}

// SpentPct returns how much of budgeted has been used given the remaining
// balance. Categories with nothing budgeted count as fully spent when the
// balance is negative and untouched otherwise.
func SpentPct(budgeted, balance float64) float64 {
	if budgeted <= 0 {
		if balance < 0 {
			return 1.01
		}
		return 0
	}
	pct := (budgeted - balance) / budgeted
	if pct < 0 {
		return 0
	}
	return pct
}

// CategoryBar renders "label [bar] pct  note" for one budget category.
func CategoryBar(label string, pct float64, note string, labelW, barWidth int) string {
	t := theme.Active

	fill := pct
	if fill > 1 {
		fill = 1
	}

	color := ColorForSpent(pct)
	bar := progress.New(
		progress.WithSolidFill(color),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(t.Surface).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(label, labelW))) +
		spaceStyle.Render(" ") +
		bar.ViewAs(fill) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%4.0f%%", pct*100)) +
		spaceStyle.Render("  ") +
		noteStyle.Render(note)
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
