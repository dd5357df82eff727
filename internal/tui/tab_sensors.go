package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/tui/components"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

func (a App) renderSensorsTab(cw, h int) string {
	t := theme.Active
	if len(a.keys) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Render("  No sensors yet. Waiting for the first refresh.")
	}

	widths := components.LayoutRow(cw, 2)
	listW := components.CardInnerWidth(widths[0])

	// Two lines of card border plus the title line.
	visible := max(1, h-3)
	offset := 0
	if a.sensorCursor >= visible {
		offset = a.sensorCursor - visible + 1
	}

	rowStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)

	var rows []string
	for i := offset; i < len(a.keys) && i < offset+visible; i++ {
		key := a.keys[i]
		value := cli.FormatValue(a.sensors[key], a.symbol)
		gap := max(1, listW-lipgloss.Width(key)-lipgloss.Width(value))
		line := key + strings.Repeat(" ", gap) + value
		if i == a.sensorCursor {
			rows = append(rows, selStyle.Width(listW).Render(line))
		} else {
			rows = append(rows, rowStyle.Render(line))
		}
	}

	title := fmt.Sprintf("Sensors (%d)", len(a.keys))
	list := components.ContentCard(title, strings.Join(rows, "\n"), widths[0])
	detail := components.ContentCard("Detail", a.renderSensorDetail(components.CardInnerWidth(widths[1])), widths[1])
	return components.CardRow([]string{list, detail})
}

func (a App) renderSensorDetail(width int) string {
	t := theme.Active
	key := a.selectedKey()
	v, ok := a.sensors[key]
	if !ok {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	b.WriteString(valueStyle.Render(key))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Value    "))
	b.WriteString(a.moneyStyle(v).Bold(true).Render(cli.FormatValue(v, a.symbol)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Unit     "))
	b.WriteString(string(v.Unit))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Updated  "))
	b.WriteString(v.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	b.WriteString("\n\n")

	if !a.status.History {
		b.WriteString(dimStyle.Render("History is disabled on the daemon."))
		return b.String()
	}

	points := a.history[key]
	if len(points) < 2 {
		b.WriteString(dimStyle.Render("Not enough history yet."))
		return b.String()
	}

	// Points arrive newest first.
	values := make([]float64, len(points))
	lo, hi := points[0], points[0]
	for i, p := range points {
		values[len(points)-1-i] = p.Amount.InexactFloat64()
		if p.Amount.LessThan(lo.Amount) {
			lo = p
		}
		if p.Amount.GreaterThan(hi.Amount) {
			hi = p
		}
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("Last %d readings", len(points))))
	b.WriteString("\n")
	b.WriteString(components.Sparkline(components.Resample(values, width), t.Accent))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("low %s  high %s",
		formatPoint(lo.Amount, v.Unit, a.symbol), formatPoint(hi.Amount, v.Unit, a.symbol))))
	return b.String()
}
