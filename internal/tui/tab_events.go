package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/tui/components"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

func (a App) renderEventsTab(cw, h int) string {
	t := theme.Active
	if len(a.events) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Render("  No events yet.")
	}

	timeStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	summaryStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)

	visible := max(1, h-3)
	var rows []string
	// Newest first; eventOffset scrolls back in time.
	for i := len(a.events) - 1 - a.eventOffset; i >= 0 && len(rows) < visible; i-- {
		ev := a.events[i]
		rows = append(rows, timeStyle.Render(ev.Timestamp.Local().Format("01-02 15:04:05"))+"  "+
			topicStyle(ev.Topic).Render(fmt.Sprintf("%-20s", ev.Topic))+"  "+
			summaryStyle.Render(summarize(ev)))
	}

	title := fmt.Sprintf("Events (%d retained)", len(a.events))
	return components.ContentCard(title, strings.Join(rows, "\n"), cw)
}

func topicStyle(topic string) lipgloss.Style {
	t := theme.Active
	switch topic {
	case events.TopicImported:
		return lipgloss.NewStyle().Foreground(t.Green)
	case events.TopicRefreshError:
		return lipgloss.NewStyle().Foreground(t.Red)
	default:
		return lipgloss.NewStyle().Foreground(t.Accent)
	}
}

// summarize turns an event decoded from JSON into one line of text.
func summarize(ev events.Event) string {
	switch ev.Topic {
	case events.TopicImported:
		n := toInt(ev.Data[events.DataTransactionsImported])
		if n == 1 {
			return "1 transaction imported"
		}
		return fmt.Sprintf("%d transactions imported", n)
	case events.TopicStateChanged:
		keys := changedKeys(ev.Data["changes"])
		if len(keys) > 3 {
			return fmt.Sprintf("%s and %d more changed", strings.Join(keys[:3], ", "), len(keys)-3)
		}
		return strings.Join(keys, ", ") + " changed"
	case events.TopicRefreshError:
		msg, _ := ev.Data["error"].(string)
		return msg
	}
	return ""
}

// toInt accepts both in-process ints and numbers decoded from JSON.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func changedKeys(v any) []string {
	var keys []string
	switch changes := v.(type) {
	case []state.Change:
		for _, c := range changes {
			keys = append(keys, c.Key)
		}
	case []any:
		for _, c := range changes {
			if m, ok := c.(map[string]any); ok {
				if k, ok := m["key"].(string); ok {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

func formatPoint(d decimal.Decimal, unit state.Unit, symbol string) string {
	return cli.FormatValue(state.Value{Amount: d, Unit: unit}, symbol)
}
