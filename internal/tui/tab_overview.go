package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/tui/components"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

const (
	tabOverview = iota
	tabSensors
	tabEvents
)

func (a App) renderOverviewTab(cw int) string {
	var b strings.Builder

	b.WriteString(components.MetricCardRow([]components.Metric{
		a.moneyMetric("To be budgeted", state.KeyToBeBudgeted, "this month"),
		a.moneyMetric("Total balance", state.KeyTotalBalance, "on-budget accounts"),
		a.moneyMetric("Budgeted", state.KeyBudgetedThisMonth, "this month"),
		a.moneyMetric("Activity", state.KeyActivityThisMonth, "this month"),
	}, cw))
	b.WriteString("\n")

	b.WriteString(components.MetricCardRow([]components.Metric{
		a.countMetric("Age of money", state.KeyAgeOfMoney, "", false),
		a.countMetric("Need approval", state.KeyNeedApproval, "transactions", true),
		a.countMetric("Uncleared", state.KeyUnclearedTransactions, "transactions", false),
		a.countMetric("Overspent", state.KeyOverspentCategories, "categories", true),
	}, cw))
	b.WriteString("\n")

	widths := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Accounts", a.renderAccounts(components.CardInnerWidth(widths[0])), widths[0]),
		components.ContentCard("Refresh", a.renderRefreshInfo(), widths[1]),
	}))

	if len(a.categories) > 0 {
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Categories", a.renderCategories(components.CardInnerWidth(cw)), cw))
	}

	return b.String()
}

func (a App) moneyMetric(label, key, note string) components.Metric {
	t := theme.Active
	m := components.Metric{Label: label, Value: "-", Note: note}
	v, ok := a.sensors[key]
	if !ok {
		return m
	}
	m.Value = cli.FormatMoney(v.Amount, a.symbol)
	if key == state.KeyToBeBudgeted {
		switch v.Amount.Sign() {
		case 1:
			m.Color = t.Green
		case -1:
			m.Color = t.Red
		}
	}
	return m
}

// countMetric renders a count or day figure. alertOnPositive tints the value
// when anything needs attention.
func (a App) countMetric(label, key, note string, alertOnPositive bool) components.Metric {
	m := components.Metric{Label: label, Value: "-", Note: note}
	v, ok := a.sensors[key]
	if !ok {
		return m
	}
	m.Value = cli.FormatValue(v, a.symbol)
	if alertOnPositive && v.Amount.IsPositive() {
		m.Color = theme.Active.Orange
	}
	return m
}

func (a App) renderAccounts(width int) string {
	t := theme.Active
	nameStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	if len(a.accounts) == 0 {
		return dimStyle.Render("No accounts configured.")
	}

	var lines []string
	for _, name := range a.accounts {
		v, ok := a.sensors[name]
		value := dimStyle.Render("not found")
		if ok {
			value = a.moneyStyle(v).Render(cli.FormatMoney(v.Amount, a.symbol))
		}
		gap := width - lipgloss.Width(name) - lipgloss.Width(value)
		if gap < 1 {
			gap = 1
		}
		lines = append(lines, nameStyle.Render(name)+strings.Repeat(" ", gap)+value)
	}
	return strings.Join(lines, "\n")
}

func (a App) renderRefreshInfo() string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	errStyle := lipgloss.NewStyle().Foreground(t.Red)

	st := a.status
	now := time.Now()
	rows := [][2]string{
		{"Budget", st.Refresh.BudgetName},
		{"Last update", cli.FormatAgo(st.Refresh.LastUpdate, now)},
		{"Every", cli.FormatDuration(int64(st.PollIntervalSec))},
		{"Updates", fmt.Sprintf("%d ok, %d failed, %d throttled", st.Refresh.Updates, st.Refresh.Failures, st.Refresh.Throttled)},
		{"Imported", cli.FormatNumber(st.Refresh.TransactionsImported)},
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", r[0])))
		b.WriteString(valueStyle.Render(r[1]))
	}
	if st.Refresh.LastError != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(st.Refresh.LastError))
	}
	return b.String()
}

func (a App) renderCategories(width int) string {
	labelW := 0
	for _, c := range a.categories {
		labelW = max(labelW, lipgloss.Width(c))
	}
	labelW = min(labelW, 24)
	barW := max(10, width-labelW-30)

	var lines []string
	for _, c := range a.categories {
		balance, ok := a.sensors[c]
		if !ok {
			continue
		}
		budgeted := a.sensors[c+state.BudgetedSuffix]
		pct := components.SpentPct(budgeted.Float64(), balance.Float64())
		note := cli.FormatMoney(balance.Amount, a.symbol) + " left"
		lines = append(lines, components.CategoryBar(c, pct, note, labelW, barW))
	}
	if len(lines) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Active.TextDim).Render("No category data yet.")
	}
	return strings.Join(lines, "\n")
}

func (a App) moneyStyle(v state.Value) lipgloss.Style {
	t := theme.Active
	if v.Amount.IsNegative() {
		return lipgloss.NewStyle().Foreground(t.Red)
	}
	return lipgloss.NewStyle().Foreground(t.TextPrimary)
}
