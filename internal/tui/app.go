// Package tui provides the interactive Bubble Tea dashboard. It never talks
// to YNAB itself; everything comes from a running daemon's HTTP API.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/history"
	"github.com/theirongolddev/ynabd/internal/sensor"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/tui/components"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

// API is the part of the daemon client the dashboard uses.
type API interface {
	Status(ctx context.Context) (daemon.Status, error)
	Sensors(ctx context.Context) (map[string]state.Value, error)
	Sensor(ctx context.Context, key string, limit int) (daemon.SensorResponse, error)
	Events(ctx context.Context) ([]events.Event, error)
	Refresh(ctx context.Context) error
}

// SnapshotMsg carries one poll of the daemon.
type SnapshotMsg struct {
	Status  daemon.Status
	Sensors map[string]state.Value
	Events  []events.Event
	At      time.Time
	Err     error
}

// HistoryMsg carries recorded points for one sensor.
type HistoryMsg struct {
	Key    string
	Points []history.Point
	Err    error
}

// RefreshDoneMsg is sent when a forced refresh returns.
type RefreshDoneMsg struct {
	Err error
}

type tickMsg struct{}

const (
	minTerminalWidth = 60
	maxContentWidth  = 160
	minContentHeight = 5
	historyPoints    = 120
)

// App is the root Bubble Tea model.
type App struct {
	api        API
	name       string
	symbol     string
	accounts   []string
	categories []string
	interval   time.Duration

	// Data from the last successful poll.
	status    daemon.Status
	sensors   map[string]state.Value
	keys      []string
	events    []events.Event
	history   map[string][]history.Point
	loaded    bool
	lastFetch time.Time
	err       error

	refreshing bool
	spinner    spinner.Model

	width     int
	height    int
	activeTab int
	showHelp  bool

	sensorCursor int
	eventOffset  int
}

// NewApp creates the dashboard for the daemon behind api.
func NewApp(api API, cfg config.Config) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	interval := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if interval < time.Second {
		interval = 5 * time.Second
	}

	return App{
		api:        api,
		name:       cfg.YNAB.Name,
		symbol:     sensor.ResolveSymbol(cfg.YNAB.Currency),
		accounts:   cfg.YNAB.Accounts,
		categories: cfg.YNAB.Categories,
		interval:   interval,
		history:    make(map[string][]history.Point),
		spinner:    sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		fetchSnapshotCmd(a.api),
		tickCmd(a.interval),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if a.loaded && !a.refreshing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		return a, tea.Batch(fetchSnapshotCmd(a.api), tickCmd(a.interval))

	case SnapshotMsg:
		a.loaded = true
		a.err = msg.Err
		if msg.Err != nil {
			return a, nil
		}
		a.status = msg.Status
		a.sensors = msg.Sensors
		a.events = msg.Events
		a.lastFetch = msg.At
		a.keys = state.DisplayOrder(a.sensors, a.accounts, a.categories)
		a.clampCursor()
		return a, a.historyForSelection()

	case HistoryMsg:
		if msg.Err == nil {
			a.history[msg.Key] = msg.Points
		}
		return a, nil

	case RefreshDoneMsg:
		a.refreshing = false
		a.err = msg.Err
		return a, fetchSnapshotCmd(a.api)

	case tea.MouseMsg:
		if a.showHelp || msg.Action != tea.MouseActionPress {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if idx := a.tabAtX(msg.X); idx >= 0 {
					return a.switchTab(idx)
				}
			}
		case tea.MouseButtonWheelUp:
			return a.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			return a.moveCursor(1)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "?":
		a.showHelp = true
		return a, nil
	case "r":
		if a.refreshing {
			return a, nil
		}
		a.refreshing = true
		return a, tea.Batch(refreshCmd(a.api), a.spinner.Tick)
	case "left", "h":
		return a.switchTab((a.activeTab + len(components.Tabs) - 1) % len(components.Tabs))
	case "right", "l", "tab":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	case "j", "down":
		return a.moveCursor(1)
	case "k", "up":
		return a.moveCursor(-1)
	case "g":
		return a.moveCursor(-1 << 30)
	case "G":
		return a.moveCursor(1 << 30)
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			return a.switchTab(idx)
		}
	}
	return a, nil
}

func (a App) switchTab(idx int) (tea.Model, tea.Cmd) {
	a.activeTab = idx
	return a, a.historyForSelection()
}

// moveCursor scrolls the list on the active tab by delta rows.
func (a App) moveCursor(delta int) (tea.Model, tea.Cmd) {
	switch a.activeTab {
	case tabSensors:
		a.sensorCursor += delta
		a.clampCursor()
		return a, a.historyForSelection()
	case tabEvents:
		a.eventOffset += delta
		a.eventOffset = max(0, min(a.eventOffset, len(a.events)-1))
	}
	return a, nil
}

func (a *App) clampCursor() {
	a.sensorCursor = max(0, min(a.sensorCursor, len(a.keys)-1))
}

func (a App) selectedKey() string {
	if a.sensorCursor < 0 || a.sensorCursor >= len(a.keys) {
		return ""
	}
	return a.keys[a.sensorCursor]
}

// historyForSelection fetches history for the highlighted sensor when the
// sensors tab is showing.
func (a App) historyForSelection() tea.Cmd {
	if a.activeTab != tabSensors || !a.status.History {
		return nil
	}
	key := a.selectedKey()
	if key == "" {
		return nil
	}
	return fetchHistoryCmd(a.api, key)
}

func (a App) tabAtX(x int) int {
	return components.TabAtX(x)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols); need at least %d.\n", a.width, minTerminalWidth)
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logoStyle.Render("◈ ynabd") + subStyle.Render(" · "+a.name) + "\n\n" +
		a.spinner.View() + subStyle.Render(" Contacting daemon…")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	bindings := []struct{ key, desc string }{
		{"o s e", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move selection"},
		{"g G", "First / Last"},
		{"r", "Force a refresh now"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "%s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-8s", bind.key)),
			descStyle.Render(bind.desc))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)

	age := ""
	if !a.lastFetch.IsZero() {
		age = cli.FormatAgo(a.status.Refresh.LastUpdate, time.Now())
	}
	errMsg := ""
	if a.err != nil {
		errMsg = a.err.Error()
	}
	busy := ""
	if a.refreshing {
		busy = a.spinner.View() + " refreshing"
	}
	statusBar := components.RenderStatusBar(w, age, errMsg, busy)

	contentH := a.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabSensors:
		content = a.renderSensorsTab(cw, contentH)
	case tabEvents:
		content = a.renderEventsTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// fetchSnapshotCmd polls status, sensors and events in one go.
func fetchSnapshotCmd(api API) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		msg := SnapshotMsg{At: time.Now()}

		if msg.Status, msg.Err = api.Status(ctx); msg.Err != nil {
			return msg
		}
		if msg.Sensors, msg.Err = api.Sensors(ctx); msg.Err != nil {
			return msg
		}
		msg.Events, msg.Err = api.Events(ctx)
		return msg
	}
}

func fetchHistoryCmd(api API, key string) tea.Cmd {
	return func() tea.Msg {
		resp, err := api.Sensor(context.Background(), key, historyPoints)
		return HistoryMsg{Key: key, Points: resp.History, Err: err}
	}
}

func refreshCmd(api API) tea.Cmd {
	return func() tea.Msg {
		return RefreshDoneMsg{Err: api.Refresh(context.Background())}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}
