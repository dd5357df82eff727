package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/history"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/tui/components"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

type fakeAPI struct {
	err       error
	refreshed int
}

func money(n int64) state.Value {
	return state.Currency(decimal.NewFromInt(n))
}

func (f *fakeAPI) Status(context.Context) (daemon.Status, error) {
	if f.err != nil {
		return daemon.Status{}, f.err
	}
	st := daemon.Status{Name: "YNAB", History: true, PollIntervalSec: 300}
	st.Refresh.BudgetName = "Home"
	st.Refresh.Updates = 2
	return st, nil
}

func (f *fakeAPI) Sensors(context.Context) (map[string]state.Value, error) {
	values := map[string]state.Value{
		state.KeyToBeBudgeted:        money(50),
		state.KeyTotalBalance:        money(1500),
		state.KeyAgeOfMoney:          state.Days(42),
		state.KeyOverspentCategories: state.Count(1),
		"Checking":                   money(-20),
		"Groceries":                  money(25),
	}
	values["Groceries"+state.BudgetedSuffix] = money(100)
	return values, nil
}

func (f *fakeAPI) Sensor(_ context.Context, key string, _ int) (daemon.SensorResponse, error) {
	now := time.Now()
	return daemon.SensorResponse{
		Key:   key,
		Value: money(50),
		History: []history.Point{
			{At: now, Amount: decimal.NewFromInt(50), Unit: state.UnitCurrency},
			{At: now.Add(-time.Hour), Amount: decimal.NewFromInt(10), Unit: state.UnitCurrency},
			{At: now.Add(-2 * time.Hour), Amount: decimal.NewFromInt(-5), Unit: state.UnitCurrency},
		},
	}, nil
}

func (f *fakeAPI) Events(context.Context) ([]events.Event, error) {
	return []events.Event{
		{Seq: 1, Topic: events.TopicStateChanged, Timestamp: time.Now(),
			Data: map[string]any{"changes": []state.Change{{Key: "Checking"}}}},
		{Seq: 2, Topic: events.TopicImported, Timestamp: time.Now(),
			Data: map[string]any{events.DataTransactionsImported: 3}},
	}, nil
}

func (f *fakeAPI) Refresh(context.Context) error {
	f.refreshed++
	return f.err
}

func testCfg() config.Config {
	cfg := config.DefaultConfig()
	cfg.YNAB.Accounts = []string{"Checking"}
	cfg.YNAB.Categories = []string{"Groceries"}
	return cfg
}

func loadedApp(t *testing.T, api *fakeAPI) App {
	t.Helper()
	a := NewApp(api, testCfg())
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(fetchSnapshotCmd(api)())
	return m.(App)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestViewLoadingUntilSnapshot(t *testing.T) {
	a := NewApp(&fakeAPI{}, testCfg())
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if !strings.Contains(m.View(), "Contacting daemon") {
		t.Fatalf("expected loading view, got:\n%s", m.View())
	}
}

func TestOverviewShowsSensors(t *testing.T) {
	a := loadedApp(t, &fakeAPI{})
	view := a.View()
	for _, want := range []string{"To be budgeted", "$50.00", "$1,500.00", "42 days", "Checking", "-$20.00", "Groceries", "Home"} {
		if !strings.Contains(view, want) {
			t.Errorf("overview missing %q", want)
		}
	}
	if a.keys[0] != state.KeyToBeBudgeted {
		t.Fatalf("keys not in display order: %v", a.keys)
	}
}

func TestSensorsTabLoadsHistory(t *testing.T) {
	api := &fakeAPI{}
	a := loadedApp(t, api)

	m, cmd := a.Update(key('s'))
	if cmd == nil {
		t.Fatal("switching to sensors should fetch history")
	}
	m, _ = m.Update(cmd())
	a = m.(App)

	if a.activeTab != tabSensors {
		t.Fatalf("activeTab = %d, want sensors", a.activeTab)
	}
	if got := len(a.history[state.KeyToBeBudgeted]); got != 3 {
		t.Fatalf("history points = %d, want 3", got)
	}
	if view := a.View(); !strings.Contains(view, "Last 3 readings") {
		t.Fatalf("detail missing history:\n%s", view)
	}

	m, _ = a.Update(key('j'))
	if got := m.(App).selectedKey(); got != state.KeyTotalBalance {
		t.Fatalf("selected after j = %q, want %q", got, state.KeyTotalBalance)
	}
	m, _ = m.Update(key('G'))
	if got := m.(App).sensorCursor; got != len(a.keys)-1 {
		t.Fatalf("cursor after G = %d, want %d", got, len(a.keys)-1)
	}
}

func TestEventsTab(t *testing.T) {
	a := loadedApp(t, &fakeAPI{})
	m, _ := a.Update(key('e'))
	view := m.View()
	for _, want := range []string{"3 transactions imported", "Checking changed", events.TopicImported} {
		if !strings.Contains(view, want) {
			t.Errorf("events view missing %q", want)
		}
	}
}

func TestRefreshKey(t *testing.T) {
	api := &fakeAPI{}
	a := loadedApp(t, api)

	m, cmd := a.Update(key('r'))
	if !m.(App).refreshing || cmd == nil {
		t.Fatal("r should start a refresh")
	}
	if _, again := m.Update(key('r')); again != nil {
		t.Fatal("second r while refreshing should be ignored")
	}

	done := refreshCmd(api)()
	if api.refreshed != 1 {
		t.Fatalf("Refresh called %d times, want 1", api.refreshed)
	}
	m, cmd = m.Update(done)
	if m.(App).refreshing || cmd == nil {
		t.Fatal("refresh completion should clear the flag and re-poll")
	}
}

func TestSnapshotErrorKeepsData(t *testing.T) {
	api := &fakeAPI{}
	a := loadedApp(t, api)

	api.err = errors.New("daemon: unreachable")
	m, _ := a.Update(fetchSnapshotCmd(api)())
	a = m.(App)

	if a.err == nil {
		t.Fatal("expected error to be recorded")
	}
	if _, ok := a.sensors[state.KeyToBeBudgeted]; !ok {
		t.Fatal("previous sensors should be kept on error")
	}
	if !strings.Contains(a.View(), "daemon: unreachable") {
		t.Fatal("status bar should show the error")
	}
}

func TestMouseClickSwitchesTab(t *testing.T) {
	a := loadedApp(t, &fakeAPI{})
	x := components.TabVisualWidth(components.Tabs[0]) + 1 + 2
	m, _ := a.Update(tea.MouseMsg{X: x, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := m.(App).activeTab; got != tabSensors {
		t.Fatalf("activeTab after click = %d, want %d", got, tabSensors)
	}
}

func TestHelpToggle(t *testing.T) {
	a := loadedApp(t, &fakeAPI{})
	m, _ := a.Update(key('?'))
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("? should open help")
	}
	m, _ = m.Update(key('x'))
	if m.(App).showHelp {
		t.Fatal("any key should close help")
	}
}

func TestSummarizeDecodedJSON(t *testing.T) {
	ev := events.Event{Topic: events.TopicImported, Data: map[string]any{events.DataTransactionsImported: float64(1)}}
	if got := summarize(ev); got != "1 transaction imported" {
		t.Fatalf("summarize = %q", got)
	}

	ev = events.Event{Topic: events.TopicStateChanged, Data: map[string]any{"changes": []any{
		map[string]any{"key": "a"}, map[string]any{"key": "b"}, map[string]any{"key": "c"}, map[string]any{"key": "d"},
	}}}
	if got := summarize(ev); got != "a, b, c and 1 more changed" {
		t.Fatalf("summarize = %q", got)
	}
}
