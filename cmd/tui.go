package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/tui"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Live dashboard for a running daemon",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.TUI.Theme)

	// Background fills need escape codes even when the terminal is not
	// detected as color capable.
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(daemon.NewClient(daemonAddr()), appCfg)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
