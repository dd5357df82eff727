package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/sensor"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	path := configPath()

	fmt.Printf("  Config file: %s\n", path)
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [ynab]")
	fmt.Print(cli.RenderKV([][2]string{
		{"api_key", cli.MaskKey(config.GetAPIKey(cfg))},
		{"name", cfg.YNAB.Name},
		{"budget", cfg.YNAB.Budget},
		{"currency", fmt.Sprintf("%s (%s)", cfg.YNAB.Currency, sensor.ResolveSymbol(cfg.YNAB.Currency))},
		{"accounts", listOrNone(cfg.YNAB.Accounts)},
		{"categories", listOrNone(cfg.YNAB.Categories)},
		{"api_endpoint", cfg.YNAB.APIEndpoint},
	}))
	fmt.Println()

	fmt.Println("  [daemon]")
	fmt.Print(cli.RenderKV([][2]string{
		{"addr", cfg.Daemon.Addr},
		{"interval", cli.FormatDuration(int64(cfg.Daemon.IntervalSec))},
		{"min_refresh", cli.FormatDuration(int64(cfg.Daemon.MinRefreshSec))},
		{"history", fmt.Sprintf("%v (%s)", cfg.Daemon.History, config.HistoryPath())},
		{"required_files", listOrNone(cfg.Daemon.RequiredFiles)},
	}))
	fmt.Println()

	fmt.Println("  [notify]")
	if cfg.Notify.Enabled() {
		fmt.Print(cli.RenderKV([][2]string{
			{"smtp", fmt.Sprintf("%s:%d", cfg.Notify.SMTPHost, cfg.Notify.SMTPPort)},
			{"from", cfg.Notify.From},
			{"to", listOrNone(cfg.Notify.To)},
			{"password", cli.MaskKey(config.GetSMTPPassword(cfg))},
		}))
	} else {
		fmt.Println(cli.Muted("  not configured"))
	}
	fmt.Println()

	fmt.Println("  Run `ynabd setup` to reconfigure.")
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
