package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/refresh"
	"github.com/theirongolddev/ynabd/internal/sensor"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

var flagStatusFromDaemon bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Refresh once and show every budget sensor",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusFromDaemon, "daemon", false, "Read sensors from the running daemon instead of YNAB")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	var values map[string]state.Value
	if flagStatusFromDaemon {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		values, err = daemon.NewClient(daemonAddr()).Sensors(ctx)
		if err != nil {
			return err
		}
	} else {
		values, err = refreshOnce(cfg)
		if err != nil {
			return err
		}
	}

	store := state.New()
	for k, v := range values {
		store.Set(k, v)
	}
	platform := sensor.NewPlatform(cfg.YNAB.Name, cfg.YNAB.Currency, store)

	fmt.Println()
	fmt.Println(cli.RenderTitle(cfg.YNAB.Name))
	fmt.Println()
	fmt.Print(cli.RenderTable(sensorTable(store, platform.Symbol(), cfg)))
	fmt.Println()
	return nil
}

func refreshOnce(cfg config.Config) (map[string]state.Value, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching budget %q...\n", cfg.YNAB.Budget)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := state.New()
	r := refresh.New(client, store, nil, refresh.Options{
		BudgetID:   cfg.YNAB.Budget,
		Accounts:   cfg.YNAB.Accounts,
		Categories: cfg.YNAB.Categories,
	})
	if err := r.ForceUpdate(ctx); err != nil {
		switch {
		case errors.Is(err, ynab.ErrUnauthorized):
			return nil, errors.New("access token rejected by YNAB; create a new one under Account Settings > Developer Settings")
		case errors.Is(err, ynab.ErrNotFound):
			return nil, fmt.Errorf("budget %q not found; run `ynabd budgets` to list ids", cfg.YNAB.Budget)
		case errors.Is(err, ynab.ErrRateLimited):
			return nil, errors.New("rate limited by YNAB; try again later")
		}
		return nil, err
	}
	return store.Snapshot(), nil
}

// sensorTable groups the fixed sensors first, then configured accounts and
// categories, then anything else.
func sensorTable(store *state.Store, symbol string, cfg config.Config) cli.Table {
	seen := make(map[string]bool)
	var rows [][]string
	add := func(key string) {
		v, ok := store.Get(key)
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, []string{key, cli.FormatValue(v, symbol)})
	}

	for _, k := range state.FixedKeys {
		add(k)
	}
	if len(cfg.YNAB.Accounts) > 0 {
		rows = append(rows, []string{"---"})
		for _, k := range cfg.YNAB.Accounts {
			add(k)
		}
	}
	if len(cfg.YNAB.Categories) > 0 {
		rows = append(rows, []string{"---"})
		for _, k := range cfg.YNAB.Categories {
			add(k)
			add(k + state.BudgetedSuffix)
		}
	}
	for _, k := range store.Keys() {
		add(k)
	}

	return cli.Table{
		Headers: []string{"Sensor", "Value"},
		Rows:    rows,
	}
}
