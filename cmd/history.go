package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/sensor"
	"github.com/theirongolddev/ynabd/internal/state"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history <sensor>",
	Short: "Show recorded readings for one sensor from the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Number of readings to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, args []string) error {
	key := args[0]
	if flagHistoryLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := daemon.NewClient(daemonAddr()).Sensor(ctx, key, flagHistoryLimit)
	if err != nil {
		return err
	}

	symbol := sensor.ResolveSymbol(appCfg.YNAB.Currency)
	rows := make([][]string, 0, len(resp.History))
	values := make([]float64, len(resp.History))
	for i, p := range resp.History {
		rows = append(rows, []string{
			p.At.Local().Format("2006-01-02 15:04:05"),
			cli.FormatValue(state.Value{Amount: p.Amount, Unit: p.Unit}, symbol),
		})
		// Oldest first for the sparkline.
		values[len(values)-1-i] = p.Amount.InexactFloat64()
	}

	fmt.Println()
	fmt.Printf("  %s  %s\n", key, cli.FormatValue(resp.Value, symbol))
	if len(rows) == 0 {
		fmt.Println(cli.Muted("  No recorded history (is [daemon] history enabled?)"))
		return nil
	}
	fmt.Printf("  %s\n\n", cli.RenderSparkline(values))
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Recorded", "Value"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
