package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
)

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "List the budgets the access token can see",
	RunE:  runBudgets,
}

func init() {
	rootCmd.AddCommand(budgetsCmd)
}

func runBudgets(_ *cobra.Command, _ []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	budgets, err := client.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("listing budgets: %w", err)
	}

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		marker := ""
		if b.ID == cfg.YNAB.Budget {
			marker = "*"
		}
		rows = append(rows, []string{b.Name, b.ID, b.LastModifiedOn, marker})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("%d budgets", len(budgets)),
		Headers: []string{"Name", "ID", "Last modified", "Used"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Println(cli.Muted(`  Set [ynab] budget = "<id>" in the config, or keep "last-used".`))
	return nil
}
