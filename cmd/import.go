package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Ask YNAB to import transactions from linked accounts",
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, _ []string) error {
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

	res, err := client.ImportTransactions(ctx, cfg.YNAB.Budget)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	n := len(res.TransactionIDs)
	switch n {
	case 0:
		fmt.Println("  No new transactions.")
	case 1:
		fmt.Println("  Imported 1 transaction.")
	default:
		fmt.Printf("  Imported %d transactions.\n", n)
	}
	if res.RateLimit != "" && !flagQuiet {
		fmt.Printf("  Rate limit: %s\n", res.RateLimit)
	}
	return nil
}
