package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/preflight"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the startup checks without starting the daemon",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	verr := config.Validate(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	required := config.RequiredFiles(cfg, configPath())
	missing, filesOK := preflight.CheckFiles(configDir(), required)
	urlOK := preflight.CheckURL(ctx, nil, cfg.YNAB.APIEndpoint)

	mark := func(ok bool) string {
		if ok {
			return cli.Signed("ok", 1)
		}
		return cli.Signed("FAIL", -1)
	}

	filesDetail := strings.Join(required, ", ")
	if !filesOK {
		filesDetail = "missing " + strings.Join(missing, ", ")
	}
	configDetail := configPath()
	if verr != nil {
		configDetail = strings.ReplaceAll(verr.Error(), "\n", "; ")
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Check", "Result", "Detail"},
		Rows: [][]string{
			{"config", mark(verr == nil), configDetail},
			{"files", mark(filesOK), filesDetail},
			{"endpoint", mark(urlOK), cfg.YNAB.APIEndpoint},
		},
	}))
	fmt.Println()

	if verr != nil || !filesOK || !urlOK {
		return errors.New("checks failed")
	}
	return nil
}
