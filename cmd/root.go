// Package cmd implements the ynabd CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

var (
	flagConfig    string
	flagQuiet     bool
	flagLogLevel  string
	flagLogFormat string

	// appCfg is loaded once before any subcommand runs.
	appCfg config.Config
)

var rootCmd = &cobra.Command{
	Use:               "ynabd",
	Short:             "YNAB budget poller",
	Long:              "Poll a YNAB budget, expose its figures as sensors, and force bank imports.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigAndLogging,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (human, json)")
}

func loadConfigAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if flagConfig != "" {
		appCfg, err = config.LoadPath(flagConfig)
	} else {
		appCfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	setupLogging(appCfg.Log)
	return nil
}

// setupLogging configures the global logger. Flags win over env vars,
// which win over the config file.
func setupLogging(lc config.LogConfig) {
	format := firstNonEmpty(flagLogFormat, os.Getenv("LOG_FORMAT"), lc.Format)
	levelName := firstNonEmpty(flagLogLevel, os.Getenv("LOG_LEVEL"), lc.Level, "info")

	output := io.Writer(os.Stderr)
	if format != "json" {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if flagQuiet && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(output).With().Timestamp().Logger()
}

// requireConfig validates the loaded config for commands that talk to YNAB.
func requireConfig() (config.Config, error) {
	cfg := appCfg
	if err := config.Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("%w\n  run `ynabd setup` or set YNAB_API_KEY", err)
	}
	return cfg, nil
}

func newClient(cfg config.Config) (*ynab.Client, error) {
	client := ynab.NewClient(cfg.YNAB.APIKey, ynab.WithBaseURL(cfg.YNAB.APIEndpoint))
	if client == nil {
		return nil, config.ErrMissingAPIKey
	}
	return client, nil
}

// configPath is the config file in use.
func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.Path()
}

// configDir is the directory required files are checked in.
func configDir() string {
	return filepath.Dir(configPath())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
