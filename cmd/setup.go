package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	vals := tui.NewSetupValues(cfg)

	form := tui.NewSetupForm(&vals, config.GetAPIKey(cfg) != "")
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}
	if !vals.Confirm {
		fmt.Println("  Nothing saved.")
		return nil
	}

	vals.Apply(&cfg)

	if err := config.SaveFile(configPath(), cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", configPath())
	fmt.Println("  Run `ynabd check` to verify, then `ynabd daemon --detach`.")
	fmt.Println()
	return nil
}
