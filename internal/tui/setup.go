package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/tui/theme"
)

// SetupValues backs the setup form fields.
type SetupValues struct {
	APIKey      string
	Name        string
	Budget      string
	Currency    string
	Accounts    string // comma separated
	Categories  string // comma separated
	Addr        string
	IntervalSec string
	Theme       string
	Confirm     bool
}

// NewSetupValues pre-fills the form from cfg. The stored access token is
// never echoed back; leaving the field empty keeps it.
func NewSetupValues(cfg config.Config) SetupValues {
	return SetupValues{
		Name:        cfg.YNAB.Name,
		Budget:      cfg.YNAB.Budget,
		Currency:    cfg.YNAB.Currency,
		Accounts:    strings.Join(cfg.YNAB.Accounts, ", "),
		Categories:  strings.Join(cfg.YNAB.Categories, ", "),
		Addr:        cfg.Daemon.Addr,
		IntervalSec: strconv.Itoa(cfg.Daemon.IntervalSec),
		Theme:       theme.ByName(cfg.TUI.Theme).Name,
		Confirm:     true,
	}
}

// NewSetupForm builds the interactive setup form. hasKey reports whether
// an access token is already configured.
func NewSetupForm(v *SetupValues, hasKey bool) *huh.Form {
	tokenHint := "Create one under Account Settings > Developer Settings."
	if hasKey {
		tokenHint = "Leave blank to keep the current token."
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("ynabd setup").
				Description("Poll a YNAB budget and expose it as sensors."),
			huh.NewInput().
				Title("Personal access token").
				Description(tokenHint).
				EchoMode(huh.EchoModePassword).
				Value(&v.APIKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" && !hasKey {
						return errors.New("an access token is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Display name").
				Value(&v.Name),
			huh.NewInput().
				Title("Budget").
				Description(`A budget id, or "last-used".`).
				Value(&v.Budget),
			huh.NewInput().
				Title("Currency").
				Description(`A symbol like "$" or an ISO code like "EUR".`).
				Value(&v.Currency),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Accounts").
				Description("Comma separated account names to track.").
				Value(&v.Accounts),
			huh.NewInput().
				Title("Categories").
				Description("Comma separated category names to track.").
				Value(&v.Categories),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Daemon address").
				Value(&v.Addr),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Value(&v.IntervalSec).
				Validate(validateInterval),
			huh.NewSelect[string]().
				Title("Dashboard theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
			huh.NewConfirm().
				Title("Save configuration?").
				Value(&v.Confirm),
		),
	)
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a whole number of seconds, at least 1")
	}
	return nil
}

// Apply copies the form values onto cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	if key := strings.TrimSpace(v.APIKey); key != "" {
		cfg.YNAB.APIKey = key
	}
	if s := strings.TrimSpace(v.Name); s != "" {
		cfg.YNAB.Name = s
	}
	if s := strings.TrimSpace(v.Budget); s != "" {
		cfg.YNAB.Budget = s
	}
	if s := strings.TrimSpace(v.Currency); s != "" {
		cfg.YNAB.Currency = s
	}
	cfg.YNAB.Accounts = splitList(v.Accounts)
	cfg.YNAB.Categories = splitList(v.Categories)

	if s := strings.TrimSpace(v.Addr); s != "" {
		cfg.Daemon.Addr = s
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.IntervalSec)); err == nil && n > 0 {
		cfg.Daemon.IntervalSec = n
	}
	cfg.TUI.Theme = theme.ByName(v.Theme).Name
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
