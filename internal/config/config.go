// Package config loads and validates the ynabd configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultName        = "YNAB"
	DefaultBudget      = "last-used"
	DefaultCurrency    = "$"
	DefaultAPIEndpoint = "https://api.youneedabudget.com/v1"
	DefaultAddr        = "127.0.0.1:8788"

	// FileName is the default config file name inside Dir.
	FileName = "config.toml"

	// MinRefreshSec is the shortest gap between two refreshes of budget data.
	MinRefreshSec = 300
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("config: ynab api_key is required")

// Config holds all ynabd configuration.
type Config struct {
	YNAB   YNABConfig   `toml:"ynab"`
	Daemon DaemonConfig `toml:"daemon"`
	Notify NotifyConfig `toml:"notify"`
	Log    LogConfig    `toml:"log"`
	TUI    TUIConfig    `toml:"tui"`
}

// YNABConfig selects the budget and the values exposed as sensors.
type YNABConfig struct {
	APIKey      string   `toml:"api_key,omitempty"`
	Name        string   `toml:"name"`
	Budget      string   `toml:"budget"`
	Currency    string   `toml:"currency"`
	Accounts    []string `toml:"accounts,omitempty"`
	Categories  []string `toml:"categories,omitempty"`
	APIEndpoint string   `toml:"api_endpoint,omitempty"`
}

// DaemonConfig controls the background service.
type DaemonConfig struct {
	Addr          string   `toml:"addr"`
	IntervalSec   int      `toml:"interval_sec"`
	MinRefreshSec int      `toml:"min_refresh_sec"`
	EventsBuffer  int      `toml:"events_buffer"`
	History       bool     `toml:"history"`
	RequiredFiles []string `toml:"required_files,omitempty"`
}

// NotifyConfig holds SMTP settings for import notifications.
type NotifyConfig struct {
	SMTPHost string   `toml:"smtp_host,omitempty"`
	SMTPPort int      `toml:"smtp_port,omitempty"`
	Username string   `toml:"username,omitempty"`
	Password string   `toml:"password,omitempty"`
	From     string   `toml:"from,omitempty"`
	To       []string `toml:"to,omitempty"`
}

// Enabled reports whether enough is set to send mail.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != "" && n.From != "" && len(n.To) > 0
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TUIConfig holds dashboard preferences.
type TUIConfig struct {
	Theme              string `toml:"theme"`
	RefreshIntervalSec int    `toml:"refresh_interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		YNAB: YNABConfig{
			Name:        DefaultName,
			Budget:      DefaultBudget,
			Currency:    DefaultCurrency,
			APIEndpoint: DefaultAPIEndpoint,
		},
		Daemon: DaemonConfig{
			Addr:          DefaultAddr,
			IntervalSec:   MinRefreshSec,
			MinRefreshSec: MinRefreshSec,
			EventsBuffer:  200,
			History:       true,
			RequiredFiles: []string{FileName},
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "human",
		},
		TUI: TUIConfig{
			Theme:              "flexoki-dark",
			RefreshIntervalSec: 5,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ynabd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ynabd")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

// CacheDir returns the XDG-compliant cache directory holding the history
// database and daemon runtime files.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ynabd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "ynabd")
}

// HistoryPath returns the full path to the history database.
func HistoryPath() string {
	return filepath.Join(CacheDir(), "history.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadPath(Path())
}

// LoadPath is LoadFile preceded by loading .env files next to path and in
// the working directory. They never override variables that are already set.
func LoadPath(path string) (Config, error) {
	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")
	return LoadFile(path)
}

// RequiredFiles returns the files preflight checks next to the config at
// path. The default entry follows the config file's actual name.
func RequiredFiles(cfg Config, path string) []string {
	out := make([]string, 0, len(cfg.Daemon.RequiredFiles))
	for _, f := range cfg.Daemon.RequiredFiles {
		if f == FileName && path != "" {
			f = filepath.Base(path)
		}
		out = append(out, f)
	}
	return out
}

// LoadFile reads the config at path on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile writes the config to path with owner-only permissions.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GetAPIKey returns the API key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("YNAB_API_KEY"); key != "" {
		return strings.TrimSpace(key)
	}
	return strings.TrimSpace(cfg.YNAB.APIKey)
}

// GetSMTPPassword returns the SMTP password from env var or config.
func GetSMTPPassword(cfg Config) string {
	if pw := os.Getenv("YNAB_SMTP_PASSWORD"); pw != "" {
		return pw
	}
	return cfg.Notify.Password
}

// Validate normalizes cfg in place and reports every problem it could not fix.
func Validate(cfg *Config) error {
	var errs []error

	cfg.YNAB.APIKey = GetAPIKey(*cfg)
	if cfg.YNAB.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}

	if strings.TrimSpace(cfg.YNAB.Name) == "" {
		cfg.YNAB.Name = DefaultName
	}
	if strings.TrimSpace(cfg.YNAB.Budget) == "" {
		cfg.YNAB.Budget = DefaultBudget
	}
	if strings.TrimSpace(cfg.YNAB.Currency) == "" {
		cfg.YNAB.Currency = DefaultCurrency
	}
	if cfg.YNAB.APIEndpoint == "" {
		cfg.YNAB.APIEndpoint = DefaultAPIEndpoint
	}
	cfg.YNAB.APIEndpoint = strings.TrimRight(cfg.YNAB.APIEndpoint, "/")
	if !strings.HasPrefix(cfg.YNAB.APIEndpoint, "http://") && !strings.HasPrefix(cfg.YNAB.APIEndpoint, "https://") {
		errs = append(errs, fmt.Errorf("config: api_endpoint %q is not an http(s) URL", cfg.YNAB.APIEndpoint))
	}

	cfg.YNAB.Accounts = normalizeList(cfg.YNAB.Accounts)
	cfg.YNAB.Categories = normalizeList(cfg.YNAB.Categories)

	if cfg.Daemon.Addr == "" {
		cfg.Daemon.Addr = DefaultAddr
	}
	if cfg.Daemon.MinRefreshSec < 1 {
		cfg.Daemon.MinRefreshSec = MinRefreshSec
	}
	if cfg.Daemon.IntervalSec < 1 {
		cfg.Daemon.IntervalSec = cfg.Daemon.MinRefreshSec
	}
	if cfg.Daemon.EventsBuffer < 1 {
		cfg.Daemon.EventsBuffer = 200
	}

	if cfg.TUI.RefreshIntervalSec < 1 {
		cfg.TUI.RefreshIntervalSec = 5
	}

	cfg.Notify.Password = GetSMTPPassword(*cfg)
	if cfg.Notify.SMTPPort < 0 || cfg.Notify.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("config: smtp_port %d out of range", cfg.Notify.SMTPPort))
	}

	return errors.Join(errs...)
}

// normalizeList trims entries and drops blanks and duplicates, keeping order.
func normalizeList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
