package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.YNAB.Budget != DefaultBudget {
		t.Fatalf("Budget = %q, want %q", cfg.YNAB.Budget, DefaultBudget)
	}
	if cfg.Daemon.MinRefreshSec != 300 {
		t.Fatalf("MinRefreshSec = %d, want 300", cfg.Daemon.MinRefreshSec)
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[ynab]
api_key = "abc"
budget = "b-123"
accounts = ["Checking", " Savings ", "Checking"]

[daemon]
interval_sec = 600
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.YNAB.Budget != "b-123" {
		t.Errorf("Budget = %q, want b-123", cfg.YNAB.Budget)
	}
	if cfg.YNAB.Name != DefaultName {
		t.Errorf("Name = %q, want default %q", cfg.YNAB.Name, DefaultName)
	}
	if cfg.Daemon.IntervalSec != 600 {
		t.Errorf("IntervalSec = %d, want 600", cfg.Daemon.IntervalSec)
	}

	t.Setenv("YNAB_API_KEY", "")
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.YNAB.Accounts) != 2 || cfg.YNAB.Accounts[1] != "Savings" {
		t.Errorf("Accounts = %q, want [Checking Savings]", cfg.YNAB.Accounts)
	}
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[ynab\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	t.Setenv("YNAB_API_KEY", "")
	cfg := DefaultConfig()
	err := Validate(&cfg)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate err = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidate_EnvKeyWins(t *testing.T) {
	t.Setenv("YNAB_API_KEY", " from-env ")
	cfg := DefaultConfig()
	cfg.YNAB.APIKey = "from-file"
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.YNAB.APIKey != "from-env" {
		t.Fatalf("APIKey = %q, want from-env", cfg.YNAB.APIKey)
	}
}

func TestValidate_FillsBlanks(t *testing.T) {
	t.Setenv("YNAB_API_KEY", "")
	cfg := Config{YNAB: YNABConfig{APIKey: "k", APIEndpoint: "https://example.test/v1/"}}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.YNAB.Name != DefaultName || cfg.YNAB.Budget != DefaultBudget || cfg.YNAB.Currency != DefaultCurrency {
		t.Errorf("blank fields not defaulted: %+v", cfg.YNAB)
	}
	if cfg.YNAB.APIEndpoint != "https://example.test/v1" {
		t.Errorf("APIEndpoint = %q, want trailing slash trimmed", cfg.YNAB.APIEndpoint)
	}
	if cfg.Daemon.MinRefreshSec != MinRefreshSec || cfg.Daemon.IntervalSec != MinRefreshSec {
		t.Errorf("daemon timings = %d/%d, want %d", cfg.Daemon.IntervalSec, cfg.Daemon.MinRefreshSec, MinRefreshSec)
	}
}

func TestValidate_BadEndpoint(t *testing.T) {
	t.Setenv("YNAB_API_KEY", "")
	cfg := DefaultConfig()
	cfg.YNAB.APIKey = "k"
	cfg.YNAB.APIEndpoint = "ftp://nope"
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected endpoint error")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.YNAB.APIKey = "k"
	cfg.YNAB.Categories = []string{"Groceries"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	got, err := LoadFile(Path())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.YNAB.APIKey != "k" || len(got.YNAB.Categories) != 1 {
		t.Fatalf("round trip lost data: %+v", got.YNAB)
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	if got := CacheDir(); got != filepath.Join("/tmp/xdg-cache", "ynabd") {
		t.Fatalf("CacheDir() = %q", got)
	}
	if got := HistoryPath(); got != filepath.Join("/tmp/xdg-cache", "ynabd", "history.db") {
		t.Fatalf("HistoryPath() = %q", got)
	}
}

func TestLoadPath_ReadsDotEnvNextToConfig(t *testing.T) {
	t.Setenv("YNAB_API_KEY", "")
	_ = os.Unsetenv("YNAB_API_KEY")

	dir := t.TempDir()
	path := filepath.Join(dir, "home.toml")
	if err := os.WriteFile(path, []byte("[ynab]\nname = \"Home\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("YNAB_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if cfg.YNAB.Name != "Home" {
		t.Fatalf("Name = %q, want Home", cfg.YNAB.Name)
	}
	if got := os.Getenv("YNAB_API_KEY"); got != "from-dotenv" {
		t.Fatalf("YNAB_API_KEY = %q, want value from .env", got)
	}
}

func TestRequiredFiles_FollowsConfigName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Daemon.RequiredFiles = []string{FileName, "secrets.env"}

	got := RequiredFiles(cfg, "/etc/ynabd/home.toml")
	if len(got) != 2 || got[0] != "home.toml" || got[1] != "secrets.env" {
		t.Fatalf("RequiredFiles = %v", got)
	}
	if got := RequiredFiles(cfg, ""); got[0] != FileName {
		t.Fatalf("RequiredFiles without path = %v", got)
	}
	if cfg.Daemon.RequiredFiles[0] != FileName {
		t.Fatal("RequiredFiles must not modify the config")
	}
}
