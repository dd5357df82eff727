package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ynabd/internal/cli"
	"github.com/theirongolddev/ynabd/internal/config"
	"github.com/theirongolddev/ynabd/internal/daemon"
	"github.com/theirongolddev/ynabd/internal/history"
	"github.com/theirongolddev/ynabd/internal/notify"
	"github.com/theirongolddev/ynabd/internal/preflight"
)

// daemonRuntime is written to the pid file while the daemon runs.
type daemonRuntime struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Budget    string    `json:"budget"`
}

var (
	flagDaemonAddr     string
	flagDaemonInterval time.Duration
	flagDaemonDetach   bool
	flagDaemonPIDFile  string
	flagDaemonLogFile  string
	flagDaemonNoHist   bool
	flagDaemonChild    bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the budget poller with HTTP/SSE endpoints",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(config.CacheDir(), "ynabd.pid")
	defaultLog := filepath.Join(config.CacheDir(), "ynabd.log")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", config.DefaultAddr, "HTTP listen address")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Log file path for detached mode")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonNoHist, "no-history", false, "Do not persist readings to SQLite")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached(cmd)
	}

	return runDaemonForeground(cmd)
}

func startDaemonDetached(cmd *cobra.Command) error {
	if _, err := requireConfig(); err != nil {
		return err
	}
	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = append(os.Environ(), "LOG_FORMAT=json")

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", listenAddr(cmd))
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(cmd *cobra.Command) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	cfg.Daemon.Addr = listenAddr(cmd)
	if flagDaemonInterval > 0 {
		cfg.Daemon.IntervalSec = int(flagDaemonInterval.Seconds())
	}
	if flagDaemonNoHist {
		cfg.Daemon.History = false
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	preCtx, preCancel := context.WithTimeout(ctx, 15*time.Second)
	err = preflight.Run(preCtx, nil, configDir(), config.RequiredFiles(cfg, configPath()), cfg.YNAB.APIEndpoint)
	preCancel()
	if err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}

	rt := daemonRuntime{
		PID:       os.Getpid(),
		Addr:      cfg.Daemon.Addr,
		StartedAt: time.Now(),
		Budget:    cfg.YNAB.Budget,
	}
	if err := writeRuntime(flagDaemonPIDFile, rt); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagDaemonPIDFile) }()

	var hist *history.DB
	if cfg.Daemon.History {
		hist, err = history.Open(config.HistoryPath())
		if err != nil {
			log.Warn().Err(err).Msg("history disabled")
		} else {
			defer func() { _ = hist.Close() }()
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	svc := daemon.New(daemon.Config{
		Name:         cfg.YNAB.Name,
		Currency:     cfg.YNAB.Currency,
		BudgetID:     cfg.YNAB.Budget,
		Accounts:     cfg.YNAB.Accounts,
		Categories:   cfg.YNAB.Categories,
		Interval:     time.Duration(cfg.Daemon.IntervalSec) * time.Second,
		MinRefresh:   time.Duration(cfg.Daemon.MinRefreshSec) * time.Second,
		Addr:         cfg.Daemon.Addr,
		EventsBuffer: cfg.Daemon.EventsBuffer,
	}, client, hist, notify.New(cfg.Notify, cfg.YNAB.Name))

	if !flagQuiet {
		fmt.Printf("  ynabd listening on http://%s\n", cfg.Daemon.Addr)
		fmt.Printf("  Polling budget %q every %ds\n", cfg.YNAB.Budget, cfg.Daemon.IntervalSec)
		fmt.Printf("  Stop with: ynabd daemon stop --pid-file %s\n", flagDaemonPIDFile)
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	rt, err := readRuntime(flagDaemonPIDFile)
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(rt.PID) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", rt.PID)
		return nil
	}

	addr := firstNonEmpty(rt.Addr, daemonAddr())

	fmt.Printf("  Daemon PID: %d\n", rt.PID)
	fmt.Printf("  Address: http://%s\n", addr)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	st, err := daemon.NewClient(addr).Status(ctx)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	now := time.Now()
	pairs := [][2]string{
		{"Budget", fmt.Sprintf("%s (%s)", st.Refresh.BudgetName, st.Budget)},
		{"Up", cli.FormatAgo(st.StartedAt, now)},
		{"Last poll", cli.FormatAgo(st.LastPollAt, now)},
		{"Last update", cli.FormatAgo(st.Refresh.LastUpdate, now)},
		{"Polls", cli.FormatNumber(st.PollCount)},
		{"Updates", fmt.Sprintf("%d ok, %d failed, %d throttled", st.Refresh.Updates, st.Refresh.Failures, st.Refresh.Throttled)},
		{"Imported", cli.FormatNumber(st.Refresh.TransactionsImported)},
		{"Sensors", strconv.Itoa(st.SensorCount)},
		{"History", strconv.FormatBool(st.History)},
		{"Notify", strconv.FormatBool(st.Notify)},
	}
	if st.Refresh.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", cli.Warn(st.Refresh.LastError)})
	}
	fmt.Print(cli.RenderKV(pairs))
	return nil
}

// daemonAddr returns the address recorded by the running daemon, falling
// back to the config.
func daemonAddr() string {
	if rt, err := readRuntime(flagDaemonPIDFile); err == nil && rt.Addr != "" {
		return rt.Addr
	}
	return firstNonEmpty(appCfg.Daemon.Addr, config.DefaultAddr)
}

// listenAddr is the address a daemon started by cmd will bind.
func listenAddr(cmd *cobra.Command) string {
	if cmd.Flags().Changed("addr") {
		return flagDaemonAddr
	}
	return firstNonEmpty(appCfg.Daemon.Addr, config.DefaultAddr)
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	rt, err := readRuntime(flagDaemonPIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}
	pid := rt.PID

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagDaemonPIDFile)
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ensureDaemonNotRunning clears a runtime file left by a dead process.
func ensureDaemonNotRunning(path string) error {
	rt, err := readRuntime(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err == nil && processAlive(rt.PID):
		return fmt.Errorf("daemon already running (pid %d)", rt.PID)
	}
	_ = os.Remove(path)
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func writeRuntime(path string, rt daemonRuntime) error {
	data, err := json.MarshalIndent(rt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readRuntime(path string) (daemonRuntime, error) {
	var rt daemonRuntime
	data, err := os.ReadFile(path) //nolint:gosec // daemon pid path is configured by the local user
	if err != nil {
		return rt, err
	}
	if err := json.Unmarshal(data, &rt); err != nil {
		return rt, fmt.Errorf("reading %s: %w", path, err)
	}
	if rt.PID <= 0 {
		return rt, fmt.Errorf("invalid pid in %s", path)
	}
	return rt, nil
}
