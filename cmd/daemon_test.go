package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRuntimeFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ynabd.pid")
	want := daemonRuntime{PID: os.Getpid(), Addr: "127.0.0.1:9999", StartedAt: time.Now().UTC().Truncate(time.Second), Budget: "b1"}
	if err := writeRuntime(path, want); err != nil {
		t.Fatalf("writeRuntime: %v", err)
	}

	got, err := readRuntime(path)
	if err != nil {
		t.Fatalf("readRuntime: %v", err)
	}
	if got.PID != want.PID || got.Addr != want.Addr || !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("readRuntime = %+v, want %+v", got, want)
	}

	if err := ensureDaemonNotRunning(path); err == nil {
		t.Fatal("expected running daemon to be reported")
	}
}

func TestEnsureDaemonNotRunningClearsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ynabd.pid")
	if err := ensureDaemonNotRunning(path); err != nil {
		t.Fatalf("missing file: %v", err)
	}

	if err := os.WriteFile(path, []byte("12345\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readRuntime(path); err == nil {
		t.Fatal("expected error for non-JSON pid file")
	}
	if err := ensureDaemonNotRunning(path); err != nil {
		t.Fatalf("ensureDaemonNotRunning: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("unreadable pid file should be removed")
	}
}
