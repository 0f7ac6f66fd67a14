// Package testutil provides shared test helpers for setting up vaults.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daymark/internal/storage"
)

// TestVault creates a temporary vault directory with a caching Vault over it.
func TestVault(t *testing.T, ignored ...string) (string, *storage.Vault) {
	t.Helper()
	vaultDir := t.TempDir()
	fsys, err := storage.NewFS(vaultDir, ignored...)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, storage.NewVault(fsys, 0)
}

// WriteNote writes content to rel inside the vault, creating folders as
// needed.
func WriteNote(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	p := filepath.Join(vaultDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
