package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FINTRACK_CLI_TEST=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("FINTRACK_CLI_TEST", "")
	os.Unsetenv("FINTRACK_CLI_TEST")

	LoadEnvFile(path)
	if got := os.Getenv("FINTRACK_CLI_TEST"); got != "from-file" {
		t.Fatalf("FINTRACK_CLI_TEST = %q", got)
	}

	// Existing variables win over the file.
	t.Setenv("FINTRACK_CLI_TEST", "from-env")
	LoadEnvFile(path)
	if got := os.Getenv("FINTRACK_CLI_TEST"); got != "from-env" {
		t.Fatalf("FINTRACK_CLI_TEST = %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug", "json", "worker")
	if logger.Component() != "worker" {
		t.Fatalf("Component() = %q", logger.Component())
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("default logger should have debug enabled")
	}
}

func TestOpenStoreMemory(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	result := OpenStore(context.Background(), logger, &config.Config{DataBackend: "memory"})
	if err := result.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	CloseStore(logger, result)
	CloseStore(logger, nil)
}
