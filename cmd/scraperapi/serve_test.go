package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Raj-Taware/credit-scrape/internal/jobs"
)

// TestRunServe tests that the server starts and stops with its context.
func TestRunServe(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.SaveToDB = true
	cfg.DBDir = t.TempDir()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := runServe(ctx, cfg, discardLogger(), testOptions()...); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestOpenJobStore tests job store selection.
func TestOpenJobStore(t *testing.T) {
	t.Parallel()

	t.Run("memory by default", func(t *testing.T) {
		t.Parallel()

		store, closeStore, err := openJobStore(t.Context(), testConfig(), discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer closeStore()

		if _, ok := store.(*jobs.MemoryStore); !ok {
			t.Errorf("expected *jobs.MemoryStore, got %T", store)
		}
	})

	t.Run("unreachable redis", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.RedisAddr = "127.0.0.1:1"

		_, _, err := openJobStore(t.Context(), cfg, discardLogger())
		if err == nil || !strings.Contains(err.Error(), "failed to connect to redis") {
			t.Errorf("expected redis connection error, got %v", err)
		}
	})
}

// TestNewServeCmd tests the serve command flags.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	flag := cmd.Flags().Lookup("addr")
	if flag == nil {
		t.Fatal("expected addr flag")
	}
	if flag.DefValue != ":8000" {
		t.Errorf("expected default ':8000', got %q", flag.DefValue)
	}
	for _, name := range []string{"redis-addr", "job-workers", "job-ttl", "log-json", "engine", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}
