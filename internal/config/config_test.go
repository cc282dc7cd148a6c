package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Addr is :8000", func(t *testing.T) {
		t.Parallel()
		if cfg.Addr != ":8000" {
			t.Errorf("expected Addr to be ':8000', got %q", cfg.Addr)
		}
	})

	t.Run("default timings match the interaction walk", func(t *testing.T) {
		t.Parallel()
		if cfg.ListTimeout != 60*time.Second {
			t.Errorf("expected ListTimeout 60s, got %v", cfg.ListTimeout)
		}
		if cfg.DetailTimeout != 30*time.Second {
			t.Errorf("expected DetailTimeout 30s, got %v", cfg.DetailTimeout)
		}
		if cfg.ClickTimeout != 1500*time.Millisecond {
			t.Errorf("expected ClickTimeout 1.5s, got %v", cfg.ClickTimeout)
		}
		if cfg.SettleDelay != time.Second {
			t.Errorf("expected SettleDelay 1s, got %v", cfg.SettleDelay)
		}
		if cfg.DismissDelay != 300*time.Millisecond {
			t.Errorf("expected DismissDelay 300ms, got %v", cfg.DismissDelay)
		}
	})

	t.Run("default MaxSnapshots is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxSnapshots != 10 {
			t.Errorf("expected MaxSnapshots 10, got %d", cfg.MaxSnapshots)
		}
	})

	t.Run("default model and prompt budget", func(t *testing.T) {
		t.Parallel()
		if cfg.GeminiModel != "gemini-2.5-flash" {
			t.Errorf("expected gemini-2.5-flash, got %q", cfg.GeminiModel)
		}
		if cfg.MaxPromptChars != 30000 {
			t.Errorf("expected MaxPromptChars 30000, got %d", cfg.MaxPromptChars)
		}
	})

	t.Run("LLM disabled without key", func(t *testing.T) {
		t.Parallel()
		if cfg.LLMEnabled() {
			t.Error("expected LLMEnabled to be false without an API key")
		}
	})

	t.Run("built-in banks are loaded", func(t *testing.T) {
		t.Parallel()
		if diff := cmp.Diff(BuiltinOrder(), cfg.Strategies.BankNames()); diff != "" {
			t.Errorf("bank names mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "defaults are valid", modify: func(*Config) {}, want: nil},
		{name: "static engine is valid", modify: func(c *Config) { c.Engine = EngineStatic }, want: nil},
		{name: "empty addr", modify: func(c *Config) { c.Addr = " " }, want: ErrInvalidAddr},
		{name: "unknown engine", modify: func(c *Config) { c.Engine = "selenium" }, want: ErrUnknownEngine},
		{name: "zero list timeout", modify: func(c *Config) { c.ListTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative click timeout", modify: func(c *Config) { c.ClickTimeout = -time.Second }, want: ErrInvalidTimeout},
		{name: "zero llm timeout", modify: func(c *Config) { c.LLMTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero settle delay is valid", modify: func(c *Config) { c.SettleDelay = 0 }, want: nil},
		{name: "negative dismiss delay", modify: func(c *Config) { c.DismissDelay = -time.Millisecond }, want: ErrInvalidDelay},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "zero transform concurrency", modify: func(c *Config) { c.TransformConcurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "zero snapshots", modify: func(c *Config) { c.MaxSnapshots = 0 }, want: ErrInvalidMaxSnapshots},
		{name: "zero prompt budget", modify: func(c *Config) { c.MaxPromptChars = 0 }, want: ErrInvalidMaxPromptChars},
		{
			name: "json and markdown together",
			modify: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			want: ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestLoadEnv tests that environment variables override defaults.
// Not parallel: t.Setenv modifies process state.
func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "test-key")
	t.Setenv(EnvGeminiModel, "gemini-test")
	t.Setenv(EnvBrowsersPath, "/ms-playwright")
	t.Setenv(EnvAddr, "127.0.0.1:9000")
	t.Setenv(EnvRedisAddr, "")

	cfg := NewConfig()
	LoadEnv(cfg)

	if cfg.GeminiAPIKey != "test-key" {
		t.Errorf("expected GeminiAPIKey from env, got %q", cfg.GeminiAPIKey)
	}
	if !cfg.LLMEnabled() {
		t.Error("expected LLMEnabled with key set")
	}
	if cfg.GeminiModel != "gemini-test" {
		t.Errorf("expected GeminiModel from env, got %q", cfg.GeminiModel)
	}
	if cfg.BrowsersPath != "/ms-playwright" {
		t.Errorf("expected BrowsersPath from env, got %q", cfg.BrowsersPath)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("expected Addr from env, got %q", cfg.Addr)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected empty RedisAddr, got %q", cfg.RedisAddr)
	}
}

// TestXDGDirs tests the XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end with %q, got %q", AppName, XDGConfigDir())
	}
}

// TestStrategyFile tests built-in strategies, merging and ordering.
func TestStrategyFile(t *testing.T) {
	t.Parallel()

	t.Run("built-in strategies are valid", func(t *testing.T) {
		t.Parallel()

		for name, s := range BuiltinStrategies() {
			if err := s.Validate(); err != nil {
				t.Errorf("built-in strategy %q is invalid: %v", name, err)
			}
		}
	})

	t.Run("SBI strategy matches the live site layout", func(t *testing.T) {
		t.Parallel()

		s, ok := DefaultFile().Strategy(BankSBI)
		if !ok {
			t.Fatal("expected SBI Card strategy")
		}
		want := Strategy{
			ListURL:      "https://www.sbicard.com/en/personal/credit-cards.page",
			ListSelector: "section.card-listing.all-cards .grid.col-2",
			NameSelector: "h4",
			LinkSelector: "a.learn-more-link",
			TabsToClick:  []string{"View Benefits", "button.view-benefit-btn", "Fees", "Charges"},
		}
		if diff := cmp.Diff(want, s); diff != "" {
			t.Errorf("strategy mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown bank", func(t *testing.T) {
		t.Parallel()

		if _, ok := DefaultFile().Strategy("Nope Bank"); ok {
			t.Error("expected unknown bank to be reported")
		}
	})

	t.Run("defaults are merged under banks", func(t *testing.T) {
		t.Parallel()

		f := &File{
			Defaults: Strategy{MaxCards: 3, TabsToClick: []string{"Fees"}},
			Banks: map[string]Strategy{
				"Test Bank": {ListURL: "http://x", ListSelector: "li", NameSelector: "h3", LinkSelector: "a"},
			},
		}
		s, ok := f.Strategy("Test Bank")
		if !ok {
			t.Fatal("expected Test Bank strategy")
		}
		if s.MaxCards != 3 {
			t.Errorf("expected MaxCards 3 from defaults, got %d", s.MaxCards)
		}
		if len(s.TabsToClick) != 1 || s.TabsToClick[0] != "Fees" {
			t.Errorf("expected tabs from defaults, got %v", s.TabsToClick)
		}
	})

	t.Run("merge overrides fields and extends banks", func(t *testing.T) {
		t.Parallel()

		override := &File{
			Banks: map[string]Strategy{
				BankHDFC:    {TabsToClick: []string{"Rewards"}},
				"Test Bank": {ListURL: "http://x", ListSelector: "li", NameSelector: "h3", LinkSelector: "a"},
			},
			Order: []string{"Test Bank"},
		}

		merged := DefaultFile().Merge(override)

		hdfc, ok := merged.Strategy(BankHDFC)
		if !ok {
			t.Fatal("expected HDFC strategy after merge")
		}
		if hdfc.ListURL != "https://www.hdfc.bank.in/credit-cards" {
			t.Errorf("expected built-in list URL to survive, got %q", hdfc.ListURL)
		}
		if diff := cmp.Diff([]string{"Rewards"}, hdfc.TabsToClick); diff != "" {
			t.Errorf("tabs mismatch (-want +got):\n%s", diff)
		}

		want := []string{"Test Bank", BankSBI, BankFederal, BankAxis, BankHDFC}
		if diff := cmp.Diff(want, merged.BankNames()); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("banks outside order are sorted after it", func(t *testing.T) {
		t.Parallel()

		f := &File{
			Banks: map[string]Strategy{"b": {}, "a": {}, "c": {}},
			Order: []string{"c", "missing"},
		}
		if diff := cmp.Diff([]string{"c", "a", "b"}, f.BankNames()); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid strategy wraps ErrInvalidStrategy", func(t *testing.T) {
		t.Parallel()

		err := Strategy{ListURL: "http://x"}.Validate()
		if !errors.Is(err, ErrInvalidStrategy) {
			t.Errorf("expected ErrInvalidStrategy, got %v", err)
		}
	})
}

// TestLoadConfigFile tests YAML strategy loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads banks and defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".scraperapi")
		content := `defaults:
  maxCards: 5
banks:
  Test Bank:
    listUrl: https://bank.example/cards
    listSelector: div.card
    nameSelector: h3
    linkSelector: a.more
    tabsToClick:
      - Fees
      - "#rewards"
order:
  - Test Bank
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, ok := f.Strategy("Test Bank")
		if !ok {
			t.Fatal("expected Test Bank strategy")
		}
		if s.ListURL != "https://bank.example/cards" {
			t.Errorf("unexpected list URL %q", s.ListURL)
		}
		if s.MaxCards != 5 {
			t.Errorf("expected MaxCards 5, got %d", s.MaxCards)
		}
		if diff := cmp.Diff([]string{"Fees", "#rewards"}, s.TabsToClick); diff != "" {
			t.Errorf("tabs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("banks: [unclosed"), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})

	t.Run("empty file yields empty banks map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Banks == nil {
			t.Error("expected Banks to be initialized")
		}
	})
}

// TestLoadStrategies tests resolving the strategy file into a Config.
func TestLoadStrategies(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.StrategiesFile = filepath.Join(t.TempDir(), "nope.yaml")
		if err := LoadStrategies(cfg); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("incomplete new bank is rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "s.yaml")
		content := "banks:\n  Half Bank:\n    listUrl: https://x\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		cfg := NewConfig()
		cfg.StrategiesFile = path
		if err := LoadStrategies(cfg); !errors.Is(err, ErrInvalidStrategy) {
			t.Errorf("expected ErrInvalidStrategy, got %v", err)
		}
	})

	t.Run("partial override of built-in bank is accepted", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "s.yaml")
		content := "banks:\n  Axis Bank:\n    maxCards: 2\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		cfg := NewConfig()
		cfg.StrategiesFile = path
		if err := LoadStrategies(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, _ := cfg.Strategies.Strategy(BankAxis)
		if s.MaxCards != 2 {
			t.Errorf("expected MaxCards 2, got %d", s.MaxCards)
		}
		if s.ListSelector != "div.card-wrapper" {
			t.Errorf("expected built-in selector, got %q", s.ListSelector)
		}
	})
}
