package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Navigation and interaction timings match what the bank sites tolerate in
// practice: listing pages are heavy SPAs, detail pages are lighter.
const (
	// DefaultAddr is the listen address of the HTTP service.
	DefaultAddr = ":8000"

	// DefaultListTimeout bounds navigation to a bank's card listing page.
	DefaultListTimeout = 60 * time.Second

	// DefaultDetailTimeout bounds navigation to a single card's detail page.
	DefaultDetailTimeout = 30 * time.Second

	// DefaultClickTimeout bounds a single click on a tab, button or modal trigger.
	DefaultClickTimeout = 1500 * time.Millisecond

	// DefaultSettleDelay is how long to wait after a click before taking a snapshot.
	DefaultSettleDelay = 1 * time.Second

	// DefaultDismissDelay is how long to wait after pressing Escape to close a modal.
	DefaultDismissDelay = 300 * time.Millisecond

	// DefaultMaxSnapshots caps the snapshots per detail page, initial state included.
	DefaultMaxSnapshots = 10

	// DefaultMaxPromptChars is the number of raw text characters sent to the LLM.
	DefaultMaxPromptChars = 30000

	// DefaultGeminiModel is the generative model used for the transform stage.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultGeminiBaseURL is the Gemini REST endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultLLMTimeout bounds one generateContent call.
	DefaultLLMTimeout = 90 * time.Second

	// DefaultLLMRetries is the number of retries on 429 and 5xx responses.
	DefaultLLMRetries = 2

	// DefaultConcurrency is the number of banks extracted in parallel.
	// All banks share one browser context.
	DefaultConcurrency = 2

	// DefaultTransformConcurrency is the number of parallel LLM calls.
	DefaultTransformConcurrency = 4

	// DefaultUserAgent is sent by the browser context and the static engine.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

	// DefaultJobTTL is how long finished job records are kept.
	DefaultJobTTL = 24 * time.Hour

	// DefaultJobWorkers is the number of asynchronous scrape jobs run at once.
	DefaultJobWorkers = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "scraperapi"

	// EnginePlaywright drives headless Chromium through Playwright.
	EnginePlaywright = "playwright"

	// EngineStatic fetches pages over plain HTTP without executing JavaScript.
	EngineStatic = "static"
)

// Environment variable names read by LoadEnv.
const (
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiModel    = "GEMINI_MODEL"
	EnvBrowsersPath   = "PLAYWRIGHT_BROWSERS_PATH"
	EnvAddr           = "SCRAPER_ADDR"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvEngine         = "SCRAPER_ENGINE"
	EnvStrategiesFile = "SCRAPER_STRATEGIES"
)

// Config holds all configuration options for the scraper.
// It is populated from CLI flags and environment variables and passed through
// the application explicitly.
type Config struct {
	// Addr is the HTTP listen address in "host:port" form.
	Addr string

	// Engine selects the page source: EnginePlaywright or EngineStatic.
	Engine string

	// Headless runs Chromium without a window. Only used by the playwright engine.
	Headless bool

	// BrowsersPath is the Playwright browser install directory
	// (PLAYWRIGHT_BROWSERS_PATH). Empty means the driver default.
	BrowsersPath string

	// UserAgent is the User-Agent of the browser context.
	UserAgent string

	// ListTimeout bounds navigation to a listing page.
	ListTimeout time.Duration

	// DetailTimeout bounds navigation to a detail page.
	DetailTimeout time.Duration

	// ClickTimeout bounds each click during snapshot capture.
	ClickTimeout time.Duration

	// SettleDelay is the wait after each click before reading the page text.
	SettleDelay time.Duration

	// DismissDelay is the wait after pressing Escape.
	DismissDelay time.Duration

	// MaxSnapshots caps snapshots per detail page.
	MaxSnapshots int

	// Concurrency is the number of banks extracted in parallel.
	Concurrency int

	// TransformConcurrency is the number of LLM calls in flight.
	TransformConcurrency int

	// GeminiAPIKey authenticates the transform stage. When empty the
	// transform stage reports the LLM as unavailable for every card.
	GeminiAPIKey string

	// GeminiModel is the model name used in generateContent calls.
	GeminiModel string

	// GeminiBaseURL is the REST endpoint, overridable for tests and proxies.
	GeminiBaseURL string

	// LLMTimeout bounds each LLM call.
	LLMTimeout time.Duration

	// LLMRetries is the retry count for retryable LLM responses.
	LLMRetries int

	// MaxPromptChars is the raw text budget of a prompt, in characters.
	MaxPromptChars int

	// StrategiesFile is the path to the strategy YAML file.
	// If empty, .scraperapi is searched in the current and home directory.
	StrategiesFile string

	// Strategies holds the loaded strategy file merged over the built-ins.
	Strategies *File

	// DBDir is the directory of the SQLite database.
	DBDir string

	// SaveToDB enables persistence of raw captures and extracted details.
	SaveToDB bool

	// RedisAddr selects the Redis job store when non-empty.
	RedisAddr string

	// JobTTL is how long job records are kept.
	JobTTL time.Duration

	// JobWorkers is the number of asynchronous jobs run at once.
	JobWorkers int

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport and MarkdownReport select the CLI output format.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile redirects CLI output to a file.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Addr:                 DefaultAddr,
		Engine:               EnginePlaywright,
		Headless:             true,
		UserAgent:            DefaultUserAgent,
		ListTimeout:          DefaultListTimeout,
		DetailTimeout:        DefaultDetailTimeout,
		ClickTimeout:         DefaultClickTimeout,
		SettleDelay:          DefaultSettleDelay,
		DismissDelay:         DefaultDismissDelay,
		MaxSnapshots:         DefaultMaxSnapshots,
		Concurrency:          DefaultConcurrency,
		TransformConcurrency: DefaultTransformConcurrency,
		GeminiModel:          DefaultGeminiModel,
		GeminiBaseURL:        DefaultGeminiBaseURL,
		LLMTimeout:           DefaultLLMTimeout,
		LLMRetries:           DefaultLLMRetries,
		MaxPromptChars:       DefaultMaxPromptChars,
		Strategies:           DefaultFile(),
		DBDir:                XDGDataDir(),
		SaveToDB:             true,
		JobTTL:               DefaultJobTTL,
		JobWorkers:           DefaultJobWorkers,
	}
}

// LoadEnv overlays environment variables onto cfg. Unset or blank variables
// leave the existing value in place, so flags parsed earlier keep priority
// only when the caller applies them after LoadEnv.
func LoadEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGeminiModel)); v != "" {
		cfg.GeminiModel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrowsersPath)); v != "" {
		cfg.BrowsersPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		cfg.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEngine)); v != "" {
		cfg.Engine = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStrategiesFile)); v != "" {
		cfg.StrategiesFile = v
	}
}

// LLMEnabled reports whether an API key is configured for the transform stage.
func (c *Config) LLMEnabled() bool {
	return c.GeminiAPIKey != ""
}

// XDGDataDir returns the XDG data directory for the scraper.
// On Linux: ~/.local/share/scraperapi
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the scraper.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return ErrInvalidAddr
	}

	if c.Engine != EnginePlaywright && c.Engine != EngineStatic {
		return ErrUnknownEngine
	}

	if c.ListTimeout <= 0 || c.DetailTimeout <= 0 || c.ClickTimeout <= 0 || c.LLMTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SettleDelay < 0 || c.DismissDelay < 0 {
		return ErrInvalidDelay
	}

	if c.Concurrency <= 0 || c.TransformConcurrency <= 0 || c.JobWorkers <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxSnapshots < 1 {
		return ErrInvalidMaxSnapshots
	}

	if c.MaxPromptChars <= 0 {
		return ErrInvalidMaxPromptChars
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
