// Package config loads the orchestrator's environment-driven configuration,
// grounded on original_source/core/config.py's Config.from_env and the
// teacher's manual os.Getenv-based DefaultConfig pattern (core/component.go) —
// neither source reaches for a config library for plain env vars, so this
// package doesn't either.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the full, validated runtime configuration (spec §6 / SPEC_FULL §9).
type Config struct {
	AppName   string
	Env       string
	LogLevel  string
	LogToFile bool

	RuntimeDir  string
	LogsDir     string
	TracesDir   string
	WorkspaceDir string

	NoLLMMode     bool
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	EnableRealHTTP   bool
	AllowedHTTPHosts []string
	MockAPIBaseURL   string

	DefaultHTTPTimeoutS      float64
	DefaultMaxSteps          int
	DefaultMaxRetriesPerStep int
	DefaultBudgetUnits       int
	NonProgressThreshold     int
	RandomSeed               int
	EnableDBWrites           bool

	DatabaseURL     string
	RedisURL        string
	EvalConcurrency int
}

func parseBool(value string, def bool) bool {
	if value == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func parseInt(value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func parseFloat(value string, def float64) float64 {
	if value == "" {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}

func parseList(value string, def []string) []string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv loads Config from environment variables, applying the defaults
// in SPEC_FULL.md §9, and ensures runtime directories exist.
func FromEnv() (*Config, error) {
	runtimeDir := os.Getenv("ORCHESTRON_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "runtime"
	}
	cfg := &Config{
		AppName:   getenvDefault("ORCHESTRON_APP_NAME", "orchestron"),
		Env:       getenvDefault("ORCHESTRON_ENV", "dev"),
		LogLevel:  getenvDefault("ORCHESTRON_LOG_LEVEL", "INFO"),
		LogToFile: parseBool(os.Getenv("ORCHESTRON_LOG_TO_FILE"), true),

		RuntimeDir:   runtimeDir,
		LogsDir:      filepath.Join(runtimeDir, "logs"),
		TracesDir:    filepath.Join(runtimeDir, "traces"),
		WorkspaceDir: filepath.Join(runtimeDir, "workspace"),

		NoLLMMode:     parseBool(os.Getenv("ORCHESTRON_NO_LLM_MODE"), true),
		OpenAIBaseURL: os.Getenv("ORCHESTRON_OPENAI_BASE_URL"),
		OpenAIAPIKey:  os.Getenv("ORCHESTRON_OPENAI_API_KEY"),
		OpenAIModel:   getenvDefault("ORCHESTRON_OPENAI_MODEL", "gpt-4o-mini"),

		EnableRealHTTP:   parseBool(os.Getenv("ORCHESTRON_ENABLE_REAL_HTTP"), false),
		AllowedHTTPHosts: parseList(os.Getenv("ORCHESTRON_ALLOWED_HTTP_HOSTS"), []string{"localhost", "127.0.0.1", "mock-api"}),
		MockAPIBaseURL:   getenvDefault("ORCHESTRON_MOCK_API_BASE_URL", "http://127.0.0.1:8001"),

		DefaultHTTPTimeoutS:      parseFloat(os.Getenv("ORCHESTRON_DEFAULT_HTTP_TIMEOUT_S"), 2.0),
		DefaultMaxSteps:          parseInt(os.Getenv("ORCHESTRON_DEFAULT_MAX_STEPS"), 12),
		DefaultMaxRetriesPerStep: parseInt(os.Getenv("ORCHESTRON_DEFAULT_MAX_RETRIES_PER_STEP"), 2),
		DefaultBudgetUnits:       parseInt(os.Getenv("ORCHESTRON_DEFAULT_BUDGET_UNITS"), 50),
		NonProgressThreshold:     parseInt(os.Getenv("ORCHESTRON_NON_PROGRESS_THRESHOLD"), 3),
		RandomSeed:               parseInt(os.Getenv("ORCHESTRON_RANDOM_SEED"), 42),
		EnableDBWrites:           parseBool(os.Getenv("ORCHESTRON_ENABLE_DB_WRITES"), false),

		DatabaseURL:     os.Getenv("ORCHESTRON_DATABASE_URL"),
		RedisURL:        os.Getenv("ORCHESTRON_REDIS_URL"),
		EvalConcurrency: parseInt(os.Getenv("ORCHESTRON_EVAL_CONCURRENCY"), 4),
	}
	if err := cfg.ensureRuntimeDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) ensureRuntimeDirs() error {
	for _, dir := range []string{c.RuntimeDir, c.LogsDir, c.TracesDir, c.WorkspaceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
