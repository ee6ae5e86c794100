package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr         string
	DatabaseURL  string
	GeminiAPIKey string
	CatalogPath  string
}

type WorkerConfig struct {
	DatabaseURL string
	CatalogPath string
	IdleTTL     time.Duration
	SweepEvery  time.Duration
	SweepBatch  int
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL  string
	SessionFile string
	Language    string
}

func LoadAPIFromEnv() APIConfig {
	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ARTHNEETI_API_ADDR", ":8080")
	}

	return APIConfig{
		Addr:         addr,
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		CatalogPath:  strings.TrimSpace(os.Getenv("ARTHNEETI_CATALOG_PATH")),
	}
}

func LoadWorkerFromEnv() WorkerConfig {
	return WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CatalogPath: strings.TrimSpace(os.Getenv("ARTHNEETI_CATALOG_PATH")),
		IdleTTL:     envDurationDefault("ARTHNEETI_IDLE_TTL", 48*time.Hour),
		SweepEvery:  envDurationDefault("ARTHNEETI_SWEEP_EVERY", 15*time.Minute),
		SweepBatch:  envIntDefault("ARTHNEETI_SWEEP_BATCH", 100),
		RunOnce:     envBoolDefault("ARTHNEETI_SWEEP_ONCE", false),
	}
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("ARTH_API_BASE_URL", "http://localhost:8080"), "/"),
		// Empty means the client's default, ~/.arth/session.json.
		SessionFile: strings.TrimSpace(os.Getenv("ARTH_SESSION_FILE")),
		Language:    envDefault("ARTH_LANG", "en"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
