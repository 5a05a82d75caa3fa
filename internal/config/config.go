package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr          string
	TickEvery     time.Duration
	Volatility    string
	StartingCash  float64
	Seed          int64
	BackfillDays  int
	HistoryCap    int
	WorkerRunOnce bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("INVESTLAB_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		TickEvery:     envDurationDefault("INVESTLAB_TICK_EVERY", 5*time.Second),
		Volatility:    envVolatilityDefault(),
		StartingCash:  envFloatDefault("INVESTLAB_STARTING_CASH", 25_000),
		Seed:          int64(envIntDefault("INVESTLAB_SEED", 0)),
		BackfillDays:  envIntDefault("INVESTLAB_BACKFILL_DAYS", 60),
		HistoryCap:    envIntDefault("INVESTLAB_HISTORY_CAP", 200),
		WorkerRunOnce: envBoolDefault("INVESTLAB_WORKER_RUN_ONCE", false),
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("INVESTLAB_TICK_EVERY must be positive")
	}
	if !(cfg.StartingCash > 0) {
		return cfg, fmt.Errorf("INVESTLAB_STARTING_CASH must be positive")
	}
	if cfg.HistoryCap < 1 {
		return cfg, fmt.Errorf("INVESTLAB_HISTORY_CAP must be at least 1")
	}
	if cfg.BackfillDays < 0 {
		cfg.BackfillDays = 0
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("INVESTLAB_API_BASE_URL", "http://localhost:8080"), "/"),
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

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
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

func envVolatilityDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("VOLATILITY")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(os.Getenv("INVESTLAB_VOLATILITY")))
	}
	switch v {
	case "calm", "mor", "wild":
		return v
	default:
		return "mor"
	}
}
