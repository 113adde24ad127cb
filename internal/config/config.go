package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamashdown/linetracker/internal/secrets"
)

// DateLayout is the layout for SEASON_START / SEASON_END.
const DateLayout = "2006-01-02"

// MinRequestDelay is the floor on the pause between provider requests.
const MinRequestDelay = time.Second

// Config holds all application configuration. It is built once by Load and
// must not be mutated afterwards.
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Odds provider
	OddsAPIKey     string
	OddsAPIBaseURL string
	SportKey       string
	Markets        []string
	Regions        string
	OddsFormat     string
	RequestTimeout time.Duration
	OddsAPIRPS     float64

	// Capture schedule
	SeasonStart     time.Time
	SeasonEnd       time.Time
	CaptureHoursUTC []int
	RequestDelay    time.Duration

	// Snapshot storage
	RawDataDir     string
	SnapshotPrefix string

	// Database
	DatabaseDriver      string // mysql, postgres
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration
	LoadBatchSize       int

	// Query cache
	RedisURL string
	CacheTTL time.Duration

	// HTTP
	HTTPPort    int
	CORSOrigins []string

	// Notifications
	NotifyMode        string // log, discord (comma-separated)
	DiscordWebhookURL string
}

// Load reads configuration from environment variables, after applying a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey, err := secrets.GetSecret("ODDS_API_KEY", "")
	if err != nil {
		return nil, fmt.Errorf("load ODDS_API_KEY: %w", err)
	}

	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "production"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		OddsAPIKey:          apiKey,
		OddsAPIBaseURL:      strings.TrimRight(getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"), "/"),
		SportKey:            getEnv("SPORT_KEY", "americanfootball_nfl"),
		Markets:             parseCSV(getEnv("MARKETS", "spreads,totals")),
		Regions:             getEnv("REGIONS", "us"),
		OddsFormat:          getEnv("ODDS_FORMAT", "american"),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		OddsAPIRPS:          getEnvFloat("ODDS_API_RPS", 1.0),
		RequestDelay:        time.Duration(getEnvInt("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		RawDataDir:          getEnv("RAW_DATA_DIR", "data/raw"),
		SnapshotPrefix:      getEnv("SNAPSHOT_PREFIX", "nfl_odds"),
		DatabaseDriver:      getEnv("DATABASE_DRIVER", "mysql"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "linetracker:linetracker@tcp(mysql:3306)/linetracker?parseTime=true"),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 10),
		DatabaseMaxIdleTime: time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		LoadBatchSize:       getEnvInt("LOAD_BATCH_SIZE", 1000),
		RedisURL:            getEnv("REDIS_URL", ""),
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		CORSOrigins:         parseCSV(getEnv("CORS_ORIGINS", "*")),
		NotifyMode:          getEnv("NOTIFY_MODE", "log"),
		DiscordWebhookURL:   secrets.GetOptionalSecret("DISCORD_WEBHOOK_URL", ""),
	}

	if cfg.SeasonStart, err = getEnvDate("SEASON_START", "2025-09-04"); err != nil {
		return nil, err
	}
	if cfg.SeasonEnd, err = getEnvDate("SEASON_END", "2026-02-09"); err != nil {
		return nil, err
	}
	if cfg.CaptureHoursUTC, err = parseHours(getEnv("CAPTURE_HOURS_UTC", "2,14,18,22")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.OddsAPIKey == "" {
		return fmt.Errorf("ODDS_API_KEY is required")
	}
	if c.OddsAPIBaseURL == "" {
		return fmt.Errorf("ODDS_API_BASE_URL is required")
	}
	if c.SportKey == "" {
		return fmt.Errorf("SPORT_KEY is required")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("MARKETS must list at least one market")
	}
	if c.SeasonEnd.Before(c.SeasonStart) {
		return fmt.Errorf("SEASON_END %s is before SEASON_START %s",
			c.SeasonEnd.Format(DateLayout), c.SeasonStart.Format(DateLayout))
	}
	if len(c.CaptureHoursUTC) == 0 {
		return fmt.Errorf("CAPTURE_HOURS_UTC must list at least one hour")
	}
	seen := make(map[int]bool, len(c.CaptureHoursUTC))
	for _, h := range c.CaptureHoursUTC {
		if h < 0 || h > 23 {
			return fmt.Errorf("invalid capture hour %d (must be 0-23)", h)
		}
		if seen[h] {
			return fmt.Errorf("duplicate capture hour %d", h)
		}
		seen[h] = true
	}
	if c.RequestDelay < MinRequestDelay {
		return fmt.Errorf("REQUEST_DELAY_MS must be at least %d", MinRequestDelay.Milliseconds())
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SEC must be positive")
	}
	if c.RawDataDir == "" {
		return fmt.Errorf("RAW_DATA_DIR is required")
	}

	switch c.DatabaseDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be mysql or postgres)", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.LoadBatchSize <= 0 {
		return fmt.Errorf("LOAD_BATCH_SIZE must be positive")
	}

	hasDiscord := false
	for _, mode := range parseCSV(c.NotifyMode) {
		switch mode {
		case "log":
		case "discord":
			hasDiscord = true
		default:
			return fmt.Errorf("invalid NOTIFY_MODE value: %s (valid values: log, discord)", mode)
		}
	}
	if hasDiscord && c.DiscordWebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required when discord is in NOTIFY_MODE")
	}

	return nil
}

// HasMarket reports whether key is one of the configured markets.
func (c *Config) HasMarket(key string) bool {
	for _, m := range c.Markets {
		if m == key {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDate(key, defaultValue string) (time.Time, error) {
	value := getEnv(key, defaultValue)
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return t, nil
}

func parseHours(s string) ([]int, error) {
	var hours []int
	for _, item := range parseCSV(s) {
		h, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid CAPTURE_HOURS_UTC entry %q: %w", item, err)
		}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours, nil
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
