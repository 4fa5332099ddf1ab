package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fundtracker/database"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	GoalSourceCSV = "csv"
	GoalSourceDB  = "db"
)

// Config holds all application configuration
type Config struct {
	// Scraper configuration
	TargetURL      string        `toml:"target_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	FetchAttempts  int           `toml:"fetch_attempts"`
	FetchBackoff   time.Duration `toml:"fetch_backoff"` // 0 retries immediately

	// Storage configuration
	StoreDriver  string `toml:"store_driver"`
	DatabaseURL  string `toml:"database_url"`
	DatabaseName string `toml:"database_name"`
	SQLitePath   string `toml:"sqlite_path"`

	// Metrics configuration
	Timezone     string `toml:"timezone"`
	GoalSource   string `toml:"goal_source"`
	GoalsCSVPath string `toml:"goals_csv_path"`

	// Scheduling
	HourlyInterval      time.Duration `toml:"hourly_interval"`
	DailyFinalizeHour   int           `toml:"daily_finalize_hour"`   // local hour (0-23)
	DailyFinalizeMinute int           `toml:"daily_finalize_minute"` // local minute (0-59)
	RedisAddress        string        `toml:"redis_address"`         // empty disables job locking
	JobLockTTL          time.Duration `toml:"job_lock_ttl"`

	// Discord configuration
	DiscordToken     string `toml:"discord_token"`
	DiscordGuildID   string `toml:"discord_guild_id"`
	DiscordChannelID string `toml:"discord_channel_id"` // where finalized reports are posted

	// Feishu configuration
	FeishuAppID     string `toml:"feishu_app_id"`
	FeishuAppSecret string `toml:"feishu_app_secret"`
	FeishuBaseURL   string `toml:"feishu_base_url"`

	// HTTP server
	HTTPAddr string `toml:"http_addr"`

	// Environment
	Environment string `toml:"environment"` // "development", "production" or "test"
	LogLevel    string `toml:"log_level"`
}

// Default returns the configuration used before environment overrides
func Default() *Config {
	return &Config{
		TargetURL:           "https://www.makuake.com/widget/project/iflytek_aiwtch/hero/",
		RequestTimeout:      15 * time.Second,
		FetchAttempts:       3,
		StoreDriver:         StoreDriverPostgres,
		SQLitePath:          "fundtracker.db",
		Timezone:            "Asia/Shanghai",
		GoalSource:          GoalSourceCSV,
		GoalsCSVPath:        "targets.csv",
		HourlyInterval:      time.Hour,
		DailyFinalizeHour:   23,
		DailyFinalizeMinute: 15,
		JobLockTTL:          5 * time.Minute,
		FeishuBaseURL:       "https://open.feishu.cn",
		HTTPAddr:            ":8080",
		Environment:         "development",
		LogLevel:            "info",
	}
}

// Load builds the configuration from defaults, an optional TOML file named by
// CONFIG_FILE, a local .env file and finally the process environment.
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnv(config *Config) error {
	setString(&config.TargetURL, "TARGET_URL")
	setString(&config.StoreDriver, "STORE_DRIVER")
	setString(&config.DatabaseURL, "DATABASE_URL")
	setString(&config.DatabaseName, "DATABASE_NAME")
	setString(&config.SQLitePath, "SQLITE_PATH")
	setString(&config.Timezone, "TZ")
	setString(&config.GoalSource, "GOAL_SOURCE")
	setString(&config.GoalsCSVPath, "GOALS_CSV_PATH")
	setString(&config.RedisAddress, "REDIS_ADDRESS")
	setString(&config.DiscordToken, "DISCORD_TOKEN")
	setString(&config.DiscordGuildID, "DISCORD_GUILD_ID")
	setString(&config.DiscordChannelID, "DISCORD_CHANNEL_ID")
	setString(&config.FeishuAppID, "FEISHU_APP_ID")
	setString(&config.FeishuAppSecret, "FEISHU_APP_SECRET")
	setString(&config.FeishuBaseURL, "FEISHU_BASE_URL")
	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.Environment, "ENVIRONMENT")
	setString(&config.LogLevel, "LOG_LEVEL")

	// Hosting platforms hand us a bare port
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HTTP_ADDR") == "" {
		config.HTTPAddr = ":" + port
	}

	// REQUEST_TIMEOUT is plain seconds, matching the deployment docs
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", timeout, err)
		}
		config.RequestTimeout = time.Duration(seconds) * time.Second
	}

	if err := setInt(&config.FetchAttempts, "FETCH_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&config.DailyFinalizeHour, "DAILY_FINALIZE_HOUR"); err != nil {
		return err
	}
	if err := setInt(&config.DailyFinalizeMinute, "DAILY_FINALIZE_MINUTE"); err != nil {
		return err
	}
	if err := setDuration(&config.FetchBackoff, "FETCH_BACKOFF"); err != nil {
		return err
	}
	if err := setDuration(&config.HourlyInterval, "HOURLY_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&config.JobLockTTL, "JOB_LOCK_TTL"); err != nil {
		return err
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	config.GoalSource = strings.ToLower(strings.TrimSpace(config.GoalSource))
	return nil
}

// Validate checks the configuration for values the application cannot run without
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Environment != "test" && c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.GoalSource {
	case GoalSourceCSV:
	case GoalSourceDB:
		if c.StoreDriver != StoreDriverPostgres {
			return fmt.Errorf("GOAL_SOURCE=db requires the postgres store")
		}
	default:
		return fmt.Errorf("unknown GOAL_SOURCE %q", c.GoalSource)
	}

	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1")
	}
	if c.DailyFinalizeHour < 0 || c.DailyFinalizeHour > 23 {
		return fmt.Errorf("DAILY_FINALIZE_HOUR must be between 0 and 23")
	}
	if c.DailyFinalizeMinute < 0 || c.DailyFinalizeMinute > 59 {
		return fmt.Errorf("DAILY_FINALIZE_MINUTE must be between 0 and 59")
	}
	if c.HourlyInterval <= 0 {
		return fmt.Errorf("HOURLY_INTERVAL must be positive")
	}

	return nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	config := Default()
	config.Environment = "test"
	config.Timezone = "Asia/Shanghai"
	return config
}
