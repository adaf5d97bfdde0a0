package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rewards/internal/core"
)

type Config struct {
	// HTTP Server
	Port string `yaml:"port"`

	// Backend selection
	DataBackend string `yaml:"dataBackend"`

	// Database
	SQLiteDBPath string `yaml:"sqliteDBPath"`
	PostgresURL  string `yaml:"postgresURL"`
	SeedData     bool   `yaml:"seedData"`

	// AMQP
	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`
	AMQPQueue    string `yaml:"amqpQueue"`

	// Idempotency
	RedisAddr      string        `yaml:"redisAddr"`
	RedisPassword  string        `yaml:"redisPassword"`
	RedisDB        int           `yaml:"redisDB"`
	IdempotencyTTL time.Duration `yaml:"idempotencyTTL"`

	// Google Sheets projection
	GoogleSpreadsheetID      string `yaml:"googleSpreadsheetID"`
	GoogleSheetName          string `yaml:"googleSheetName"`
	GoogleServiceAccountFile string `yaml:"googleServiceAccountFile"`

	// Worker
	SyncBatchSize int           `yaml:"syncBatchSize"`
	SyncInterval  time.Duration `yaml:"syncInterval"`

	Rewards Rewards `yaml:"rewards"`

	// rewardsEnvErrors holds rewards variables that were set but not parsable.
	rewardsEnvErrors []string
}

// Rewards holds the points schedule and aggregation settings. Thresholds stay
// strings until Validate so a malformed value is reported instead of dropped;
// malformed integer variables are kept aside for Validate the same way.
type Rewards struct {
	TierOneThreshold  string `yaml:"tierOneThreshold"`
	TierTwoThreshold  string `yaml:"tierTwoThreshold"`
	TierOneMultiplier int64  `yaml:"tierOneMultiplier"`
	TierTwoMultiplier int64  `yaml:"tierTwoMultiplier"`
	WindowMonths      int    `yaml:"calculationWindowMonths"`
	MonthKeyFormat    string `yaml:"monthKeyFormat"`
}

var validBackends = []string{"memory", "sqlite", "postgres"}

func defaults() *Config {
	return &Config{
		Port:         "8081",
		DataBackend:  "memory",
		SQLiteDBPath: "./data/rewards.db",

		AMQPExchange: "rewards",
		AMQPQueue:    "transaction_recorded",

		IdempotencyTTL: 24 * time.Hour,

		GoogleSheetName: "Rewards",

		SyncBatchSize: 50,
		SyncInterval:  5 * time.Minute,

		Rewards: Rewards{
			TierOneThreshold:  "50",
			TierTwoThreshold:  "100",
			TierOneMultiplier: 1,
			TierTwoMultiplier: 2,
			WindowMonths:      3,
			MonthKeyFormat:    core.DefaultMonthPattern,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by REWARDS_CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := getEnv("REWARDS_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.PostgresURL = getEnv("POSTGRES_URL", c.PostgresURL)
	c.SeedData = getEnvBool("SEED_DATA", c.SeedData)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", c.IdempotencyTTL)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)

	c.SyncBatchSize = getEnvInt("SYNC_BATCH_SIZE", c.SyncBatchSize)
	c.SyncInterval = getEnvDuration("SYNC_INTERVAL", c.SyncInterval)

	r := &c.Rewards
	r.TierOneThreshold = getEnv("REWARDS_TIER_ONE_THRESHOLD", r.TierOneThreshold)
	r.TierTwoThreshold = getEnv("REWARDS_TIER_TWO_THRESHOLD", r.TierTwoThreshold)
	r.TierOneMultiplier = c.rewardsEnvInt("REWARDS_TIER_ONE_MULTIPLIER", r.TierOneMultiplier)
	r.TierTwoMultiplier = c.rewardsEnvInt("REWARDS_TIER_TWO_MULTIPLIER", r.TierTwoMultiplier)
	r.WindowMonths = int(c.rewardsEnvInt("REWARDS_WINDOW_MONTHS", int64(r.WindowMonths)))
	r.MonthKeyFormat = getEnv("REWARDS_MONTH_KEY_FORMAT", r.MonthKeyFormat)
}

// Schedule converts the rewards section into a points schedule.
func (r Rewards) Schedule() (core.Schedule, error) {
	one, err := core.ParseAmount(r.TierOneThreshold)
	if err != nil {
		return core.Schedule{}, fmt.Errorf("tier one threshold: %w", err)
	}
	two, err := core.ParseAmount(r.TierTwoThreshold)
	if err != nil {
		return core.Schedule{}, fmt.Errorf("tier two threshold: %w", err)
	}
	s := core.Schedule{
		TierOneThreshold:  one,
		TierTwoThreshold:  two,
		TierOneMultiplier: r.TierOneMultiplier,
		TierTwoMultiplier: r.TierTwoMultiplier,
	}
	if err := s.Validate(); err != nil {
		return core.Schedule{}, err
	}
	return s, nil
}

func (r Rewards) MonthFormat() (core.MonthFormat, error) {
	return core.ParseMonthFormat(r.MonthKeyFormat)
}

// Aggregator combines the schedule and month format.
func (r Rewards) Aggregator() (core.Aggregator, error) {
	s, err := r.Schedule()
	if err != nil {
		return core.Aggregator{}, err
	}
	f, err := r.MonthFormat()
	if err != nil {
		return core.Aggregator{}, err
	}
	return core.NewAggregator(s, f), nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "postgres" {
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.IdempotencyTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid idempotency TTL %v: must be at least 1 second", c.IdempotencyTTL))
	}
	if c.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must not be negative", c.RedisDB))
	}

	// Validate Google Sheets projection if a spreadsheet is configured
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Validate rewards
	errors = append(errors, c.rewardsEnvErrors...)
	if _, err := c.Rewards.Schedule(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rewards schedule: %v", strings.ReplaceAll(err.Error(), "\n", "; ")))
	}
	if c.Rewards.WindowMonths < 1 {
		errors = append(errors, fmt.Sprintf("invalid calculation window %d: must be at least 1 month", c.Rewards.WindowMonths))
	}
	if _, err := c.Rewards.MonthFormat(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid month key format: %v", err))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// rewardsEnvInt reads an integer rewards setting. Unlike getEnvInt, a value
// that does not parse is recorded for Validate instead of being ignored.
func (c *Config) rewardsEnvInt(key string, current int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return current
	}
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		c.rewardsEnvErrors = append(c.rewardsEnvErrors,
			fmt.Sprintf("invalid %s '%s': must be an integer", key, value))
		return current
	}
	return i
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
