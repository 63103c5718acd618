package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"expentrax/internal/log"
)

type Config struct {
	// Ledger backend: "sqlite" or "memory"
	DataBackend   string
	DataDirectory string // seed files for the memory backend

	// Database
	SQLiteDBPath string

	// AMQP (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	SchedulerRunAt       string // HH:MM
	SchedulerTimezone    string // IANA name
	SchedulerRunOnStart  bool
	BudgetPromptDays     int
	SummaryNotifyEnabled bool

	// Category name cache
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration

	// Google Sheets summary mirror (disabled when GoogleSpreadsheetID is empty)
	GoogleSpreadsheetID   string
	GoogleSummarySheet    string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:   getEnv("DATA_BACKEND", "sqlite"),
		DataDirectory: getEnv("DATA_DIRECTORY", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expentrax.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expentrax"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		SchedulerRunAt:       getEnv("SCHEDULER_RUN_AT", "00:00"),
		SchedulerTimezone:    getEnv("SCHEDULER_TIMEZONE", "UTC"),
		SchedulerRunOnStart:  getEnvBool("SCHEDULER_RUN_ON_STARTUP", false),
		BudgetPromptDays:     getEnvInt("BUDGET_PROMPT_DAYS", 3),
		SummaryNotifyEnabled: getEnvBool("SUMMARY_NOTIFY_ENABLED", true),

		CategoryCacheSize: getEnvInt("CATEGORY_CACHE_SIZE", 256),
		CategoryCacheTTL:  getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheet:    getEnv("GOOGLE_SUMMARY_SHEET", "Summaries"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Location resolves SchedulerTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.SchedulerTimezone)
}

// RunAt parses SchedulerRunAt into hour and minute.
func (c *Config) RunAt() (int, int, error) {
	return ParseClock(c.SchedulerRunAt)
}

// ParseClock parses a 24-hour HH:MM time of day.
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: must be HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	switch c.DataBackend {
	case "sqlite", "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be 'sqlite' or 'memory'", c.DataBackend))
	}

	// Validate SQLite configuration
	if c.DataBackend != "memory" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty")
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

	// Validate scheduler configuration
	if _, _, err := c.RunAt(); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid scheduler timezone '%s': %v", c.SchedulerTimezone, err))
	}
	if c.BudgetPromptDays < 0 || c.BudgetPromptDays > 28 {
		errors = append(errors, fmt.Sprintf("invalid budget prompt days %d: must be between 0 and 28", c.BudgetPromptDays))
	}

	// Validate cache configuration
	if c.CategoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at least 1", c.CategoryCacheSize))
	}
	if c.CategoryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must be at least 1 second", c.CategoryCacheTTL))
	}

	// Validate Google Sheets configuration if the summary mirror is enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSummarySheet == "" {
			errors = append(errors, "Google summary sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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
