package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/analysis"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report worker. Mode "schedule" refreshes reports on a ticker and
	// publishes summaries; "consume" drains report notifications from
	// the queue instead.
	WorkerMode     string
	ReportInterval time.Duration
	ReportMonths   int

	// Analysis tunables
	TrendThresholdPct decimal.Decimal
	OutlierMultiplier decimal.Decimal
	TopCategories     int
	MinOccurrences    int
	MinMatchFraction  float64
	MaxGapCV          float64
	NeedsTargetPct    decimal.Decimal
	WantsTargetPct    decimal.Decimal
	SavingsTargetPct  decimal.Decimal
}

func Load() *Config {
	defaults := analysis.DefaultConfig()

	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendlens.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendlens"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reports"),

		WorkerMode:     getEnv("WORKER_MODE", "schedule"),
		ReportInterval: getEnvDuration("REPORT_INTERVAL", time.Hour),
		ReportMonths:   getEnvInt("REPORT_MONTHS", defaults.PeriodMonths),

		TrendThresholdPct: getEnvDecimal("TREND_THRESHOLD_PCT", defaults.TrendThresholdPct),
		OutlierMultiplier: getEnvDecimal("OUTLIER_MULTIPLIER", defaults.OutlierMultiplier),
		TopCategories:     getEnvInt("TOP_CATEGORIES", defaults.TopCategories),
		MinOccurrences:    getEnvInt("MIN_OCCURRENCES", defaults.MinOccurrences),
		MinMatchFraction:  getEnvFloat("MIN_MATCH_FRACTION", defaults.MinMatchFraction),
		MaxGapCV:          getEnvFloat("MAX_GAP_CV", defaults.MaxGapCV),
		NeedsTargetPct:    getEnvDecimal("NEEDS_TARGET_PCT", defaults.NeedsTargetPct),
		WantsTargetPct:    getEnvDecimal("WANTS_TARGET_PCT", defaults.WantsTargetPct),
		SavingsTargetPct:  getEnvDecimal("SAVINGS_TARGET_PCT", defaults.SavingsTargetPct),
	}
}

// Analysis builds the analysis configuration from the environment
// overrides, starting from the built-in defaults.
func (c *Config) Analysis() analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.PeriodMonths = c.ReportMonths
	cfg.TopCategories = c.TopCategories
	cfg.TrendThresholdPct = c.TrendThresholdPct
	cfg.OutlierMultiplier = c.OutlierMultiplier
	cfg.MinOccurrences = c.MinOccurrences
	cfg.MinMatchFraction = c.MinMatchFraction
	cfg.MaxGapCV = c.MaxGapCV
	cfg.NeedsTargetPct = c.NeedsTargetPct
	cfg.WantsTargetPct = c.WantsTargetPct
	cfg.SavingsTargetPct = c.SavingsTargetPct
	return cfg
}

// Validate checks the whole configuration and reports every problem at
// once so a broken deployment surfaces all its mistakes in one run.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

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

	if c.WorkerMode != "schedule" && c.WorkerMode != "consume" {
		errors = append(errors, fmt.Sprintf("invalid worker mode '%s': must be 'schedule' or 'consume'", c.WorkerMode))
	} else if c.WorkerMode == "consume" && c.AMQPURL == "" {
		errors = append(errors, "worker mode 'consume' requires an AMQP URL")
	}

	if c.ReportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at least 1 minute", c.ReportInterval))
	} else if c.ReportInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at most 7 days", c.ReportInterval))
	}

	if c.ReportMonths < 1 {
		errors = append(errors, fmt.Sprintf("invalid report months %d: must be at least 1", c.ReportMonths))
	} else if c.ReportMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid report months %d: must be at most 120", c.ReportMonths))
	}

	if err := c.Analysis().Validate(); err != nil {
		errors = append(errors, err.Error())
	}

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
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
