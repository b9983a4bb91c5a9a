package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string

	// Logging
	LogLevel string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleVehicleSpreadsheetID string
	BalanceSheetName           string
	PensionCashflowsSheetName  string
	SheetsTimeout              time.Duration

	// Worker
	SyncSchedule string

	// Backend selection
	DataBackend string
	DataDir     string

	// ClassificationFile optionally overrides the built-in mapping tables.
	ClassificationFile string

	Analysis Analysis
}

// Analysis holds the constants used by the metrics engine.
type Analysis struct {
	RollingWindow    int
	VolatilityWindow int
	RiskFreeRate     float64
	ForecastPeriods  int
	CurrencyCode     string
}

// DefaultAnalysis mirrors the constants the dashboard has always used.
func DefaultAnalysis() Analysis {
	return Analysis{
		RollingWindow:    12,
		VolatilityWindow: 12,
		RiskFreeRate:     0.02,
		ForecastPeriods:  12,
		CurrencyCode:     "GBP",
	}
}

var validBackends = []string{"memory", "sheets", "sqlite"}

func Load() *Config {
	def := DefaultAnalysis()
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/networth.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "networth"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_refresh"),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleVehicleSpreadsheetID: getEnv("GOOGLE_VEHICLE_SPREADSHEET_ID", ""),
		BalanceSheetName:           getEnv("BALANCE_SHEET_NAME", "Balance Sheet"),
		PensionCashflowsSheetName:  getEnv("PENSION_CASHFLOWS_SHEET_NAME", "Pension Cashflows"),
		SheetsTimeout:              getEnvDuration("SHEETS_TIMEOUT", 15*time.Second),

		SyncSchedule: getEnv("SYNC_SCHEDULE", "@every 1h"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "data"),

		ClassificationFile: getEnv("CLASSIFICATION_FILE", ""),

		Analysis: Analysis{
			RollingWindow:    getEnvInt("ROLLING_WINDOW", def.RollingWindow),
			VolatilityWindow: getEnvInt("VOLATILITY_WINDOW", def.VolatilityWindow),
			RiskFreeRate:     getEnvFloat("RISK_FREE_RATE", def.RiskFreeRate),
			ForecastPeriods:  getEnvInt("FORECAST_PERIODS", def.ForecastPeriods),
			CurrencyCode:     strings.ToUpper(getEnv("CURRENCY_CODE", def.CurrencyCode)),
		},
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
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

	if c.DataBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.DataBackend == "sheets" && c.BalanceSheetName == "" {
		errors = append(errors, "balance sheet name cannot be empty when using sheets backend")
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

	if c.SyncSchedule != "" {
		if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid sync schedule '%s': %v", c.SyncSchedule, err))
		}
	}

	if c.SheetsTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sheets timeout %v: must be at least 1 second", c.SheetsTimeout))
	}

	if c.ClassificationFile != "" {
		if _, err := os.Stat(c.ClassificationFile); err != nil {
			errors = append(errors, fmt.Sprintf("classification file not readable: %s", c.ClassificationFile))
		}
	}

	errors = append(errors, c.Analysis.validate()...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (a Analysis) validate() []string {
	var errors []string
	if a.RollingWindow < 2 || a.RollingWindow > 120 {
		errors = append(errors, fmt.Sprintf("invalid rolling window %d: must be between 2 and 120 months", a.RollingWindow))
	}
	if a.VolatilityWindow < 2 || a.VolatilityWindow > 120 {
		errors = append(errors, fmt.Sprintf("invalid volatility window %d: must be between 2 and 120 months", a.VolatilityWindow))
	}
	if a.RiskFreeRate < 0 || a.RiskFreeRate > 1 {
		errors = append(errors, fmt.Sprintf("invalid risk free rate %v: must be between 0 and 1", a.RiskFreeRate))
	}
	if a.ForecastPeriods < 1 || a.ForecastPeriods > 120 {
		errors = append(errors, fmt.Sprintf("invalid forecast periods %d: must be between 1 and 120", a.ForecastPeriods))
	}
	if len(a.CurrencyCode) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency code '%s': must be a 3-letter ISO code", a.CurrencyCode))
	}
	return errors
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
