package backend

import (
	"fmt"

	"networth/internal/config"
	"networth/internal/sheets"
)

// FromAppConfig converts the application config to backend config. The
// classification tables supply the expected platforms and assets.
func FromAppConfig(appConfig *config.Config, tables *config.Classification) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	if tables == nil {
		tables = config.DefaultClassification()
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:        appConfig.GoogleSpreadsheetID,
		GoogleVehicleSpreadsheetID: appConfig.GoogleVehicleSpreadsheetID,
		BalanceSheet:               appConfig.BalanceSheetName,
		CashflowSheet:              appConfig.PensionCashflowsSheetName,

		DataDirectory: appConfig.DataDir,

		LedgerExpected: sheets.Expected{
			sheets.ColPlatform: tables.ExpectedPlatforms(),
			sheets.ColAsset:    tables.ExpectedAssets(),
		},
		CashflowExpected: sheets.Expected{
			sheets.ColAsset: tables.ExpectedPensionAssets(),
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional, so we don't validate it

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}

	case MemoryBackend:
		// DataDirectory falls back to the demo data when empty or missing
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
