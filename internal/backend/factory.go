package backend

import (
	"context"
	"errors"
	"fmt"

	"networth/internal/adapters"
	"networth/internal/amqp"
	"networth/internal/log"
	"networth/internal/sheets"
	gsheet "networth/internal/sheets/google"
	"networth/internal/sheets/memory"
	"networth/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachRefresher(ctx, config, res)
	return res, nil
}

// attachRefresher connects to AMQP when configured. A broker that cannot be
// reached leaves the backend usable without refresh requests.
func (f *DefaultFactory) attachRefresher(ctx context.Context, config Config, res *BackendResult) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without refresh requests", log.FieldError, err.Error())
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Refresher = client
	prev := res.Cleanup
	res.Cleanup = func() error {
		cerr := client.Close()
		if prev != nil {
			cerr = errors.Join(prev(), cerr)
		}
		return cerr
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Until the first import lands, serve from the spreadsheet when one is
	// configured and from the data directory otherwise.
	var secondary sheets.Source
	if config.GoogleSpreadsheetID != "" {
		cli, err := f.newSheetsClient(ctx, config)
		if err != nil {
			f.logger.WarnContext(ctx, "Sheets fallback unavailable", log.FieldError, err.Error())
		} else {
			secondary = cli
		}
	}
	if secondary == nil {
		store, err := memory.NewFromDir(config.DataDirectory, config.LedgerExpected)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to initialize memory fallback: %w", err)
		}
		secondary = store
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: adapters.NewFallbackSource(repo, secondary, f.logger),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) newSheetsClient(ctx context.Context, config Config) (*gsheet.Client, error) {
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:        config.GoogleSpreadsheetID,
		VehicleSpreadsheetID: config.GoogleVehicleSpreadsheetID,
		BalanceSheet:         config.BalanceSheet,
		CashflowSheet:        config.CashflowSheet,
		LedgerExpected:       config.LedgerExpected,
		CashflowExpected:     config.CashflowExpected,
		Logger:               f.logger,
	})
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := f.newSheetsClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend")

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromDir(dataDir, config.LedgerExpected)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Backend: store}, nil
}
