package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgeting/internal/amqp"
	"budgeting/internal/cache"
	"budgeting/internal/docstore"
	"budgeting/internal/docstore/memory"
	"budgeting/internal/docstore/sqlite"
	"budgeting/internal/services"
	gsheet "budgeting/internal/sheets/google"
	"budgeting/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the document store and builds the services on top of
// it. Messaging and report export are attached when configured; a broker
// that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	var amqpClient *amqp.Client
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without messaging", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	b := Build(store, config, publisher)
	b.AMQP = amqpClient

	if config.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleReportSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			closeErr := closeAll(amqpClient, closeStore)
			return nil, errors.Join(fmt.Errorf("failed to initialize Google Sheets exporter: %w", err), closeErr)
		}
		b.Exporter = exporter
		f.logger.Info("Initialized Google Sheets report exporter", "sheet", config.GoogleReportSheetName)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", amqpClient != nil,
		"export_enabled", b.Exporter != nil,
		"base_currency", config.Rates.Base)

	return &BackendResult{
		Backend: b,
		Cleanup: func() error { return closeAll(amqpClient, closeStore) },
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (docstore.Store, func() error, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return store, store.Close, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store, data is lost on exit")
		return memory.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// Build wires the services over an open store. publisher may be nil.
func Build(store docstore.Store, config Config, publisher services.EventPublisher) *Backend {
	repo := storage.NewRepository(store)
	taxonomy := services.NewTaxonomyService(repo, config.TaxonomyCacheTTL)
	categorizer := services.NewCategorizer(repo, taxonomy)
	actuals := services.NewActualsAggregator(repo)
	engine := services.NewAmortizationEngine(repo)
	reconciler := services.NewSavingsReconciler(actuals, engine)

	caches := cache.NewManager()
	if cleaner, ok := taxonomy.Cache().(cache.Cleaner); ok {
		caches.Register(cleaner)
	}

	return &Backend{
		Repo:         repo,
		Taxonomy:     taxonomy,
		Categorizer:  categorizer,
		Transactions: services.NewTransactionService(repo, taxonomy),
		Actuals:      actuals,
		Engine:       engine,
		Reconciler:   reconciler,
		Budgets:      services.NewBudgetService(repo, taxonomy, reconciler),
		Commitments:  services.NewCommitmentService(repo, engine, publisher),
		Reports:      services.NewReportService(repo, taxonomy, actuals),
		Importer:     services.NewImporter(repo, categorizer, config.Rates, publisher),
		Caches:       caches,
	}
}

func closeAll(client *amqp.Client, closeStore func() error) error {
	var errs []error
	if client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
