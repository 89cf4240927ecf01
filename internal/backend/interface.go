package backend

import (
	"context"
	"time"

	"budgeting/internal/amqp"
	"budgeting/internal/cache"
	"budgeting/internal/core"
	"budgeting/internal/services"
	"budgeting/internal/sheets"
	"budgeting/internal/storage"
)

// Backend bundles the repository and every service built on top of it.
type Backend struct {
	Repo         *storage.Repository
	Taxonomy     *services.TaxonomyService
	Categorizer  *services.Categorizer
	Transactions *services.TransactionService
	Actuals      *services.ActualsAggregator
	Engine       *services.AmortizationEngine
	Reconciler   *services.SavingsReconciler
	Budgets      *services.BudgetService
	Commitments  *services.CommitmentService
	Reports      *services.ReportService
	Importer     *services.Importer

	// AMQP is nil when no broker is configured or reachable.
	AMQP *amqp.Client
	// Exporter is nil when report export is not configured.
	Exporter sheets.ReportExporter
	// Caches evicts expired taxonomy entries once started.
	Caches *cache.Manager
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional messaging
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional report export
	GoogleSpreadsheetID      string
	GoogleReportSheetName    string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	Rates            core.ExchangeRates
	TaxonomyCacheTTL time.Duration
}

// BackendType selects the document store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
