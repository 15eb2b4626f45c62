package container

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/config"
	"github.com/garyjia/trip-finance/internal/domain/flagging"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
	"github.com/garyjia/trip-finance/internal/infrastructure/export"
	larkinfra "github.com/garyjia/trip-finance/internal/infrastructure/external/lark"
	"github.com/garyjia/trip-finance/internal/infrastructure/persistence/repository"
	"github.com/garyjia/trip-finance/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/trip-finance/internal/infrastructure/storage"
	"github.com/garyjia/trip-finance/internal/infrastructure/worker"
	"github.com/garyjia/trip-finance/migrations"
	"github.com/garyjia/trip-finance/pkg/database"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories
type RepositoryBundle struct {
	Trips       port.TripRepository
	Costs       port.CostRepository
	Invoices    port.InvoiceRepository
	Audits      port.AuditRepository
	Attachments port.AttachmentRepository
}

// StorageBundle holds the attachment and report stores
type StorageBundle struct {
	Attachments port.FileStorage
	Folders     port.FolderManager
	Reports     port.FileStorage
}

// DomainBundle holds the configured rule engines
type DomainBundle struct {
	Registry *registry.Registry
	Workflow *workflow.Engine
	Flags    *flagging.Engine
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Trips    service.TripService
	Costs    service.CostService
	Workflow service.WorkflowService
	Audit    service.AuditService
	Invoices service.InvoiceService
	Reports  service.ReportService
}

// ProvideDatabase opens the database and applies pending migrations. The
// embedded schema is used unless a migrations directory is configured.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}
	if _, err := database.NewMigrator(db, logger).Run(source); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Trips:       repository.NewTripRepository(sqlDB, logger),
		Costs:       repository.NewCostRepository(sqlDB, logger),
		Invoices:    repository.NewInvoiceRepository(sqlDB, logger),
		Audits:      repository.NewAuditRepository(sqlDB, logger),
		Attachments: repository.NewAttachmentRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates the attachment and report directories and stores
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	for _, dir := range []string{cfg.AttachmentDir, cfg.ReportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return &StorageBundle{
		Attachments: storage.NewLocalFileStorage(cfg.AttachmentDir, logger),
		Folders:     storage.NewLocalFolderManager(cfg.AttachmentDir, logger),
		Reports:     storage.NewLocalFileStorage(cfg.ReportDir, logger),
	}, nil
}

// ProvideDomain builds the registry and the engines that read it
func ProvideDomain(cfg *config.Config) (*DomainBundle, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	return &DomainBundle{
		Registry: reg,
		Workflow: workflow.NewEngine(reg, workflow.NewEvaluator()),
		Flags:    flagging.NewEngine(reg),
	}, nil
}

// ProvideNotifier returns the Lark notifier, or nil when lark is disabled
func ProvideNotifier(cfg *config.Config, logger *zap.Logger) port.Notifier {
	if !cfg.Lark.Enabled {
		logger.Info("Lark notifications disabled; follow-ups are recorded without delivery")
		return nil
	}

	client := larkinfra.NewSDKClient(larkinfra.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	})
	return larkinfra.NewNotifier(client, notifierConfig(cfg), logger)
}

// ServiceDeps holds the dependencies of the application services
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Storage   *StorageBundle
	Domain    *DomainBundle
	Notifier  port.Notifier
	Metrics   port.Metrics
	MaxUpload int64
	Logger    *zap.Logger
}

// ProvideServices creates all application services. Every service shares one
// per-trip lock table.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Domain == nil || deps.Storage == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}

	r := deps.Repos
	d := deps.Domain
	logger := utils.NewKVLogger(deps.Logger)
	locks := service.NewTripLocks()
	documents := service.NewDocumentStore(r.Attachments, deps.Storage.Attachments, deps.Storage.Folders, deps.MaxUpload, logger)

	return &ServiceBundle{
		Trips:    service.NewTripService(r.Trips, r.Costs, r.Invoices, r.Audits, documents, deps.TxManager, d.Registry, locks, logger),
		Costs:    service.NewCostService(r.Trips, r.Costs, documents, deps.TxManager, d.Registry, d.Flags, locks, deps.Metrics, logger),
		Workflow: service.NewWorkflowService(r.Trips, r.Costs, r.Invoices, deps.TxManager, d.Registry, d.Workflow, locks, deps.Metrics, logger),
		Audit:    service.NewAuditService(r.Trips, r.Costs, r.Invoices, r.Audits, documents, deps.TxManager, d.Registry, locks, deps.Metrics, logger),
		Invoices: service.NewInvoiceService(r.Trips, r.Costs, r.Invoices, deps.TxManager, d.Workflow, deps.Notifier, locks, deps.Metrics, logger),
		Reports: service.NewReportService(r.Trips, r.Costs, r.Invoices, d.Workflow, deps.Storage.Reports, logger,
			export.NewXLSXRenderer(), export.NewPDFRenderer()),
	}, nil
}

// ProvideWorkers registers the background workers enabled in cfg
func ProvideWorkers(cfg *config.Config, services *ServiceBundle, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger)
	if cfg.Reminders.Enabled {
		manager.Register(worker.NewReminderWorker(reminderConfig(cfg), services.Invoices, logger))
	}
	return manager
}
