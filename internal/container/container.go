package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/config"
	"github.com/garyjia/trip-finance/internal/infrastructure/identity"
	"github.com/garyjia/trip-finance/internal/infrastructure/metrics"
	"github.com/garyjia/trip-finance/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/trip-finance/internal/infrastructure/worker"
	httpapi "github.com/garyjia/trip-finance/internal/interfaces/http"
	"github.com/garyjia/trip-finance/pkg/database"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and stop in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Storage
	storage *StorageBundle

	// Infrastructure - External
	notifier port.Notifier
	recorder *metrics.Recorder
	tokens   *identity.TokenService

	// Application
	domain   *DomainBundle
	services *ServiceBundle
	server   *httpapi.Server

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components; call Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// database, storage, external adapters, domain engines, services, HTTP server, workers.
// The HTTP server itself is started by Run.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	storage, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = storage
	c.logger.Info("Storage initialized")

	c.initExternal()
	c.logger.Info("External adapters initialized", zap.Bool("lark", c.notifier != nil), zap.Bool("metrics", c.recorder != nil))

	domain, err := ProvideDomain(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize domain: %w", err)
	}
	c.domain = domain
	c.logger.Info("Registry loaded", zap.Int("workflow_steps", len(domain.Registry.Steps())))

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.initServer()

	var runCtx context.Context
	runCtx, c.cancel = context.WithCancel(ctx)
	c.workers = ProvideWorkers(c.config, c.services, c.logger)
	if err := c.workers.StartAll(runCtx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Run serves HTTP until ctx is cancelled
func (c *Container) Run(ctx context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}
	return c.server.Start(ctx)
}

// Close shuts down all components in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.db == nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else if err := c.db.Ping(); err != nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		status.Overall = false
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	if c.workers == nil {
		status.Components["workers"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else {
		healthy := c.workers.Count() == 0 || c.workers.IsRunning()
		status.Components["workers"] = ComponentHealth{
			Healthy: healthy,
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		}
		if !healthy {
			status.Overall = false
		}
	}

	notifications := ComponentHealth{Healthy: true, Message: "disabled"}
	if c.notifier != nil {
		notifications.Message = "lark"
	}
	status.Components["notifications"] = notifications

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db.DB, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal() {
	c.notifier = ProvideNotifier(c.config, c.logger)
	if c.config.Metrics.Enabled {
		c.recorder = metrics.NewRecorder()
	}
	c.tokens = identity.NewTokenService(c.config.Auth.JWTSecret, c.config.Auth.Issuer, c.config.Auth.TokenTTL)
}

func (c *Container) initServices() error {
	// a nil *Recorder must not reach the services as a non-nil interface
	var sink port.Metrics
	if c.recorder != nil {
		sink = c.recorder
	}

	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		TxManager: c.txManager,
		Storage:   c.storage,
		Domain:    c.domain,
		Notifier:  c.notifier,
		Metrics:   sink,
		MaxUpload: maxUploadBytes(c.config),
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initServer() {
	var observer httpapi.RequestObserver
	if c.recorder != nil {
		observer = c.recorder
	}

	c.server = httpapi.NewServer(
		serverConfig(c.config),
		httpapi.Services{
			Trips:    c.services.Trips,
			Costs:    c.services.Costs,
			Workflow: c.services.Workflow,
			Audit:    c.services.Audit,
			Invoices: c.services.Invoices,
			Reports:  c.services.Reports,
		},
		c.tokens,
		identity.NewContextProvider(),
		observer,
		utils.NewKVLogger(c.logger),
	)
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Tokens returns the token service used to verify bearer tokens
func (c *Container) Tokens() *identity.TokenService {
	return c.tokens
}

// Workers returns the worker manager
func (c *Container) Workers() *worker.Manager {
	return c.workers
}
