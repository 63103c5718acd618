package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expentrax/internal/amqp"
	"expentrax/internal/cache"
	"expentrax/internal/config"
	"expentrax/internal/ledger"
	"expentrax/internal/services"
	gsheet "expentrax/internal/sheets/google"
	"expentrax/internal/storage"
	"expentrax/internal/storage/memory"
)

// Factory builds an App from configuration.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Build opens the ledger store and connects the optional AMQP client and
// sheets mirror. Optional adapters that fail to start are logged and left
// disabled.
func (f *Factory) Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	store, cleanup, err := f.openStore(cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if cleanup != nil {
		app.cleanups = append(app.cleanups, cleanup)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
		} else {
			app.AMQP = client
			app.cleanups = append(app.cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		f.logger.Info("AMQP disabled - notifications will not be published")
	}

	if cfg.GoogleSpreadsheetID != "" {
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SummarySheet:    cfg.GoogleSummarySheet,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets mirror, continuing without it", "error", err)
		} else {
			app.Mirror = cli
			f.logger.Info("Initialized Google Sheets summary mirror", "sheet", cfg.GoogleSummarySheet)
		}
	}

	app.NameCache = cache.NewLRUCache[string](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
	app.Caches = cache.NewManager()
	app.Caches.Register(app.NameCache)

	app.Names = services.NewCategoryDirectory(app.Store, app.NameCache)
	app.Transactions = services.NewTransactionService(app.Store, app.Publisher())
	app.Summaries = services.NewSummaryService(app.Store, app.Names)
	app.Budgets = services.NewBudgetService(app.Store, app.Store, app.Names)
	app.Processor = services.NewRecurringProcessor(app.Store, app.Store, app.Transactions)

	return app, nil
}

func (f *Factory) openStore(cfg *config.Config) (ledger.Store, CleanupFunc, error) {
	backendType := BackendType(cfg.DataBackend)
	switch backendType {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, repo.Close, nil
	case MemoryBackend:
		dataDir := cfg.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return memory.NewFromFiles(dataDir), nil, nil
	default:
		return nil, nil, fmt.Errorf("invalid backend type: %s", backendType)
	}
}

// Jobs returns the daily batch jobs enabled by cfg, in run order. When AMQP
// is connected the sheets mirror is fed by the event consumer instead of the
// summary job.
func (a *App) Jobs(cfg *config.Config) []services.Job {
	jobs := []services.Job{services.NewRecurringJob(a.Processor)}
	if cfg.BudgetPromptDays > 0 {
		jobs = append(jobs, services.NewBudgetPromptJob(a.Store, a.Store, a.Publisher(), cfg.BudgetPromptDays))
	}
	if cfg.SummaryNotifyEnabled {
		mirror := a.Mirror
		if a.AMQP != nil {
			mirror = nil
		}
		jobs = append(jobs, services.NewSummaryNotifyJob(a.Store, a.Summaries, a.Publisher(), mirror))
	}
	return jobs
}

// Scheduler builds the daily scheduler for cfg with every enabled job.
func (a *App) Scheduler(cfg *config.Config) (*services.Scheduler, error) {
	hour, minute, err := cfg.RunAt()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}
	return services.NewScheduler(services.SchedulerOptions{
		Hour:       hour,
		Minute:     minute,
		Location:   loc,
		RunOnStart: cfg.SchedulerRunOnStart,
	}, a.Jobs(cfg)...), nil
}
