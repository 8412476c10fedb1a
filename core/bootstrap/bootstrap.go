package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/regbot/core/config"
	coredatabase "github.com/m3rciful/regbot/core/database"
	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
	"github.com/m3rciful/regbot/registration/redisstore"
	"github.com/m3rciful/regbot/registration/sqlstore"
	"github.com/m3rciful/regbot/registration/workbook"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*logger.Config) error
	OpenStore  func(ctx context.Context, cfg coreconfig.StoreConfig) (registration.Store, error)

	// Seeders run after the store is initialized. A workbook import seeder is
	// appended automatically when store.import_workbook is set.
	Seeders []Seeder
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store registration.Store
}

// Run initializes the logger, opens and initializes the record store, and
// runs seeders. The store must be ready before any conversation starts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(&opts.Config.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	open := opts.OpenStore
	if open == nil {
		open = OpenStore
	}
	start := time.Now()
	store, err := open(ctx, opts.Config.Store)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open %s store: %w", opts.Config.Store.Driver, err)
	}
	if err := store.EnsureInitialized(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap: initialize %s store: %w", opts.Config.Store.Driver, err)
	}
	logger.Info(ctx, "store", "store.ready",
		slog.String("backend", opts.Config.Store.Driver),
		slog.Duration("duration", logger.Took(start)),
	)

	seeders := opts.Seeders
	if path := opts.Config.Store.ImportWorkbook; path != "" {
		seeders = append(seeders, WorkbookImport(workbook.Options{Path: path, Sheet: opts.Config.Store.Sheet}))
	}
	for _, s := range seeders {
		if err := s.Seed(ctx, store); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("bootstrap: seed: %w", err)
		}
	}

	return &Result{Store: store}, nil
}

// OpenStore builds the backend selected by cfg.Driver. cfg is expected to be
// normalized by config.Normalize.
func OpenStore(ctx context.Context, cfg coreconfig.StoreConfig) (registration.Store, error) {
	switch cfg.Driver {
	case coreconfig.DriverWorkbook, "":
		return workbook.New(workbook.Options{Path: cfg.Path, Sheet: cfg.Sheet})
	case coreconfig.DriverSQLite, coreconfig.DriverPostgres:
		db, err := coredatabase.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(db, cfg.Database), nil
	case coreconfig.DriverRedis:
		return redisstore.Open(ctx, redisstore.Options{URL: cfg.RedisURL, Prefix: cfg.RedisPrefix})
	default:
		return nil, &coreconfig.ConfigError{Field: "store.driver", Reason: fmt.Sprintf("unsupported driver %q", cfg.Driver)}
	}
}
