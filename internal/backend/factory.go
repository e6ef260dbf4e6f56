package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sfms/internal/cache"
	"sfms/internal/core"
	"sfms/internal/records"
	"sfms/internal/records/google"
	"sfms/internal/records/memory"
	"sfms/internal/records/postgres"
	"sfms/internal/storage"
)

const (
	categoryCacheSize   = 16
	categoryCachePrefix = "sfms:categories:"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	caches *cache.Manager
}

// NewFactory creates a new backend factory. Local caches it creates are
// registered with manager when one is given.
func NewFactory(logger *slog.Logger, manager *cache.Manager) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		caches: manager,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return f.withCategoryCache(result, config), nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		ds, err := records.LoadSeed(config.SeedFile)
		if err == nil {
			err = repo.Import(ctx, ds)
		}
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to import seed file: %w", err)
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"seeded", config.SeedFile != "")

	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	f.logger.Info("Initialized postgres backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{Store: cli}, nil
}

// withCategoryCache wraps the store so relief category definitions are
// served from cache.
func (f *DefaultFactory) withCategoryCache(result *BackendResult, config Config) *BackendResult {
	var c cache.Cache[[]core.TaxReliefCategory]
	cleanup := result.Cleanup

	switch config.Cache {
	case MemoryCache:
		lru := cache.NewLRUCache[[]core.TaxReliefCategory](categoryCacheSize, config.CacheTTL)
		if f.caches != nil {
			f.caches.Register(lru)
		}
		c = lru
	case RedisCache:
		client := cache.NewRedisClient(config.RedisAddr)
		c = cache.NewRedisCache[[]core.TaxReliefCategory](client, categoryCachePrefix, config.CacheTTL)
		cleanup = chain(cleanup, client.Close)
	default:
		return result
	}

	f.logger.Info("Relief category cache enabled", "cache", string(config.Cache), "ttl", config.CacheTTL)
	return &BackendResult{
		Store:   records.NewCachedStore(result.Store, c),
		Cleanup: cleanup,
	}
}

func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
