package backend

import (
	"context"
	"fmt"
	"log/slog"

	"rewards/internal/storage"
	"rewards/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured store. SQL backends are migrated before
// they are returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, config.Type, func() (*storage.SQLRepository, error) {
			return storage.NewSQLiteRepository(config.SQLiteDBPath)
		})
	case PostgresBackend:
		return f.createSQLBackend(ctx, config.Type, func() (*storage.SQLRepository, error) {
			return storage.NewPostgresRepository(config.PostgresURL)
		})
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, t BackendType, open func() (*storage.SQLRepository, error)) (*BackendResult, error) {
	repo, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", t, err)
	}

	f.logger.InfoContext(ctx, "Initialized SQL backend", "backend", t.String())

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{Store: memory.New()}, nil
}
