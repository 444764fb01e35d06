package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/storage/sqlstore"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendDir      = "dir"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a FileStore backend
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	PostgresDSN string
}

// Open builds the configured FileStore. The returned close function is never nil.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (domain.FileStore, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), noop, nil

	case BackendDir, "":
		store := NewDirStore(opts.DataDir, logger)
		if err := store.Load(ctx); err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case BackendSQLite:
		store, err := sqlstore.OpenSQLite(ctx, opts.SQLitePath, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, store.Close, nil

	case BackendPostgres:
		store, err := sqlstore.OpenPostgres(ctx, opts.PostgresDSN, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
