// Package service assembles the store, extraction cache, orchestrator and
// health checker from configuration. Both the HTTP server and the CLI start here.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freewebtopdf/chatfiles/internal/cache"
	"github.com/freewebtopdf/chatfiles/internal/config"
	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/health"
	"github.com/freewebtopdf/chatfiles/internal/orchestrator"
	"github.com/freewebtopdf/chatfiles/internal/storage"
)

// Service holds the wired components
type Service struct {
	Store        domain.FileStore
	Cache        *cache.CandidateCache // nil when EXTRACT_CACHE_SIZE=0
	Orchestrator *orchestrator.Orchestrator
	Health       *health.SystemHealthChecker

	closeStore func() error
}

// StorageOptions maps the storage section of the configuration onto storage.Options
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}
}

// New opens the configured backend and wires everything on top of it
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...orchestrator.Option) (*Service, error) {
	store, closeStore, err := storage.Open(ctx, StorageOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	svc := &Service{
		Store:      store,
		Health:     health.NewSystemHealthChecker(),
		closeStore: closeStore,
	}

	orchOpts := []orchestrator.Option{}
	if cfg.Cache.ExtractSize > 0 {
		c, err := cache.NewCandidateCache(cfg.Cache.ExtractSize)
		if err != nil {
			_ = closeStore()
			return nil, fmt.Errorf("create extraction cache: %w", err)
		}
		svc.Cache = c
		orchOpts = append(orchOpts, orchestrator.WithCache(c))
	}
	orchOpts = append(orchOpts, opts...)

	svc.Orchestrator = orchestrator.New(store, logger, orchOpts...)

	svc.Health.
		Register("storage", store).
		Register("extractor", svc.Orchestrator)
	if svc.Cache != nil {
		svc.Health.Register("cache", svc.Cache)
	}

	logger.Info().
		Str("backend", backendName(cfg.Storage.Backend)).
		Int("extract_cache_size", cfg.Cache.ExtractSize).
		Msg("Service components initialized")

	return svc, nil
}

// Close releases the storage backend
func (s *Service) Close() error {
	if s == nil || s.closeStore == nil {
		return nil
	}
	return s.closeStore()
}

func backendName(b string) string {
	if b == "" {
		return storage.BackendDir
	}
	return b
}
