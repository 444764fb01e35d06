package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/chatfiles/internal/api"
	"github.com/freewebtopdf/chatfiles/internal/config"
	"github.com/freewebtopdf/chatfiles/internal/service"
)

func main() {
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	flag.Parse()

	if *healthCheck {
		performHealthCheck()
		return
	}

	setupLogger()

	log.Info().Msg("chatfiles server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create required directories")
	}

	logStartupConfig(cfg)

	svc, err := service.New(context.Background(), cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	router := newRouter(cfg, svc)

	router.App.Server().ReadTimeout = cfg.Server.ReadTimeout
	router.App.Server().WriteTimeout = cfg.Server.WriteTimeout

	setupGracefulShutdown(router, svc)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("addr", serverAddr).
		Msg("Starting HTTP server")

	if err := router.App.Listen(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func newRouter(cfg *config.Config, svc *service.Service) *api.RouterResult {
	return api.SetupRouterWithDeps(api.RouterDependencies{
		Processor:     svc.Orchestrator,
		Store:         svc.Store,
		HealthChecker: svc.Health,
		Metrics:       svc.Health,
	}, api.RouterConfig{
		CORSOrigins:    cfg.Security.CORSOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		RequestTimeout: cfg.Processing.Timeout,
	})
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if os.Getenv("LOG_FORMAT") == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func logStartupConfig(cfg *config.Config) {
	log.Info().
		Int("server_port", cfg.Server.Port).
		Dur("server_read_timeout", cfg.Server.ReadTimeout).
		Dur("server_write_timeout", cfg.Server.WriteTimeout).
		Int("server_body_limit", cfg.Server.BodyLimit).
		Str("storage_backend", cfg.Storage.Backend).
		Str("storage_data_dir", cfg.Storage.DataDir).
		Str("storage_sqlite_path", cfg.Storage.SQLitePath).
		Bool("storage_postgres_dsn_set", cfg.Storage.PostgresDSN != "").
		Dur("process_timeout", cfg.Processing.Timeout).
		Int("cache_extract_size", cfg.Cache.ExtractSize).
		Float64("rate_limit_rps", cfg.RateLimit.RPS).
		Int("rate_limit_burst", cfg.RateLimit.Burst).
		Strs("security_cors_origins", cfg.Security.CORSOrigins).
		Str("logging_level", cfg.Logging.Level).
		Str("logging_format", cfg.Logging.Format).
		Msg("Configuration loaded successfully")
}

func setupGracefulShutdown(router *api.RouterResult, svc *service.Service) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		log.Info().Msg("Received shutdown signal, initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx, router.App, router.Cleanup, svc); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}

		log.Info().Msg("Graceful shutdown completed")
		os.Exit(0)
	}()
}

// shutdown stops the HTTP server first so no request touches a closed store
func shutdown(ctx context.Context, app *fiber.App, cleanup func(), svc *service.Service) error {
	log.Info().Msg("Stopping HTTP server...")
	serverErr := app.ShutdownWithContext(ctx)

	if cleanup != nil {
		cleanup()
	}

	log.Info().Msg("Closing storage...")
	if err := svc.Close(); err != nil {
		if serverErr != nil {
			return fmt.Errorf("server: %v; storage: %w", serverErr, err)
		}
		return err
	}
	return serverErr
}

func performHealthCheck() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{
		Timeout: 3 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
