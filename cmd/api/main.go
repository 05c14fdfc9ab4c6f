package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookable/internal/api"
	"bookable/internal/config"
	"bookable/internal/database"
	"bookable/internal/domain"
	"bookable/internal/events"
	"bookable/internal/logging"
	"bookable/internal/metrics"
	"bookable/internal/models"
	"bookable/internal/repository"
	"bookable/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	startMetrics(ctx, cfg, bus, &logger)

	slotCache, redisClient := initSlotCache(cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	services, err := buildServices(cfg, db, slotCache, bus, &logger)
	if err != nil {
		return err
	}

	if err := seedCatalog(ctx, cfg.Scheduling.CatalogPath, services.Catalog, &logger); err != nil {
		return err
	}

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	return startServers(ctx, cfg, services, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initSlotCache returns nil when caching is off. With a reachable redis the
// cache fails over to process memory; otherwise memory alone is used.
func initSlotCache(cfg *config.Config, logger *zerolog.Logger) (domain.SlotCache, *redis.Client) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	memory := repository.NewMemorySlotCache(cfg.Cache.TTL())
	if cfg.Redis.Address == "" {
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory slot cache")
		_ = client.Close()
		return memory, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisSlotCache(client, cfg.Cache.TTL())
	return repository.NewFailoverSlotCache(primary, memory, logging.Component(logger, "slot-cache")), client
}

func buildServices(cfg *config.Config, db *database.DB, cache domain.SlotCache, bus *events.EventBus, logger *zerolog.Logger) (api.Services, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return api.Services{}, fmt.Errorf("scheduling timezone: %w", err)
	}

	clock := service.SystemClock{}
	catalog := service.NewCatalogService(db, cache, bus, loc, logging.Component(logger, "catalog"))
	calendar := service.NewCalendarService(db, db, catalog, cache, bus, clock,
		service.CalendarOptions{RejectOverlaps: cfg.Scheduling.RejectOverlappingWindows}, logging.Component(logger, "calendar"))
	capacity := service.NewCapacityTracker(db)
	generator := service.NewSlotGenerator(calendar, capacity, cfg.Scheduling.SlotGeneration)

	return api.Services{
		Catalog:      catalog,
		Calendar:     calendar,
		Availability: service.NewAvailabilityService(catalog, calendar, capacity, generator, cache, logging.Component(logger, "availability")),
		Ledger:       service.NewBookingLedger(catalog, calendar, db, cache, bus, clock, logging.Component(logger, "ledger")),
		Health:       db,
	}, nil
}

func seedCatalog(ctx context.Context, path string, catalog *service.CatalogService, logger *zerolog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("catalog_path", path).Msg("catalog file not found, skipping seed")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", path).Msg("read catalog")
		return err
	}

	var file struct {
		Services []models.ServiceDefinition `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Error().Err(err).Str("catalog_path", path).Msg("parse catalog")
		return err
	}

	if err := catalog.Sync(ctx, file.Services); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("services", len(file.Services)).Msg("catalog seeded")
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	metrics.SubscribeBookingEvents(bus)
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, cfg *config.Config, services api.Services, logger *zerolog.Logger) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		srv, err := api.NewGRPCServer(&cfg.API, services.Health, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		grpcServer = srv
		go func() {
			if err := grpcServer.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, services, logger)
	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().Bool("grpc", grpcServer != nil).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
