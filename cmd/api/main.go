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

	"wardrobe/internal/api"
	"wardrobe/internal/bot"
	"wardrobe/internal/clock"
	"wardrobe/internal/config"
	"wardrobe/internal/database"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/export"
	"wardrobe/internal/google"
	"wardrobe/internal/logging"
	"wardrobe/internal/metrics"
	"wardrobe/internal/models"
	"wardrobe/internal/repository"
	"wardrobe/internal/scheduler"
	"wardrobe/internal/service"
	"wardrobe/internal/storage"
	"wardrobe/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
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
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API gateway is disabled in config; serving without client keys")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	clk := clock.NewSystem()
	items := service.NewItemService(db, &logger)
	if err := seedItems(ctx, items, &logger); err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	state := initRequestState(redisClient, &logger)

	eventBus := events.NewEventBus()
	ledger := startLedgerWorker(ctx, cfg, db, redisClient, &logger)

	opts := []service.Option{
		service.WithClock(clk),
		service.WithDeposit(cfg.Rental.DepositTotal),
		service.WithOverdueGrace(time.Duration(cfg.Rental.OverdueGraceHours) * time.Hour),
	}
	bookings := service.NewBookingService(db, eventBus, ledger, &logger, opts...)
	returns := service.NewReturnService(db, eventBus, ledger, &logger, opts...)
	inspections := service.NewInspectionService(db, eventBus, ledger, &logger, opts...)

	photos, err := storage.New(cfg.Storage, &logger)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.Storage.Backend).Msg("init photo storage")
		return err
	}

	tokens, err := api.NewTokenManager(cfg.API.JWT)
	if err != nil {
		return fmt.Errorf("init tokens: %w", err)
	}

	reporter := export.NewReporter(bookings, returns, cfg.Exports.Path, clk, &logger)
	notifier := initNotifier(cfg, eventBus, &logger)

	sched, err := startScheduler(cfg, db, bookings, notifier, eventBus, reporter, clk, &logger)
	if err != nil {
		return err
	}
	defer sched.Stop()

	startMetrics(ctx, cfg, eventBus, &logger)

	hub := api.NewHub(&logger)
	hub.Subscribe(eventBus)
	go hub.Run(ctx)

	svc := api.Services{
		Items:        items,
		Bookings:     bookings,
		Returns:      returns,
		Inspections:  inspections,
		Photos:       photos,
		Reports:      reporter,
		State:        state,
		Tokens:       tokens,
		Hub:          hub,
		Ready:        db,
		MaxPhotos:    cfg.Storage.MaxPhotos,
		MaxPhotoSize: int64(cfg.Storage.MaxFileSizeMB) << 20,
	}
	if cfg.Storage.Backend == "local" {
		svc.UploadsDir = cfg.Storage.LocalPath
		svc.UploadsPrefix = cfg.Storage.PublicPrefix
	}
	httpServer := api.NewHTTPServer(&cfg.API, svc, &logger)

	grpcServer, err := api.NewGRPCServer(&cfg.API, api.NewRentalService(bookings, returns, inspections), tokens, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
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

// seedItems upserts the catalog from ITEMS_PATH. A missing file is not an
// error; owners can list items through the API.
func seedItems(ctx context.Context, items *service.ItemService, logger *zerolog.Logger) error {
	itemsPath := os.Getenv("ITEMS_PATH")
	if itemsPath == "" {
		itemsPath = "configs/items.yaml"
	}
	itemsData, err := os.ReadFile(itemsPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("items_path", itemsPath).Msg("no item catalog to seed")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("items_path", itemsPath).Msg("read items")
		return err
	}

	var itemsConfig struct {
		Items []models.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(itemsData, &itemsConfig); err != nil {
		logger.Error().Err(err).Str("items_path", itemsPath).Msg("parse items")
		return err
	}

	if err := items.SeedItems(ctx, itemsConfig.Items); err != nil {
		logger.Error().Err(err).Str("items_path", itemsPath).Msg("seed items")
		return err
	}
	logger.Info().Int("count", len(itemsConfig.Items)).Msg("item catalog seeded")
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initRequestState keeps rate limits and idempotent replies in Redis when it
// is reachable, in process memory otherwise.
func initRequestState(redisClient *redis.Client, logger *zerolog.Logger) domain.RequestStateRepository {
	memory := repository.NewMemoryRequestStateRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRequestStateRepository(repository.NewRedisRequestStateRepository(redisClient), memory, logger)
}

// startLedgerWorker mirrors rentals into Google Sheets. Without credentials
// the services run without a ledger.
func startLedgerWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LedgerSpreadsheetID == "" {
		return nil
	}

	ledgerService, err := google.NewLedgerService(ctx, cfg.Google.CredentialsFile, cfg.Google.LedgerSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google ledger init failed, continuing without ledger")
		return nil
	}
	if err := ledgerService.EnsureHeaders(ctx); err != nil {
		logger.Warn().Err(err).Msg("google ledger headers")
	}

	ledgerWorker := worker.NewLedgerWorker(db, ledgerService, redisClient, worker.DefaultRetryPolicy(), logger)
	go ledgerWorker.Start(ctx)

	logger.Info().Msg("google ledger connected")
	return ledgerWorker
}

// initNotifier sends desk notifications through Telegram when a bot token
// and desk chats are configured.
func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Desk.NotifyChatIDs) == 0 {
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without desk notifications")
		return nil
	}
	botAPI.Debug = cfg.Telegram.Debug

	telegram := service.NewTelegramService(bot.NewBotWrapper(botAPI), cfg.Desk.NotifyChatIDs, logger)
	telegram.Subscribe(bus)
	return telegram
}

func startScheduler(
	cfg *config.Config,
	db *database.DB,
	bookings *service.BookingService,
	notifier domain.Notifier,
	bus *events.EventBus,
	reporter *export.Reporter,
	clk clock.Clock,
	logger *zerolog.Logger,
) (*scheduler.Scheduler, error) {
	jobs := scheduler.NewJobRunner(scheduler.Jobs{
		Bookings:  bookings,
		Notifier:  notifier,
		Publisher: bus,
		Backup:    database.NewBackupService(db, cfg.Backup, logger),
		Reports:   reporter,
		Clock:     clk,
	}, logger)

	sched, err := scheduler.NewScheduler(cfg.Scheduler, jobs, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init scheduler")
		return nil, err
	}
	sched.Start()
	return sched, nil
}

func startMetrics(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	metrics.Subscribe(bus)
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
