package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wardrobe/internal/bot"
	"wardrobe/internal/clock"
	"wardrobe/internal/config"
	"wardrobe/internal/database"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/export"
	"wardrobe/internal/logging"
	"wardrobe/internal/repository"
	"wardrobe/internal/service"
	"wardrobe/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required for the desk bot")
	}
	if len(cfg.Desk.Arbitrators) == 0 {
		logger.Warn().Msg("no desk arbitrators configured, the bot will refuse everyone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient, state := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("init telegram bot api")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug
	logger.Info().Str("username", botAPI.Self.UserName).Msg("authorized on telegram")
	sender := bot.NewBotWrapper(botAPI)

	clk := clock.NewSystem()
	eventBus := events.NewEventBus()
	if len(cfg.Desk.NotifyChatIDs) > 0 {
		service.NewTelegramService(sender, cfg.Desk.NotifyChatIDs, &logger).Subscribe(eventBus)
	}

	ledger := initLedgerQueue(cfg, db, redisClient, &logger)
	opts := []service.Option{
		service.WithClock(clk),
		service.WithDeposit(cfg.Rental.DepositTotal),
		service.WithOverdueGrace(time.Duration(cfg.Rental.OverdueGraceHours) * time.Hour),
	}
	bookings := service.NewBookingService(db, eventBus, ledger, &logger, opts...)
	returns := service.NewReturnService(db, eventBus, ledger, &logger, opts...)
	inspections := service.NewInspectionService(db, eventBus, ledger, &logger, opts...)
	reporter := export.NewReporter(bookings, returns, cfg.Exports.Path, clk, &logger)

	var botMetrics *bot.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		botMetrics = bot.NewMetrics()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	deskBot, err := bot.NewBot(sender, cfg, state, bookings, inspections, reporter, clk, botMetrics, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create desk bot")
		return err
	}

	logger.Info().Int("arbitrators", len(cfg.Desk.Arbitrators)).Msg("desk bot started")
	deskBot.Start(ctx)
	deskBot.Stop()

	logger.Info().Msg("desk bot stopped")
	return nil
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
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.RequestStateRepository) {
	memory := repository.NewMemoryRequestStateRepository()
	if cfg.Redis.Address == "" {
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-memory rate limits")
		_ = repository.Close(redisClient)
		return nil, memory
	}

	primary := repository.NewRedisRequestStateRepository(redisClient)
	return redisClient, repository.NewFailoverRequestStateRepository(primary, memory, logger)
}

// initLedgerQueue only enqueues ledger tasks; the API process runs the
// consumer that writes them to the spreadsheet.
func initLedgerQueue(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LedgerSpreadsheetID == "" {
		return nil
	}
	return worker.NewLedgerWorker(db, nil, redisClient, worker.RetryPolicy{}, logger)
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
