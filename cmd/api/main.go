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
	"path/filepath"
	"syscall"
	"time"

	"villastay/internal/api"
	"villastay/internal/config"
	"villastay/internal/database"
	"villastay/internal/domain"
	"villastay/internal/events"
	"villastay/internal/google"
	"villastay/internal/logging"
	"villastay/internal/metrics"
	"villastay/internal/models"
	"villastay/internal/notify"
	"villastay/internal/repository"
	"villastay/internal/service"
	"villastay/internal/worker"

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
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	settings, err := service.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	notifiers, err := initNotifiers(cfg, &logger)
	if err != nil {
		return err
	}
	mirrorSheet := initBookingSheet(ctx, cfg, &logger)
	if mirrorSheet != nil {
		notifiers[models.ChannelSheets] = mirrorSheet
	}
	notificationWorker := worker.NewNotificationWorker(db, notifiers, redisClient, cfg.Worker, logging.Component(&logger, "notification-worker"))
	go notificationWorker.Start(ctx)
	reportFailedNotifications(ctx, db, &logger)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)
	if mirrorSheet != nil {
		service.MirrorBookingEvents(eventBus, notificationWorker, cfg.Notifications.Sheets.SpreadsheetID, logging.Component(&logger, "sheets-mirror"))
	}

	quotes := initQuoteStore(redisClient, &logger)

	svc := api.Services{
		Rooms:         service.NewRoomService(db, logging.Component(&logger, "room-service")),
		Bookings:      service.NewBookingService(db, eventBus, notificationWorker, settings, logging.Component(&logger, "booking-service")),
		Cancellations: service.NewCancellationService(db, quotes, eventBus, notificationWorker, settings, logging.Component(&logger, "cancellation-service")),
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, cfg, svc, settings, &logger)
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

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	db.SetLocation(cfg.Location())

	if err := db.SyncRooms(context.Background(), cfg.Rooms); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sync rooms: %w", err)
	}
	logger.Info().Int("rooms", len(cfg.Rooms)).Msg("room catalogue synced")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initQuoteStore prefers redis and keeps quotes in memory when redis is
// missing or goes away.
func initQuoteStore(redisClient *redis.Client, logger *zerolog.Logger) domain.QuoteStore {
	memory := repository.NewMemoryQuoteStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverQuoteStore(repository.NewRedisQuoteStore(redisClient), memory, logging.Component(logger, "quote-store"))
}

func initNotifiers(cfg *config.Config, logger *zerolog.Logger) (map[string]notify.Notifier, error) {
	notifiers := make(map[string]notify.Notifier, 3)

	if cfg.Notifications.Mailjet.Configured() {
		notifiers[models.ChannelEmail] = notify.NewMailjetNotifier(cfg.Notifications.Mailjet)
	} else {
		logger.Warn().Msg("mailjet not configured, guest emails will only be logged")
		notifiers[models.ChannelEmail] = notify.NewLogNotifier(models.ChannelEmail, logger)
	}

	if cfg.Notifications.Telegram.Configured() {
		bot, err := tgbotapi.NewBotAPI(cfg.Notifications.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		bot.Debug = cfg.Notifications.Telegram.Debug
		logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier ready")
		notifiers[models.ChannelTelegram] = notify.NewTelegramNotifier(bot)
	} else {
		logger.Warn().Msg("telegram not configured, manager alerts will only be logged")
		notifiers[models.ChannelTelegram] = notify.NewLogNotifier(models.ChannelTelegram, logger)
	}

	return notifiers, nil
}

// initBookingSheet returns nil when the spreadsheet is not configured or
// cannot be reached; bookings keep working without the mirror.
func initBookingSheet(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.BookingSheet {
	sc := cfg.Notifications.Sheets
	if !sc.Configured() {
		logger.Info().Msg("google sheets not configured, booking mirror disabled")
		return nil
	}

	sheet, err := google.NewBookingSheet(ctx, sc.CredentialsFile, sc.SpreadsheetID, sc.SheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, booking mirror disabled")
		return nil
	}
	if err := sheet.Prepare(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets not reachable, booking mirror disabled")
		return nil
	}

	logger.Info().Str("spreadsheet_id", sc.SpreadsheetID).Msg("booking mirror ready")
	return sheet
}

func reportFailedNotifications(ctx context.Context, db *database.DB, logger *zerolog.Logger) {
	failed, err := db.GetFailedNotifications(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not count failed notifications")
		return
	}
	if len(failed) > 0 {
		logger.Warn().Int("count", len(failed)).Msg("notifications in failed state need attention")
	}
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "audit").Logger()
	handler := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		audit.Info().
			Str("event", event.Type).
			Int64("booking_id", payload.BookingID).
			Str("status", payload.Status).
			Int64("amount", payload.Amount).
			Int("refund_percent", payload.RefundPercent).
			Int64("refund_amount", payload.RefundAmount).
			Str("changed_by", payload.ChangedBy).
			Msg("booking event")
		return nil
	}

	for _, eventType := range []string{events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingCancelled} {
		bus.Subscribe(eventType, handler)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	svc api.Services,
	settings service.Settings,
	logger *zerolog.Logger,
) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(&cfg.API, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, settings.Currency, settings.Location, logger)
	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.SetServing(false)
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
