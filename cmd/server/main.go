package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/api/handlers"
	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/cache"
	"github.com/innovative-enterprises/whatsapp-agent/internal/config"
	"github.com/innovative-enterprises/whatsapp-agent/internal/db"
	"github.com/innovative-enterprises/whatsapp-agent/internal/gateway"
	apihandlers "github.com/innovative-enterprises/whatsapp-agent/internal/handlers"
	applog "github.com/innovative-enterprises/whatsapp-agent/internal/logger"
	"github.com/innovative-enterprises/whatsapp-agent/internal/metrics"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"github.com/innovative-enterprises/whatsapp-agent/internal/repository"
	"github.com/innovative-enterprises/whatsapp-agent/internal/scheduler"
	"github.com/innovative-enterprises/whatsapp-agent/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	serviceName     = "whatsapp-agent"
	shutdownTimeout = 15 * time.Second
)

type dependencies struct {
	pool  *pgxpool.Pool
	redis *redis.Client // nil when REDIS_ADDR is unset
}

func (d *dependencies) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	d.pool.Close()
}

type application struct {
	server    *http.Server
	scheduler *scheduler.Scheduler
}

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := applog.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if insecure := cfg.InsecureDefaults(); len(insecure) > 0 {
		logger.Warn("running with insecure default secrets", zap.Strings("keys", insecure))
	}

	// 2. Connect to Postgres and Redis
	ctx := context.Background()
	deps, err := setupDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to setup dependencies", zap.Error(err))
	}
	defer deps.Close()

	// 3. Wire services, handlers and jobs
	app, err := buildApplication(deps, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	// 4. Start serving
	app.scheduler.Start()
	startServer(app.server, logger)

	waitForShutdown(app, logger)
	logger.Info("server exited")
}

func setupDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	pool, err := db.NewPool(ctx, cfg.DBUrl, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	deps := &dependencies{pool: pool}
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to establish redis connection: %w", err)
		}
		deps.redis = client
	}

	return deps, nil
}

func buildApplication(deps *dependencies, cfg *config.Config, logger *zap.Logger) (*application, error) {
	// Repositories
	otpStore := newCredentialStore(deps, cfg)
	userRepo := repository.NewUserRepository(deps.pool)
	messageRepo := repository.NewMessageRepository(deps.pool)
	subscriberRepo := repository.NewSubscriberRepository(deps.pool)

	// Outbound
	whatsapp := gateway.NewWhatsAppClient(gateway.Config{
		APIURL:        cfg.WhatsAppAPIURL,
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		Timeout:       cfg.WhatsAppTimeout,
		MaxRetries:    cfg.WhatsAppMaxRetries,
	}, logger)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	// Services
	messagingService := service.NewMessagingService(whatsapp, messageRepo, cfg.WhatsAppPhoneNumberID, logger)
	otpService := service.NewOTPService(otpStore, userRepo, tokens, messagingService, service.OTPConfig{
		TTL:          cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		TemplateName: cfg.OTPTemplateName,
		Language:     cfg.TemplateLanguage,
	}, logger)
	webhookService := service.NewWebhookService(messageRepo, messagingService, cfg.AutoReplyText, logger)
	reminderService := service.NewReminderService(subscriberRepo, messagingService, service.ReminderConfig{
		TemplateName: cfg.ReminderTemplateName,
		Language:     cfg.TemplateLanguage,
		Location:     cfg.Location(),
		Concurrency:  cfg.ReminderConcurrency,
	}, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// Jobs
	jobs := scheduler.New(cfg.Location(), logger)
	err := jobs.Add("reminders", cfg.ReminderCron, appMetrics.ObserveJob("reminders", func(ctx context.Context) error {
		_, err := reminderService.RunDailyCheck(ctx)
		if errors.Is(err, models.ErrRunInProgress) {
			return nil
		}
		return err
	}))
	if err != nil {
		return nil, err
	}
	if otpService.CanPurge() {
		if err := jobs.Add("otp-purge", cfg.OTPPurgeCron, appMetrics.ObserveJob("otp-purge", otpService.PurgeExpired)); err != nil {
			return nil, err
		}
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), apihandlers.RequestLogger(logger), apihandlers.RequestMetrics(appMetrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	health := handlers.NewHealthHandler(serviceName).
		AddCheck("database", deps.pool.Ping)
	if deps.redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return deps.redis.Ping(ctx).Err()
		})
	}
	health.RegisterRoutes(router)

	apihandlers.NewAuthHandler(otpService, tokens).RegisterRoutes(router)
	apihandlers.NewMessageHandler(messagingService, tokens).RegisterRoutes(router)
	apihandlers.NewWebhookHandler(webhookService, cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, logger).RegisterRoutes(router)
	apihandlers.NewReminderHandler(reminderService, cfg.CronSecret).RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("application components built",
		zap.String("otp_store", cfg.OTPStore),
		zap.Bool("webhook_signature_check", cfg.WhatsAppAppSecret != ""),
		zap.Bool("cron_secret", cfg.CronSecret != ""),
	)
	return &application{server: server, scheduler: jobs}, nil
}

func newCredentialStore(deps *dependencies, cfg *config.Config) service.CredentialStore {
	switch cfg.OTPStore {
	case config.OTPStoreRedis:
		return cache.NewOTPStore(deps.redis)
	case config.OTPStoreMemory:
		return repository.NewMemoryOTPStore()
	default:
		return repository.NewOTPRepository(deps.pool)
	}
}

func startServer(server *http.Server, logger *zap.Logger) {
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
}

func waitForShutdown(app *application, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := app.scheduler.Stop(ctx); err != nil {
		logger.Error("scheduler did not stop cleanly", zap.Error(err))
	}
}
