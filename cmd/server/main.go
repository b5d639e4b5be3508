package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rezerv/internal/admission"
	"rezerv/internal/api"
	"rezerv/internal/audit"
	"rezerv/internal/config"
	"rezerv/internal/database"
	"rezerv/internal/eligibility"
	"rezerv/internal/events"
	"rezerv/internal/metrics"
	"rezerv/internal/notify"
	"rezerv/internal/workflow"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("REZERV_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	resources := database.NewCachedResources(db, rdb, cfg.PolicyCacheTTL())

	bus := events.NewEventBus()
	eligible := eligibility.NewService(nil, logger)
	engine := admission.NewEngine(db, resources, eligible, bus, &logger)
	transitions := workflow.NewService(db, bus, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Database.Backup, &logger)
		go backup.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Notify.Enabled && cfg.Notify.TelegramToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.StaffChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram notifier")
		}
		senderCfg := notify.DefaultSenderConfig()
		if cfg.Notify.RatePerSecond > 0 {
			senderCfg.RatePerSecond = cfg.Notify.RatePerSecond
		}
		if cfg.Notify.Burst > 0 {
			senderCfg.Burst = cfg.Notify.Burst
		}
		sender := notify.NewSender(notifier, db, senderCfg, notify.NewMetrics("rezerv"), &logger)

		schedCfg := notify.DefaultSchedulerConfig()
		if cfg.Notify.Timezone != "" {
			schedCfg.Timezone = cfg.Notify.Timezone
		}
		if cfg.Notify.DailyHour > 0 {
			schedCfg.DailyHour = cfg.Notify.DailyHour
		}
		schedCfg.Window = cfg.NotifyWindow()

		scheduler, err := notify.NewScheduler(schedCfg, db, sender, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create reminder scheduler")
		}
		go scheduler.Start(ctx)
	}

	server := api.NewHTTPServer(engine, transitions, db, &logger)
	if cfg.Audit.ExportDir != "" {
		exporter := audit.NewExporter(db, audit.NewExcelizeWriter, &logger)
		server.EnableExport(exporter, cfg.Audit.ExportDir)
	}
	mux := http.NewServeMux()
	server.Routes(mux)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ServerPort()), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.ServerPort()).Msg("reservation server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
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
