package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pgstay-backend/config"
	"pgstay-backend/internal/api"
	"pgstay-backend/internal/db"
	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/events"
	"pgstay-backend/internal/metrics"
	"pgstay-backend/internal/mw"
	"pgstay-backend/internal/notify"
	"pgstay-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pgstayd",
		Short: "PG/hostel rental management backend",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	return config.Load(configPath)
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			log := newLogger(cfg.Log)
			if _, err := db.Init(&cfg.Database, log); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			log := newLogger(cfg.Log)
			log.Info("configuration loaded")

			if cfg.Auth.JWTSecret == "" && !cfg.Auth.Disabled {
				return errors.New("auth.jwt_secret must be configured (or auth.disabled set for local development)")
			}

			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			appStore := store.NewGormStore(gormDB)

			registry := prometheus.NewRegistry()
			allocMetrics := metrics.NewAllocationMetrics(registry)

			var sink events.Sink
			if cfg.Events.Enabled {
				sink = events.NewKafkaProducer(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Workers, log)
				log.WithField("topic", cfg.Events.Topic).Info("kafka event sink enabled")
			} else {
				sink = &events.LogSink{Log: log}
			}
			defer sink.Close()

			var vacancy engine.VacancyNotifier
			webpushOptions := &webpush.Options{
				VAPIDPublicKey:  cfg.Push.PublicKey,
				VAPIDPrivateKey: cfg.Push.PrivateKey,
				Subscriber:      cfg.Push.Subject,
				TTL:             cfg.Push.TTL,
			}
			if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
				pool := notify.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, log)
				pool.Start(ctx)
				vacancy = pool
				log.WithField("workers", cfg.WorkerPool.Size).Info("vacancy alert worker pool started")
			} else {
				log.Warn("VAPID keys not configured; vacancy alerts disabled")
			}

			allocEngine := engine.New(gormDB, engine.Options{
				Sink:         sink,
				Metrics:      allocMetrics,
				Vacancy:      vacancy,
				Log:          log,
				CheckInGrace: cfg.Allocation.CheckInGrace,
				ClaimRetries: cfg.Allocation.ClaimRetries,
			})

			router := api.NewRouter(api.RouterDeps{
				Store:    appStore,
				Engine:   allocEngine,
				Auth:     mw.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Disabled),
				WebPush:  webpushOptions,
				Registry: registry,
				Log:      log,
				Server:   cfg.Server,
			})

			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: router,
			}

			go func() {
				log.WithField("port", cfg.Server.Port).Info("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Fatal("HTTP server ListenAndServe")
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			log.Info("shutdown signal received, stopping services")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server shutdown: %w", err)
			}

			log.Info("server gracefully stopped")
			return nil
		},
	}
}
