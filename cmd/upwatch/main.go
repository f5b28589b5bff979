package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/upwatch-dev/upwatch/db"
	"github.com/upwatch-dev/upwatch/internal/config"
	"github.com/upwatch-dev/upwatch/internal/handlers"
	"github.com/upwatch-dev/upwatch/internal/logging"
	"github.com/upwatch-dev/upwatch/internal/notify"
	"github.com/upwatch-dev/upwatch/internal/router"
	"github.com/upwatch-dev/upwatch/internal/scheduler"
	"github.com/upwatch-dev/upwatch/internal/stats"
	"github.com/upwatch-dev/upwatch/internal/tracker"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogDir)

	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.MigrateDatabase(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	notifier := notify.New(db.DB, logger.Named("notify"), notify.SMTPSettings{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})

	statsService := stats.NewService(db.DB, logger.Named("stats"),
		cfg.RedisAddr, cfg.RedisPassword, cfg.StatsCacheTTL)

	trk := tracker.New(db.DB, logger.Named("tracker"))
	trk.Subscribe(notifier)
	trk.Subscribe(handlers.StatusFeed{})

	handlers.Init(logger.Named("api"), notifier, statsService)

	sched := scheduler.New(db.DB, logger.Named("scheduler"), trk, scheduler.Options{
		PollInterval: cfg.PollInterval,
		Workers:      cfg.Workers,
		Region:       cfg.Region,
	})
	sched.Start()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.NewRouter(),
	}

	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
