package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newsgram/app/api"
	"github.com/lysyi3m/newsgram/app/cfg"
	"github.com/lysyi3m/newsgram/app/database"
	"github.com/lysyi3m/newsgram/app/feed"
	"github.com/lysyi3m/newsgram/app/queue"
	"github.com/lysyi3m/newsgram/app/render"
	"github.com/lysyi3m/newsgram/app/shortener"
	"github.com/lysyi3m/newsgram/app/tasks"
	"github.com/lysyi3m/newsgram/app/telegram"
	"github.com/lysyi3m/newsgram/app/worker"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Newsgram", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DatabasePath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DatabasePath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount())

	cardRenderer, err := render.For(appCfg.RenderTemplate)
	if err != nil {
		slog.Error("Failed to initialize card renderer", "template", appCfg.RenderTemplate, "error", err)
		os.Exit(1)
	}

	articleRepo := database.NewArticleRepository(db)
	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), feed.NewContentExtractor(),
		articleRepo, appCfg.UserAgent, appCfg.MaxFetchRetries,
		time.Duration(appCfg.RetryBaseDelay)*time.Second, appCfg.SummaryBudget)

	session := queue.NewSession()
	deliveries := queue.New()

	deliveryWorker := worker.New(deliveries, session, articleRepo,
		telegram.NewClient(appCfg.BotToken), cardRenderer, shortener.New("newsgram"),
		fetcher, worker.Options{
			ChannelID:         appCfg.ChannelID,
			IVRHash:           appCfg.IVRHash,
			MinSendInterval:   appCfg.MinSendInterval,
			FloodFallbackWait: appCfg.FloodFallbackWait,
			RequeueOnFlood:    appCfg.RequeueOnFlood,
		})
	deliveryWorker.Start()
	defer deliveryWorker.Stop()

	scheduler := tasks.NewScheduler(configCache, fetcher, session, deliveries)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "interval_minutes", appCfg.CheckInterval)

	apiHandler := api.NewHandler(articleRepo, configCache, deliveries, session)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(apiHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and worker are stopped via defer
}
