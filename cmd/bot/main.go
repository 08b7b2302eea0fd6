// Package main is the entry point of the hedge guard engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/hedge-guard-bot/internal/alert"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/dbwriter"
	"github.com/your-org/hedge-guard-bot/internal/engine"
	"github.com/your-org/hedge-guard-bot/internal/hedge"
	"github.com/your-org/hedge-guard-bot/internal/http/handler"
	"github.com/your-org/hedge-guard-bot/internal/monitor"
	"github.com/your-org/hedge-guard-bot/internal/price"
	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.LogLevel)
	zapLogger, err := logger.NewZap(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync zap logger: %v\n", err)
		}
	}()
	logger.Info("Hedge guard engine starting...")
	logger.Infof("Loaded configuration from: %s", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		logger.Errorf("Engine exited with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Hedge guard engine shut down gracefully.")
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	// --- Persistence (optional Postgres, in-memory otherwise) ---
	var (
		sessions store.SessionStore
		journal  dbwriter.DBWriter
	)
	if cfg.Database.Enabled() {
		if err := store.Migrate(cfg.Database.URL(), zapLogger); err != nil {
			return err
		}
		pool, err := pgxpool.New(ctx, cfg.Database.URL())
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		// the journal owns the pool and closes it
		journal = dbwriter.NewJournalWriter(pool, cfg.DBWriter, zapLogger)
		sessions = store.NewPostgresStore(pool)
		logger.Info("Postgres store and decision journal initialized successfully.")
	} else {
		logger.Warnf("Database not configured; sessions are kept in memory only")
		journal = dbwriter.NewDummyWriter(zapLogger)
		sessions = store.NewInMemStore()
	}
	defer journal.Close()

	saver := store.NewSaver(sessions, zapLogger)
	defer saver.Close()

	notifier := alert.NewLogNotifier(zapLogger, time.Minute)
	defer notifier.Close()

	// --- Engine ---
	quotes := price.NewCache(time.Duration(cfg.PriceFeed.MaxAgeSeconds) * time.Second)
	gateway := engine.NewPaperGateway(cfg.Paper)
	orchestrator := hedge.New(cfg, gateway)

	registry := monitor.NewRegistry()
	n, err := registry.Seed(ctx, sessions)
	if err != nil {
		return err
	}
	logger.Infof("Monitoring %d active sessions", n)

	scheduler := monitor.NewScheduler(cfg.Engine, registry, orchestrator, quotes,
		monitor.WithPersister(saver),
		monitor.WithJournal(journal),
		monitor.WithNotifier(notifier),
		monitor.WithCompletionHook(func(s *trade.Session) {
			registry.Remove(s.ID)
		}),
	)

	// --- HTTP ---
	router := handler.NewRouter(
		handler.NewHealthHandler(registry, quotes, cfg.PriceFeed.Symbols),
		handler.NewSessionHandler(registry, sessions, orchestrator),
	)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.PriceFeed.URL != "" {
		feed := price.NewFeed(cfg.PriceFeed.URL, cfg.PriceFeed.Symbols, quotes)
		g.Go(func() error {
			return feed.Run(gctx)
		})
	} else {
		logger.Warnf("price_feed.url is empty; sessions are not evaluated until quotes arrive")
	}
	g.Go(func() error {
		logger.Infof("HTTP server starting on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping services...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	realized, commission := gateway.Totals()
	logger.Infof("Paper totals: realized=%s commission=%s", realized.StringFixed(4), commission.StringFixed(4))
	return err
}
