package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/csvwriter"
	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	// --- Argument Parsing ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	startTimeStr := flag.String("start", "", "Export sessions created at or after this time (YYYY-MM-DD HH:MM:SS, UTC)")
	status := flag.String("status", "", "Only export sessions with this status (ACTIVE or COMPLETED)")
	outPath := flag.String("out", "", "Output file; stdout when empty")
	flag.Parse()

	// --- Config and Logger Setup ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration to get DB settings: %v", err)
	}
	logger.SetGlobalLogLevel(cfg.LogLevel)
	zapLogger, err := logger.NewZap(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("Failed to initialize zap logger: %v", err)
	}

	filter := store.Filter{Status: trade.SessionStatus(*status)}
	if *startTimeStr != "" {
		filter.Since, err = time.Parse(timeLayout, *startTimeStr)
		if err != nil {
			logger.Fatalf("Invalid --start %q: %v", *startTimeStr, err)
		}
	}

	// --- Database Connection ---
	ctx := context.Background()
	dbpool, err := pgxpool.New(ctx, cfg.Database.URL())
	if err != nil {
		logger.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()

	sessions, err := store.NewPostgresStore(dbpool).List(ctx, filter)
	if err != nil {
		logger.Fatalf("Failed to list sessions: %v", err)
	}

	// --- CSV Writer Setup ---
	var w *csvwriter.Writer
	if *outPath == "" {
		w = csvwriter.NewWriter(os.Stdout, zapLogger)
	} else if w, err = csvwriter.Create(*outPath, zapLogger); err != nil {
		logger.Fatalf("%v", err)
	}

	for _, s := range sessions {
		if err := w.WriteSession(s); err != nil {
			logger.Fatalf("Failed to export session %s: %v", s.ID, err)
		}
	}
	if err := w.Close(); err != nil {
		logger.Fatalf("Failed to finish export: %v", err)
	}
	logger.Infof("Successfully exported %d sessions.", len(sessions))
}
