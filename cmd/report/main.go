package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/report"
	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	since := flag.Duration("since", 24*time.Hour, "Analyze sessions created within this window")
	format := flag.String("format", "text", "Output format: text or json")
	flag.Parse()

	// --- Load Configuration ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Logger Setup ---
	l := logger.NewLogger(cfg.LogLevel)
	if !cfg.Database.Enabled() {
		l.Fatalf("The report needs a database; configure database.host and database.name")
	}

	// --- Database Connection ---
	ctx := context.Background()
	dbpool, err := pgxpool.New(ctx, cfg.Database.URL())
	if err != nil {
		l.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()

	svc := report.NewService(store.NewPostgresStore(dbpool))
	r, err := svc.Generate(ctx, time.Now().Add(-*since))
	if errors.Is(err, report.ErrNoCompletedSessions) {
		l.Infof("No completed sessions in the last %v.", *since)
		return
	}
	if err != nil {
		l.Fatalf("Failed to generate report: %v", err)
	}
	if err := writeReport(os.Stdout, r, *format); err != nil {
		l.Fatalf("Failed to write report: %v", err)
	}
}

// writeReport renders r in the requested format.
func writeReport(w io.Writer, r report.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		rows := []struct {
			label string
			value any
		}{
			{"Period", fmt.Sprintf("%s - %s", r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339))},
			{"Sessions", r.TotalSessions},
			{"Win / Loss", fmt.Sprintf("%d / %d (%.1f%%)", r.WinningSessions, r.LosingSessions, r.WinRate)},
			{"Hedged", r.HedgedSessions},
			{"Averaged", r.AveragedSessions},
			{"Realized PnL", r.TotalPnL.StringFixed(4)},
			{"Commission", r.TotalCommission.StringFixed(4)},
			{"Net PnL", r.NetPnL.StringFixed(4)},
			{"Profit factor", fmt.Sprintf("%.2f", r.ProfitFactor)},
			{"Max drawdown", r.MaxDrawdown.StringFixed(4)},
			{"Sharpe", fmt.Sprintf("%.2f", r.SharpeRatio)},
		}
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%v\n", row.label, row.value)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
