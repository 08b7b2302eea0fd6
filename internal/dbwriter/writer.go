// Package dbwriter persists the engine's decision journal.
package dbwriter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/your-org/hedge-guard-bot/internal/config"
)

// DecisionRecord is one evaluated rule that produced an action, blocked or not.
type DecisionRecord struct {
	Time      time.Time       `db:"time"`
	SessionID string          `db:"session_id"`
	Symbol    string          `db:"symbol"`
	Rule      string          `db:"rule"`
	Action    string          `db:"action"`
	Mode      string          `db:"mode"`
	Direction string          `db:"direction"`
	Purpose   string          `db:"purpose"`
	OrderID   string          `db:"order_id"`
	Price     decimal.Decimal `db:"price"`
	PnL       decimal.Decimal `db:"pnl_pct"`
	Reason    string          `db:"reason"`
	Blocked   bool            `db:"blocked"`
	Error     string          `db:"error"`
}

// PnLSummary is the realized result of a completed session.
type PnLSummary struct {
	Time        time.Time       `db:"time"`
	SessionID   string          `db:"session_id"`
	Symbol      string          `db:"symbol"`
	RealizedPnL decimal.Decimal `db:"realized_pnl"`
	Commission  decimal.Decimal `db:"commission"`
	OrderCount  int             `db:"order_count"`
}

var decisionColumns = []string{
	"time", "session_id", "symbol", "rule", "action", "mode", "direction",
	"purpose", "order_id", "price", "pnl_pct", "reason", "blocked", "error",
}

// Pool is an interface that abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Close()
}

// JournalWriter buffers decision records and flushes them to Postgres in batches.
type JournalWriter struct {
	pool           Pool
	logger         *zap.Logger
	config         config.DBWriterConfig
	decisionBuffer []DecisionRecord
	bufferMutex    sync.Mutex
	flushTicker    *time.Ticker
	shutdownChan   chan struct{}
	closeOnce      sync.Once
}

// NewJournalWriter creates a JournalWriter on an existing pool.
// A nil pool yields the dummy writer.
func NewJournalWriter(pool Pool, writerConfig config.DBWriterConfig, logger *zap.Logger) DBWriter {
	if pool == nil {
		logger.Info("Database pool is nil, creating dummy journal writer.")
		return NewDummyWriter(logger)
	}

	if writerConfig.WriteIntervalSeconds <= 0 {
		logger.Warn("WriteIntervalSeconds is zero or negative, defaulting to 1s.", zap.Int("originalValue", writerConfig.WriteIntervalSeconds))
		writerConfig.WriteIntervalSeconds = 1
	}
	if writerConfig.BatchSize <= 0 {
		logger.Warn("BatchSize is zero or negative, defaulting to 100.", zap.Int("originalValue", writerConfig.BatchSize))
		writerConfig.BatchSize = 100
	}

	writer := &JournalWriter{
		pool:           pool,
		logger:         logger,
		config:         writerConfig,
		decisionBuffer: make([]DecisionRecord, 0, writerConfig.BatchSize),
		flushTicker:    time.NewTicker(time.Duration(writerConfig.WriteIntervalSeconds) * time.Second),
		shutdownChan:   make(chan struct{}),
	}
	go writer.run()
	logger.Info("Started decision journal writer", zap.Int("batchSize", writerConfig.BatchSize))
	return writer
}

// Close stops the flush loop, flushes what is buffered, and closes the pool.
func (w *JournalWriter) Close() {
	w.closeOnce.Do(func() {
		w.logger.Info("Closing decision journal writer...")
		close(w.shutdownChan)
		w.flushTicker.Stop()
		w.flushBuffers()
		w.pool.Close()
	})
}

func (w *JournalWriter) run() {
	for {
		select {
		case <-w.flushTicker.C:
			w.flushBuffers()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveDecision adds a record to the buffer, flushing once the batch is full.
func (w *JournalWriter) SaveDecision(rec DecisionRecord) {
	w.bufferMutex.Lock()
	w.decisionBuffer = append(w.decisionBuffer, rec)
	shouldFlush := len(w.decisionBuffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flushBuffers()
	}
}

func (w *JournalWriter) flushBuffers() {
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.decisionBuffer) == 0 {
		return
	}
	w.logger.Debug("Flushing decision records", zap.Int("count", len(w.decisionBuffer)))
	_, err := w.pool.CopyFrom(
		context.Background(),
		pgx.Identifier{"engine_decisions"},
		decisionColumns,
		pgx.CopyFromRows(toDecisionRows(w.decisionBuffer)),
	)
	if err != nil {
		w.logger.Error("Failed to batch insert decision records", zap.Error(err), zap.Int("dropped", len(w.decisionBuffer)))
	}
	w.decisionBuffer = w.decisionBuffer[:0]
}

func toDecisionRows(records []DecisionRecord) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			r.Time, r.SessionID, r.Symbol, r.Rule, r.Action, r.Mode, r.Direction,
			r.Purpose, r.OrderID, r.Price, r.PnL, r.Reason, r.Blocked, r.Error,
		}
	}
	return rows
}

// SavePnLSummary writes the result of a completed session immediately.
func (w *JournalWriter) SavePnLSummary(ctx context.Context, pnl PnLSummary) error {
	query := `INSERT INTO session_pnl (time, session_id, symbol, realized_pnl, commission, order_count)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (session_id) DO NOTHING`
	_, err := w.pool.Exec(ctx, query,
		pnl.Time, pnl.SessionID, pnl.Symbol,
		pnl.RealizedPnL, pnl.Commission, pnl.OrderCount,
	)
	if err != nil {
		w.logger.Error("Failed to insert session PnL", zap.Error(err), zap.String("sessionID", pnl.SessionID))
		return fmt.Errorf("failed to insert session PnL: %w", err)
	}
	w.logger.Debug("Saved session PnL to DB.", zap.String("sessionID", pnl.SessionID))
	return nil
}
