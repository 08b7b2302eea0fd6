package dbwriter

import (
	"context"

	"go.uber.org/zap"
)

// dummyWriter is a no-op implementation of DBWriter.
// It is used when the database connection is not available.
type dummyWriter struct {
	logger *zap.Logger
}

// NewDummyWriter creates a new dummy writer.
func NewDummyWriter(l *zap.Logger) DBWriter {
	return &dummyWriter{logger: l}
}

// SaveDecision logs the record at debug level and drops it.
func (d *dummyWriter) SaveDecision(rec DecisionRecord) {
	d.logger.Debug("Dummy writer: SaveDecision called",
		zap.String("sessionID", rec.SessionID), zap.String("rule", rec.Rule), zap.String("reason", rec.Reason))
}

// SavePnLSummary does nothing and returns nil.
func (d *dummyWriter) SavePnLSummary(ctx context.Context, pnl PnLSummary) error {
	d.logger.Debug("Dummy writer: SavePnLSummary called", zap.String("sessionID", pnl.SessionID))
	return nil
}

// Close does nothing.
func (d *dummyWriter) Close() {}
