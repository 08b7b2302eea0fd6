package dbwriter

import (
	"context"
	"sync"
)

// InMemWriter is an in-memory implementation of the DBWriter interface for testing.
type InMemWriter struct {
	mu           sync.RWMutex
	Decisions    []DecisionRecord
	PnlSummaries []PnLSummary
	IsClosed     bool
}

// NewInMemWriter creates a new InMemWriter.
func NewInMemWriter() *InMemWriter {
	return &InMemWriter{
		Decisions:    make([]DecisionRecord, 0),
		PnlSummaries: make([]PnLSummary, 0),
	}
}

// SaveDecision appends a record to the in-memory slice.
func (w *InMemWriter) SaveDecision(rec DecisionRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Decisions = append(w.Decisions, rec)
}

// SavePnLSummary appends a PnL summary to the in-memory slice.
func (w *InMemWriter) SavePnLSummary(ctx context.Context, pnl PnLSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.PnlSummaries = append(w.PnlSummaries, pnl)
	return nil
}

// Snapshot returns copies of the recorded data.
func (w *InMemWriter) Snapshot() ([]DecisionRecord, []PnLSummary) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]DecisionRecord(nil), w.Decisions...), append([]PnLSummary(nil), w.PnlSummaries...)
}

// Close marks the writer as closed.
func (w *InMemWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.IsClosed = true
}
