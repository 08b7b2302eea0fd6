package dbwriter

import (
	"context"
)

// DBWriter defines the interface for writing the decision journal.
// This allows for mocking in tests.
type DBWriter interface {
	SaveDecision(rec DecisionRecord)
	SavePnLSummary(ctx context.Context, pnl PnLSummary) error
	Close()
}
