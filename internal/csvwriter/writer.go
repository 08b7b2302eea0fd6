// Package csvwriter exports session order histories as CSV.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Header is the column layout written before the first record.
var Header = []string{
	"session_id", "symbol", "session_status", "order_id", "purpose", "direction", "status",
	"price", "count", "commission", "parent_order_id", "related_hedge_id", "created_time",
}

// Writer writes one row per order. It is safe for concurrent use.
type Writer struct {
	closer io.Closer
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
	header bool
	rows   int
}

// NewWriter writes CSV to w.
func NewWriter(w io.Writer, logger *zap.Logger) *Writer {
	return &Writer{writer: csv.NewWriter(w), logger: logger}
}

// Create creates a CSV file at filePath.
func Create(filePath string, logger *zap.Logger) (*Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	w := NewWriter(file, logger)
	w.closer = file
	return w, nil
}

// WriteSession writes every order of s.
func (w *Writer) WriteSession(s *trade.Session) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.header {
		if err := w.writer.Write(Header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		w.header = true
	}
	for _, o := range s.Orders {
		record := []string{
			s.ID,
			s.Symbol,
			string(s.Status),
			o.ID,
			string(o.Purpose),
			string(o.Direction),
			string(o.Status),
			o.Price.String(),
			o.Count.String(),
			o.Commission.String(),
			o.ParentOrderID,
			o.RelatedHedgeID,
			o.CreatedTime.UTC().Format(time.RFC3339Nano),
		}
		if err := w.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
		w.rows++
	}
	return nil
}

// Rows returns the number of order rows written.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the file, if the Writer owns one.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if w.logger != nil {
		w.logger.Info("CSV export finished", zap.Int("rows", w.Rows()))
	}
	return err
}
