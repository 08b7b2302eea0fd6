// Package alert handles operator notifications.
package alert

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier is the interface for sending alert messages.
type Notifier interface {
	Send(message string) error
	Close() error
}

// NoOpNotifier is a notifier that does nothing. It is used when alerting is disabled.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing and returns nil.
func (n *NoOpNotifier) Send(message string) error {
	return nil
}

// Close does nothing and returns nil.
func (n *NoOpNotifier) Close() error {
	return nil
}

// LogNotifier buffers messages and emits them as one warning per interval.
type LogNotifier struct {
	logger         *zap.Logger
	bufferInterval time.Duration

	mu     sync.Mutex
	buffer []string
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewLogNotifier starts a LogNotifier flushing every interval.
func NewLogNotifier(logger *zap.Logger, interval time.Duration) *LogNotifier {
	if interval <= 0 {
		interval = time.Minute
	}
	n := &LogNotifier{
		logger:         logger,
		bufferInterval: interval,
		stop:           make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Send queues a message for the next report.
func (n *LogNotifier) Send(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errors.New("notifier is closed")
	}
	n.buffer = append(n.buffer, message)
	return nil
}

// Close emits any queued messages and stops the flush loop.
func (n *LogNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.stop)
	n.wg.Wait()
	n.flush()
	return nil
}

func (n *LogNotifier) run() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.bufferInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.flush()
		case <-n.stop:
			return
		}
	}
}

func (n *LogNotifier) flush() {
	n.mu.Lock()
	msgs := n.buffer
	n.buffer = nil
	n.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	n.logger.Warn("--- Alert Report ---",
		zap.Int("count", len(msgs)),
		zap.String("messages", strings.Join(msgs, "\n")))
}
