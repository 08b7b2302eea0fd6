package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

const (
	tradesChannelSuffix = "-trades"
	pingInterval        = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// tradeMessage is one trade event on the stream.
type tradeMessage struct {
	Symbol string          `json:"s"`
	Price  decimal.Decimal `json:"p"`
	TimeMs int64           `json:"T"`
}

type subscriptionMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Feed streams trades from a websocket endpoint into a Cache.
type Feed struct {
	url     string
	symbols []string
	cache   *Cache
	dialer  *websocket.Dialer
}

// NewFeed creates a Feed for the given symbols.
func NewFeed(url string, symbols []string, cache *Cache) *Feed {
	return &Feed{
		url:     url,
		symbols: symbols,
		cache:   cache,
		dialer:  websocket.DefaultDialer,
	}
}

// Run connects and keeps the feed alive until ctx is canceled, reconnecting with
// exponential backoff after every failure.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		start := time.Now()
		err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) > maxBackoff {
			backoff = time.Second
		}
		logger.Errorf("[PriceFeed] connection lost: %v. Reconnecting in %v...", err, backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session runs one connection until it fails or ctx is canceled.
func (f *Feed) session(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()
	logger.Infof("[PriceFeed] connected to %s", f.url)

	for _, sym := range f.symbols {
		if err := f.subscribe(conn, sym); err != nil {
			return err
		}
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			f.handleMessage(message)
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the stream")
			}
			return fmt.Errorf("read: %w", err)
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		}
	}
}

func (f *Feed) subscribe(conn *websocket.Conn, symbol string) error {
	channel := strings.ToLower(symbol) + tradesChannelSuffix
	logger.Infof("[PriceFeed] subscribing to channel: %s", channel)
	if err := conn.WriteJSON(subscriptionMessage{Type: "subscribe", Channel: channel}); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return nil
}

func (f *Feed) handleMessage(message []byte) {
	var msg tradeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Debugf("[PriceFeed] ignoring message: %v. Original message: %s", err, message)
		return
	}
	if msg.Symbol == "" || !msg.Price.IsPositive() {
		return
	}
	ts := time.Now()
	if msg.TimeMs > 0 {
		ts = time.UnixMilli(msg.TimeMs)
	}
	f.cache.Update(Quote{Symbol: msg.Symbol, Price: msg.Price, Time: ts})
}
