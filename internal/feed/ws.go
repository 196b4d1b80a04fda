package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"binary-options-lab/internal/domain"
)

// WSConfig configures the WebSocket bar feed.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns the default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource streams closed bars for one symbol/timeframe over a
// WebSocket. It reconnects with exponential backoff and resubscribes
// after a drop; bars received during the outage are lost, which the
// engine's gap check handles downstream.
type WSSource struct {
	endpoint  string
	symbol    string
	timeframe string
	config    WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	bars       chan domain.Bar
	done       chan struct{}
	wg         sync.WaitGroup
	reconnects atomic.Int64

	reconnecting atomic.Bool
}

var _ BarSource = (*WSSource)(nil)

// NewWSSource connects to the endpoint and subscribes to the bar stream.
func NewWSSource(ctx context.Context, endpoint, symbol, timeframe string, config *WSConfig) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSSource{
		endpoint:  endpoint,
		symbol:    symbol,
		timeframe: timeframe,
		config:    cfg,
		bars:      make(chan domain.Bar, 1024),
		done:      make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Next returns the next closed bar from the stream.
func (s *WSSource) Next(ctx context.Context) (*domain.Bar, error) {
	select {
	case bar, ok := <-s.bars:
		if !ok {
			return nil, ErrEndOfData
		}
		return &bar, nil
	case <-s.done:
		return nil, ErrEndOfData
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reconnects returns the number of successful reconnects so far.
func (s *WSSource) Reconnects() int64 { return s.reconnects.Load() }

// Close closes the connection and stops the background goroutines.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *WSSource) subscribe() error {
	req := wsSubscribe{
		Op:        "subscribe",
		Channel:   "bars",
		Symbol:    s.symbol,
		Timeframe: s.timeframe,
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

func (s *WSSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay
		s.handleMessage(message)
	}
}

func (s *WSSource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, the read loop retries on the next error.
		return
	}
	if err := s.subscribe(); err != nil {
		return
	}
	s.reconnects.Add(1)
}

func (s *WSSource) handleMessage(message []byte) {
	var msg wsBarMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "bar" {
		return
	}

	bar := domain.Bar{
		TimestampMs: msg.TimestampMs,
		Open:        msg.Open,
		High:        msg.High,
		Low:         msg.Low,
		Close:       msg.Close,
		Volume:      msg.Volume,
	}

	// Block until the consumer catches up; bars must not be dropped on
	// our side.
	select {
	case s.bars <- bar:
	case <-s.done:
	}
}

func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, the reader handles reconnect.
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Wire messages.

type wsSubscribe struct {
	Op        string `json:"op"`
	Channel   string `json:"channel"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

type wsBarMessage struct {
	Type        string  `json:"type"`
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"t"`
	Open        float64 `json:"o"`
	High        float64 `json:"h"`
	Low         float64 `json:"l"`
	Close       float64 `json:"c"`
	Volume      float64 `json:"v"`
}
