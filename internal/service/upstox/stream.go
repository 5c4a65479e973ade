package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"GammaPulse/internal/domain/models"
	drepo "GammaPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements a MarketStream over the Upstox market-data websocket in
// LTPC mode, feeding spot prices for the configured underlyings.
type Stream struct {
	feedURL        string
	tokens         TokenSource
	symbolByKey    map[string]string // instrument key -> display symbol
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex // guards conn, connected, keys across Reconnect
	conn      *websocket.Conn
	connected bool
	keys      []string
}

func (s *Stream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// NewStream creates a spot-price MarketStream. symbolByKey maps broker
// instrument keys to the symbols used across the service.
func NewStream(feedURL string, tokens TokenSource, symbolByKey map[string]string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Stream{
		feedURL:        feedURL,
		tokens:         tokens,
		symbolByKey:    symbolByKey,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection with bearer auth.
func (s *Stream) Connect(ctx context.Context) error {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("upstox feed token: %w", err)
	}
	header := map[string][]string{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.feedURL, header)
	if err != nil {
		return fmt.Errorf("upstox feed connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	log.Printf("upstox feed: connected")
	return nil
}

// Subscribe subscribes to LTPC updates for the given instrument keys.
func (s *Stream) Subscribe(ctx context.Context, instrumentKeys []string) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("upstox feed not connected")
	}
	if len(instrumentKeys) == 0 {
		for k := range s.symbolByKey {
			instrumentKeys = append(instrumentKeys, k)
		}
	}
	s.mu.Lock()
	s.keys = instrumentKeys
	s.mu.Unlock()

	msg := map[string]interface{}{
		"guid":   fmt.Sprintf("gp-%d", time.Now().UnixNano()),
		"method": "sub",
		"data": map[string]interface{}{
			"mode":           "ltpc",
			"instrumentKeys": instrumentKeys,
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("upstox feed: subscribed %d instruments", len(instrumentKeys))
	return nil
}

type feedFrame struct {
	Feeds map[string]struct {
		LTPC struct {
			LTP float64 `json:"ltp"`
			LTT int64   `json:"ltt"` // ms
		} `json:"ltpc"`
	} `json:"feeds"`
}

// Read streams spot ticks and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.SpotTick, <-chan error) {
	ticks := make(chan *models.SpotTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn := s.current(); conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn := s.current()
				if conn == nil {
					errs <- fmt.Errorf("upstox feed conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("upstox feed read: %w", err)
					return
				}
				var frame feedFrame
				if err := json.Unmarshal(b, &frame); err != nil {
					// ignore non-feed frames
					continue
				}
				for key, f := range frame.Feeds {
					if f.LTPC.LTP <= 0 {
						continue
					}
					symbol, ok := s.symbolByKey[key]
					if !ok {
						symbol = key
					}
					tick := &models.SpotTick{
						Symbol:        symbol,
						InstrumentKey: key,
						Price:         f.LTPC.LTP,
						Timestamp:     time.UnixMilli(f.LTPC.LTT),
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects, then resubscribes.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	keys := s.keys
	s.mu.Unlock()
	return s.Subscribe(ctx, keys)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
