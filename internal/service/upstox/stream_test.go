package upstox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, frame string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		// first client message is the subscribe request
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		// keep the connection open, absorbing pings, until the client closes
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamDeliversSpotTicks(t *testing.T) {
	frame := `{"feeds":{"NSE_INDEX|Nifty 50":{"ltpc":{"ltp":20010.5,"ltt":1741772400000}}}}`
	srv := newFeedServer(t, frame)
	defer srv.Close()

	s := NewStream(wsURL(srv), StaticToken("test-token"),
		map[string]string{"NSE_INDEX|Nifty 50": "NIFTY"},
		10*time.Millisecond, 5*time.Millisecond,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Connect(ctx))
	require.True(t, s.IsConnected())
	require.NoError(t, s.Subscribe(ctx, nil))

	ticks, _ := s.Read(ctx)
	select {
	case tick := <-ticks:
		require.NotNil(t, tick)
		assert.Equal(t, "NIFTY", tick.Symbol)
		assert.Equal(t, "NSE_INDEX|Nifty 50", tick.InstrumentKey)
		assert.Equal(t, 20010.5, tick.Price)
	case <-ctx.Done():
		t.Fatal("no tick received")
	}

	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
}

func TestStreamSubscribeRequiresConnection(t *testing.T) {
	s := NewStream("ws://127.0.0.1:0", StaticToken("test-token"), nil, time.Millisecond, time.Millisecond)
	assert.Error(t, s.Subscribe(context.Background(), []string{"NSE_INDEX|Nifty 50"}))
}

// Close may race the ping goroutine's connection access; both must stay safe.
func TestStreamConcurrentCloseAndStatus(t *testing.T) {
	frame := `{"feeds":{}}`
	srv := newFeedServer(t, frame)
	defer srv.Close()

	s := NewStream(wsURL(srv), StaticToken("test-token"),
		map[string]string{"NSE_INDEX|Nifty 50": "NIFTY"},
		time.Millisecond, time.Millisecond,
	)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Subscribe(ctx, nil))
	s.Read(ctx) // starts the ping loop

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.IsConnected()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Close()
	}()
	wg.Wait()

	assert.False(t, s.IsConnected())
}
