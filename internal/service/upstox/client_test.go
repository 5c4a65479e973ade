package upstox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "GammaPulse/pkg/http"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(pkghttp.NewClient(), StaticToken("test-token"),
		WithBaseURL(srv.URL),
		WithRetry(2, 10*time.Millisecond),
	)
	return c, srv
}

func TestNearestExpiry(t *testing.T) {
	future1 := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	future2 := time.Now().AddDate(0, 0, 14).Format("2006-01-02")

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/option/contract", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "NSE_INDEX|Nifty 50", r.URL.Query().Get("instrument_key"))
		fmt.Fprintf(w, `{"status":"success","data":[
            {"expiry":"%s"},
            {"expiry":"2020-01-02"},
            {"expiry":"%s"}
        ]}`, future2, future1)
	}))

	expiry, err := c.NearestExpiry(context.Background(), "NSE_INDEX|Nifty 50")
	require.NoError(t, err)
	assert.Equal(t, future1, expiry, "past expiries are skipped, earliest future wins")
}

func TestNearestExpiryNoneUpcoming(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":[{"expiry":"2020-01-02"}]}`)
	}))
	_, err := c.NearestExpiry(context.Background(), "NSE_INDEX|Nifty 50")
	assert.Error(t, err)
}

func TestOptionChainMapping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/option/chain", r.URL.Path)
		assert.Equal(t, "2025-03-13", r.URL.Query().Get("expiry_date"))
		fmt.Fprint(w, `{"status":"success","data":[
            {"strike_price":0},
            {"strike_price":20000,"underlying_spot_price":20010,
             "call_options":{"market_data":{"ltp":120.5,"volume":1000,"oi":5000,"prev_oi":4500},
                             "option_greeks":{"iv":14.2,"delta":0.52,"gamma":0.003}},
             "put_options":{"market_data":{"ltp":95.25,"volume":800,"oi":6000,"prev_oi":6400},
                            "option_greeks":{"iv":16.1,"delta":-0.48,"gamma":0.0031}}}
        ]}`)
	}))

	chain, err := c.OptionChain(context.Background(), "NIFTY", "NSE_INDEX|Nifty 50", "2025-03-13")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY", chain.Symbol)
	assert.Equal(t, 20010.0, chain.SpotPrice)
	require.Len(t, chain.Rows, 1, "placeholder strike rows are dropped")

	row := chain.Rows[0]
	assert.Equal(t, 20000.0, row.Strike)
	assert.Equal(t, 5000.0, row.CEOI)
	assert.Equal(t, 500.0, row.CEChgOI)
	assert.Equal(t, -400.0, row.PEChgOI)
	assert.Equal(t, 14.2, row.CEIV)
	assert.Equal(t, 0.003, row.CEGamma)
	assert.Equal(t, -0.48, row.PEDelta)
}

func TestRateLimitRetry(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// the broker reports rate limiting inside a 200 envelope
			fmt.Fprint(w, `{"status":"error","errors":[{"errorCode":"UDAPI10005","message":"Too Many Request Sent"}]}`)
			return
		}
		fmt.Fprint(w, `{"status":"success","data":[{"expiry":"2099-01-07"}]}`)
	}))

	expiry, err := c.NearestExpiry(context.Background(), "NSE_INDEX|Nifty 50")
	require.NoError(t, err)
	assert.Equal(t, "2099-01-07", expiry)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRateLimitExhausted(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := c.NearestExpiry(context.Background(), "NSE_INDEX|Nifty 50")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTokenManagerRefresh(t *testing.T) {
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))
		assert.Equal(t, "client", r.FormValue("client_id"))
		fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-2","expires_in":3600}`)
	}))
	defer srv.Close()

	m := NewTokenManager(pkghttp.NewClient(), "client", "secret", "refresh-1", WithTokenURL(srv.URL))

	tok, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)

	// second call hits the cache
	tok, err = m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, "refresh-2", m.refreshToken, "rotated refresh token is kept")
}

func TestStaticTokenEmpty(t *testing.T) {
	_, err := StaticToken("").AccessToken(context.Background())
	assert.Error(t, err)
}
