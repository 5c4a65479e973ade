// Package upstox wraps the Upstox v2 REST API and market feed for option
// chain acquisition.
package upstox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/service/ratelimit"
	pkghttp "GammaPulse/pkg/http"
	applogger "GammaPulse/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.upstox.com/v2"

	// rateLimitErrorCode is Upstox's "Too Many Requests" application code,
	// sometimes returned with HTTP 200 on the error envelope.
	rateLimitErrorCode = "UDAPI10005"

	// REST quota is 50 req/s per token; we throttle well under it.
	throttleCapacity  = 10
	throttleRefillSec = 5
)

// ErrRateLimited is returned when retries are exhausted against the broker's
// rate limiter.
var ErrRateLimited = errors.New("upstox: rate limited")

// TokenSource yields a valid bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a pre-issued access token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("upstox: access token not configured")
	}
	return string(t), nil
}

// ClientOption configures Client.
type ClientOption func(*Client)

// Client calls the Upstox REST API with bearer auth, a local token-bucket
// throttle and exponential backoff on rate-limit responses.
type Client struct {
	http       *pkghttp.Client
	baseURL    string
	tokens     TokenSource
	limiter    *ratelimit.Limiter
	maxRetries int
	retryDelay time.Duration
	l          *applogger.Logger
}

func NewClient(httpClient *pkghttp.Client, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		http:       httpClient,
		baseURL:    DefaultBaseURL,
		tokens:     tokens,
		limiter:    ratelimit.New(),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL overrides the API host (tests, sandbox).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry sets the rate-limit retry budget and base delay.
func WithRetry(max int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryDelay = delay
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) { c.l = l }
}

type apiError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type contractEntry struct {
	Expiry        string `json:"expiry"`
	InstrumentKey string `json:"instrument_key"`
}

type contractsResponse struct {
	Status string          `json:"status"`
	Data   []contractEntry `json:"data"`
	Errors []apiError      `json:"errors"`
}

type legQuote struct {
	MarketData struct {
		LTP    float64 `json:"ltp"`
		Volume float64 `json:"volume"`
		OI     float64 `json:"oi"`
		PrevOI float64 `json:"prev_oi"`
	} `json:"market_data"`
	Greeks struct {
		IV    float64 `json:"iv"`
		Delta float64 `json:"delta"`
		Gamma float64 `json:"gamma"`
	} `json:"option_greeks"`
}

type strikeEntry struct {
	StrikePrice         float64  `json:"strike_price"`
	UnderlyingSpotPrice float64  `json:"underlying_spot_price"`
	CallOptions         legQuote `json:"call_options"`
	PutOptions          legQuote `json:"put_options"`
}

type chainResponse struct {
	Status string        `json:"status"`
	Data   []strikeEntry `json:"data"`
	Errors []apiError    `json:"errors"`
}

// NearestExpiry returns the earliest expiry date (YYYY-MM-DD) on or after
// today for the given underlying.
func (c *Client) NearestExpiry(ctx context.Context, instrumentKey string) (string, error) {
	var out contractsResponse
	err := c.getJSON(ctx, "/option/contract", map[string][]string{
		"instrument_key": {instrumentKey},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("option contracts %s: %w", instrumentKey, err)
	}

	today := time.Now().In(ISTLocation()).Format("2006-01-02")
	expiries := make([]string, 0, len(out.Data))
	for _, e := range out.Data {
		if e.Expiry >= today {
			expiries = append(expiries, e.Expiry)
		}
	}
	if len(expiries) == 0 {
		return "", fmt.Errorf("no upcoming expiry for %s", instrumentKey)
	}
	sort.Strings(expiries)
	return expiries[0], nil
}

// OptionChain fetches the put/call chain for one (underlying, expiry) and
// maps it into the domain model. Strikes with a non-positive price are
// dropped, matching the broker's occasional placeholder rows.
func (c *Client) OptionChain(ctx context.Context, symbol, instrumentKey, expiry string) (models.OptionChain, error) {
	var out chainResponse
	err := c.getJSON(ctx, "/option/chain", map[string][]string{
		"instrument_key": {instrumentKey},
		"expiry_date":    {expiry},
	}, &out)
	if err != nil {
		return models.OptionChain{}, fmt.Errorf("option chain %s %s: %w", symbol, expiry, err)
	}

	chain := models.OptionChain{
		Symbol:    symbol,
		Expiry:    expiry,
		FetchedAt: time.Now().UTC(),
		Rows:      make([]models.OptionChainRow, 0, len(out.Data)),
	}
	for _, e := range out.Data {
		if e.StrikePrice <= 0 {
			continue
		}
		if chain.SpotPrice == 0 && e.UnderlyingSpotPrice > 0 {
			chain.SpotPrice = e.UnderlyingSpotPrice
		}
		chain.Rows = append(chain.Rows, models.OptionChainRow{
			Strike:   e.StrikePrice,
			CEOI:     e.CallOptions.MarketData.OI,
			PEOI:     e.PutOptions.MarketData.OI,
			CEChgOI:  e.CallOptions.MarketData.OI - e.CallOptions.MarketData.PrevOI,
			PEChgOI:  e.PutOptions.MarketData.OI - e.PutOptions.MarketData.PrevOI,
			CEIV:     e.CallOptions.Greeks.IV,
			PEIV:     e.PutOptions.Greeks.IV,
			CELTP:    e.CallOptions.MarketData.LTP,
			PELTP:    e.PutOptions.MarketData.LTP,
			CEVolume: e.CallOptions.MarketData.Volume,
			PEVolume: e.PutOptions.MarketData.Volume,
			CEGamma:  e.CallOptions.Greeks.Gamma,
			PEGamma:  e.PutOptions.Greeks.Gamma,
			CEDelta:  e.CallOptions.Greeks.Delta,
			PEDelta:  e.PutOptions.Greeks.Delta,
		})
	}
	return chain, nil
}

// getJSON performs one throttled GET with bearer auth, retrying with
// exponential backoff on rate-limit responses.
func (c *Client) getJSON(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.throttle(ctx, path); err != nil {
			return err
		}

		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}

		resp, err := c.http.SendRequest(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    c.baseURL + path,
			Headers: map[string]string{
				"Authorization": "Bearer " + token,
				"Accept":        "application/json",
			},
			QueryParams: params,
		})
		if err != nil {
			return err
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read body: %w", readErr)
		}

		if isRateLimitResponse(resp.StatusCode, body) {
			wait := c.retryDelay << attempt
			if c.l != nil {
				c.l.Warn("upstox rate limited, backing off",
					applogger.String("path", path),
					applogger.Int("attempt", attempt+1),
					applogger.Duration("wait_ms", wait),
				)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
		}
		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	}
	return ErrRateLimited
}

// throttle blocks until the local token bucket admits one call for path.
func (c *Client) throttle(ctx context.Context, path string) error {
	for !c.limiter.Allow("upstox:"+path, throttleCapacity, throttleRefillSec) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

// isRateLimitResponse recognizes both the HTTP 429 form and the application
// error envelope the broker returns with a 2xx status.
func isRateLimitResponse(status int, body []byte) bool {
	if status == 429 {
		return true
	}
	var envelope struct {
		Errors []apiError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	for _, e := range envelope.Errors {
		if e.ErrorCode == rateLimitErrorCode || strings.Contains(e.Message, "Too Many Request") {
			return true
		}
	}
	return false
}
