package upstox

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkghttp "GammaPulse/pkg/http"
	applogger "GammaPulse/pkg/logger"
)

const defaultTokenURL = DefaultBaseURL + "/login/authorization/token"

// refreshMargin renews the token this long before its reported expiry.
const refreshMargin = 5 * time.Minute

// TokenManager is a TokenSource that exchanges a long-lived refresh token for
// access tokens and caches them until shortly before expiry. Safe for
// concurrent use.
type TokenManager struct {
	http         *pkghttp.Client
	tokenURL     string
	clientID     string
	clientSecret string
	l            *applogger.Logger

	mu           sync.Mutex
	refreshToken string
	accessToken  string
	expiresAt    time.Time
}

// TokenOption configures TokenManager.
type TokenOption func(*TokenManager)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) TokenOption {
	return func(m *TokenManager) { m.tokenURL = u }
}

// WithTokenLogger injects a structured logger.
func WithTokenLogger(l *applogger.Logger) TokenOption {
	return func(m *TokenManager) { m.l = l }
}

func NewTokenManager(httpClient *pkghttp.Client, clientID, clientSecret, refreshToken string, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		http:         httpClient,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccessToken returns a cached token or refreshes it when stale.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Now().Before(m.expiresAt.Add(-refreshMargin)) {
		return m.accessToken, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.accessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (m *TokenManager) refreshLocked(ctx context.Context) error {
	if m.refreshToken == "" {
		return fmt.Errorf("upstox: refresh token not configured")
	}

	var out tokenResponse
	err := m.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    m.tokenURL,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
		},
		Body: map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": m.refreshToken,
			"client_id":     m.clientID,
			"client_secret": m.clientSecret,
		},
	}, &out)
	if err != nil {
		return fmt.Errorf("refresh token exchange: %w", err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("refresh token exchange: empty access token")
	}

	m.accessToken = out.AccessToken
	if out.RefreshToken != "" {
		m.refreshToken = out.RefreshToken
	}
	// Upstox access tokens last until the next market morning; fall back to
	// a conservative window when the response omits expires_in.
	ttl := 12 * time.Hour
	if out.ExpiresIn > 0 {
		ttl = time.Duration(out.ExpiresIn) * time.Second
	}
	m.expiresAt = time.Now().Add(ttl)

	if m.l != nil {
		m.l.Info("upstox access token refreshed",
			applogger.Duration("ttl_ms", ttl),
		)
	}
	return nil
}
