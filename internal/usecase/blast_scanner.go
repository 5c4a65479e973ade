package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GammaPulse/internal/domain/models"
	drepo "GammaPulse/internal/domain/repository"
	"GammaPulse/internal/services/blast"
	"GammaPulse/pkg/cache"
	applogger "GammaPulse/pkg/logger"
)

// ErrNoSnapshots is returned when a scan is requested for a chain that has
// no stored snapshots yet.
var ErrNoSnapshots = errors.New("no snapshots for chain")

// BlastScanner runs the detector over the stored window of a (symbol, expiry)
// chain, persists the resulting signal and caches it for the API.
type BlastScanner struct {
	snaps    drepo.SnapshotStore
	signals  drepo.SignalStore
	detector *blast.Detector
	cache    cache.Service
	metrics  drepo.Metrics
	l        *applogger.Logger
	cacheTTL time.Duration
}

// ScannerOption configures BlastScanner.
type ScannerOption func(*BlastScanner)

// WithSignalCacheTTL sets how long scan results are served from cache.
func WithSignalCacheTTL(ttl time.Duration) ScannerOption {
	return func(s *BlastScanner) { s.cacheTTL = ttl }
}

// WithScannerLogger injects a structured logger.
func WithScannerLogger(l *applogger.Logger) ScannerOption {
	return func(s *BlastScanner) { s.l = l }
}

// NewBlastScanner creates a new BlastScanner instance.
func NewBlastScanner(
	snaps drepo.SnapshotStore,
	signals drepo.SignalStore,
	detector *blast.Detector,
	signalCache cache.Service,
	metrics drepo.Metrics,
	opts ...ScannerOption,
) *BlastScanner {
	s := &BlastScanner{
		snaps:    snaps,
		signals:  signals,
		detector: detector,
		cache:    signalCache,
		metrics:  metrics,
		cacheTTL: 3 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func signalCacheKey(symbol, expiry string) string {
	return "blast:" + symbol + ":" + expiry
}

// Scan evaluates the freshest snapshot against its history window, stores
// the emitted signal and refreshes the cache.
func (s *BlastScanner) Scan(ctx context.Context, symbol, expiry string) (*models.GammaBlastSignal, error) {
	start := time.Now()
	window, err := s.snaps.LatestSnapshots(ctx, symbol, expiry, blast.MaxHistoryWindow+1)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoSnapshots, symbol, expiry)
	}

	sig := s.detector.Detect(window[0], window[1:])

	if err := s.signals.Store(ctx, &sig); err != nil {
		s.metrics.RecordError("signal_store")
		return nil, fmt.Errorf("store signal: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, signalCacheKey(symbol, expiry), &sig, s.cacheTTL); err != nil {
			s.metrics.RecordError("signal_cache_set")
		}
	}

	s.metrics.RecordBlastProbability(symbol, sig.Probability)
	s.metrics.RecordSignal(symbol, string(sig.Confidence))
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())

	if s.l != nil {
		s.l.Info("blast scan complete",
			applogger.String("symbol", symbol),
			applogger.String("expiry", expiry),
			applogger.Float64("probability", sig.Probability),
			applogger.String("direction", string(sig.Direction)),
			applogger.String("confidence", string(sig.Confidence)),
			applogger.Int("triggers", len(sig.Triggers)),
		)
	}
	return &sig, nil
}

// Cached returns the cached signal for the chain, if any.
func (s *BlastScanner) Cached(ctx context.Context, symbol, expiry string) (*models.GammaBlastSignal, bool) {
	if s.cache == nil {
		return nil, false
	}
	var sig models.GammaBlastSignal
	if err := s.cache.Get(ctx, signalCacheKey(symbol, expiry), &sig); err != nil {
		return nil, false
	}
	if sig.Symbol == "" {
		return nil, false
	}
	return &sig, true
}

// Signal serves the cached signal when fresh enough, falling back to the
// signal store, and finally to a live scan.
func (s *BlastScanner) Signal(ctx context.Context, symbol, expiry string, fresh bool) (*models.GammaBlastSignal, error) {
	if !fresh {
		if sig, ok := s.Cached(ctx, symbol, expiry); ok {
			return sig, nil
		}
		sig, err := s.signals.Latest(ctx, symbol, expiry)
		if err == nil && sig != nil {
			return sig, nil
		}
	}
	return s.Scan(ctx, symbol, expiry)
}

// TopBlasts returns today's highest-probability signals.
func (s *BlastScanner) TopBlasts(ctx context.Context, limit int) ([]models.GammaBlastSignal, error) {
	return s.signals.TopBlasts(ctx, limit)
}

// Snapshots exposes the raw window for dashboards.
func (s *BlastScanner) Snapshots(ctx context.Context, symbol, expiry string, n int) ([]models.MarketSnapshot, error) {
	return s.snaps.LatestSnapshots(ctx, symbol, expiry, n)
}

// History returns snapshots for a symbol over an arbitrary time range.
func (s *BlastScanner) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.MarketSnapshot, error) {
	return s.snaps.Query(ctx, symbol, from, to, limit)
}
