package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GammaPulse/internal/domain/models"
	drepo "GammaPulse/internal/domain/repository"
	mid "GammaPulse/internal/middleware"
	"GammaPulse/internal/service/upstox"
	chainsvc "GammaPulse/internal/services/chain"
	"GammaPulse/pkg/cache"
	applogger "GammaPulse/pkg/logger"
)

// ChainFetcher is the broker surface the collector needs.
type ChainFetcher interface {
	NearestExpiry(ctx context.Context, instrumentKey string) (string, error)
	OptionChain(ctx context.Context, symbol, instrumentKey, expiry string) (models.OptionChain, error)
}

// SymbolConfig binds a display symbol to its broker instrument key.
type SymbolConfig struct {
	Name          string
	InstrumentKey string
}

// CollectorOption configures ChainCollector.
type CollectorOption func(*ChainCollector)

// WithMarketStream attaches a live spot feed; the collector uses it to fill
// spot prices when the chain response lacks one.
func WithMarketStream(stream drepo.MarketStream) CollectorOption {
	return func(c *ChainCollector) { c.stream = stream }
}

// WithForceRun disables the market-hours gate (testing, replay).
func WithForceRun(force bool) CollectorOption {
	return func(c *ChainCollector) { c.forceRun = force }
}

// WithExpiryTTL overrides how long resolved expiries are cached.
func WithExpiryTTL(ttl time.Duration) CollectorOption {
	return func(c *ChainCollector) { c.expiryTTL = ttl }
}

// WithCollectorLogger injects a structured logger.
func WithCollectorLogger(l *applogger.Logger) CollectorOption {
	return func(c *ChainCollector) { c.l = l }
}

// ChainCollector polls the broker for option chains of the configured
// symbols, builds snapshots, and pushes them through the ingest pipeline.
// Outside NSE trading hours the loop idles.
type ChainCollector struct {
	fetcher   ChainFetcher
	pipe      *mid.IngestPipeline
	proc      *SnapshotProcessor
	stream    drepo.MarketStream
	cache     cache.Service
	metrics   drepo.Metrics
	l         *applogger.Logger
	symbols   []SymbolConfig
	interval  time.Duration
	expiryTTL time.Duration
	forceRun  bool

	mu    sync.RWMutex
	spots map[string]float64
	stop  chan struct{}
	once  sync.Once
}

// NewChainCollector creates a new ChainCollector instance.
func NewChainCollector(
	fetcher ChainFetcher,
	proc *SnapshotProcessor,
	pipe *mid.IngestPipeline,
	expiryCache cache.Service,
	metrics drepo.Metrics,
	symbols []SymbolConfig,
	interval time.Duration,
	opts ...CollectorOption,
) *ChainCollector {
	c := &ChainCollector{
		fetcher:   fetcher,
		proc:      proc,
		pipe:      pipe,
		cache:     expiryCache,
		metrics:   metrics,
		symbols:   symbols,
		interval:  interval,
		expiryTTL: time.Hour,
		spots:     make(map[string]float64),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the polling loop and, when configured, the spot feed.
func (c *ChainCollector) Start(ctx context.Context) error {
	if len(c.symbols) == 0 {
		return fmt.Errorf("chain collector: no symbols configured")
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	if c.stream != nil {
		if err := c.startStream(ctx); err != nil {
			// the REST chain carries its own spot; the feed is best effort
			if c.l != nil {
				c.l.Warn("spot feed unavailable, using chain spot prices", applogger.Error(err))
			}
			c.metrics.RecordError("spot_feed_connect")
		}
	}
	go c.pollLoop(ctx)
	return nil
}

func (c *ChainCollector) startStream(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	keys := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		keys = append(keys, s.InstrumentKey)
	}
	if err := c.stream.Subscribe(ctx, keys); err != nil {
		return err
	}
	ticks, errs := c.stream.Read(ctx)
	go c.consumeTicks(ctx, ticks, errs)
	return nil
}

func (c *ChainCollector) consumeTicks(ctx context.Context, ticks <-chan *models.SpotTick, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case err := <-errs:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-ticks:
			if t == nil {
				continue
			}
			c.mu.Lock()
			c.spots[t.Symbol] = t.Price
			c.mu.Unlock()
			c.metrics.RecordSpotPrice(t.Symbol, t.Price)
		}
	}
}

func (c *ChainCollector) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// first round immediately, then on the ticker
	c.collectAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.collectAll(ctx)
		}
	}
}

func (c *ChainCollector) collectAll(ctx context.Context) {
	if !c.forceRun && !upstox.IsMarketOpen(time.Now()) {
		if c.l != nil {
			c.l.Debug("market closed, skipping collection round")
		}
		return
	}
	for _, sym := range c.symbols {
		if err := c.collectOne(ctx, sym); err != nil {
			c.metrics.RecordError("collect")
			if c.l != nil {
				c.l.Warn("chain collection failed",
					applogger.String("symbol", sym.Name),
					applogger.Error(err),
				)
			}
		}
	}
}

func (c *ChainCollector) collectOne(ctx context.Context, sym SymbolConfig) error {
	expiry, err := c.resolveExpiry(ctx, sym)
	if err != nil {
		return fmt.Errorf("resolve expiry: %w", err)
	}

	fetched, err := c.fetcher.OptionChain(ctx, sym.Name, sym.InstrumentKey, expiry)
	if err != nil {
		return fmt.Errorf("fetch chain: %w", err)
	}
	if fetched.SpotPrice <= 0 {
		c.mu.RLock()
		fetched.SpotPrice = c.spots[sym.Name]
		c.mu.RUnlock()
	}

	snap, ok := chainsvc.BuildSnapshot(fetched)
	if !ok {
		c.metrics.RecordError("build_snapshot")
		return fmt.Errorf("degenerate chain for %s %s", sym.Name, expiry)
	}

	if c.pipe != nil {
		return c.pipe.Process(ctx, &snap)
	}
	return c.proc.Process(ctx, &snap)
}

// resolveExpiry returns the nearest expiry, cached for expiryTTL so the
// contracts endpoint is not hammered every polling round.
func (c *ChainCollector) resolveExpiry(ctx context.Context, sym SymbolConfig) (string, error) {
	key := "expiry:" + sym.InstrumentKey

	var cached string
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, &cached); err == nil && cached != "" {
			return cached, nil
		}
	}

	expiry, err := c.fetcher.NearestExpiry(ctx, sym.InstrumentKey)
	if err != nil {
		return "", err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, expiry, c.expiryTTL); err != nil {
			c.metrics.RecordError("expiry_cache_set")
		}
	}
	return expiry, nil
}

// ExpiryFor resolves the active expiry for a configured symbol, hitting the
// same cache as the polling loop.
func (c *ChainCollector) ExpiryFor(ctx context.Context, symbol string) (string, error) {
	for _, s := range c.symbols {
		if s.Name == symbol {
			return c.resolveExpiry(ctx, s)
		}
	}
	return "", fmt.Errorf("unknown symbol: %s", symbol)
}

// Symbols lists the configured display symbols.
func (c *ChainCollector) Symbols() []string {
	out := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		out = append(out, s.Name)
	}
	return out
}

// IsConnected reports the spot feed state; true when no feed is configured.
func (c *ChainCollector) IsConnected() bool {
	if c.stream == nil {
		return true
	}
	return c.stream.IsConnected()
}

// Processor returns the underlying SnapshotProcessor for lifecycle management.
func (c *ChainCollector) Processor() *SnapshotProcessor { return c.proc }

// Shutdown stops the poll loop, pipeline and spot feed.
func (c *ChainCollector) Shutdown(ctx context.Context) error {
	c.once.Do(func() { close(c.stop) })
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if c.stream != nil {
		return c.stream.Close()
	}
	return nil
}
