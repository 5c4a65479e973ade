package usecase

import (
	"context"
	"sync"
	"time"

	"GammaPulse/internal/domain/models"
)

type fakeSnapshotStore struct {
	mu      sync.Mutex
	window  []models.MarketSnapshot
	stored  []*models.MarketSnapshot
	failure error
}

func (f *fakeSnapshotStore) Init(context.Context) error { return nil }

func (f *fakeSnapshotStore) Store(_ context.Context, s *models.MarketSnapshot) error {
	if f.failure != nil {
		return f.failure
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, s)
	return nil
}

func (f *fakeSnapshotStore) StoreBatch(ctx context.Context, snaps []*models.MarketSnapshot) error {
	for _, s := range snaps {
		if err := f.Store(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSnapshotStore) LatestSnapshots(_ context.Context, symbol, expiry string, n int) ([]models.MarketSnapshot, error) {
	if n > len(f.window) {
		n = len(f.window)
	}
	return f.window[:n], nil
}

func (f *fakeSnapshotStore) Query(context.Context, string, time.Time, time.Time, int) ([]models.MarketSnapshot, error) {
	return f.window, nil
}

func (f *fakeSnapshotStore) Health(context.Context) error { return nil }
func (f *fakeSnapshotStore) Close() error                 { return nil }

type fakeSignalStore struct {
	mu     sync.Mutex
	stored []*models.GammaBlastSignal
	latest *models.GammaBlastSignal

	latestCalls int
}

func (f *fakeSignalStore) Init(context.Context) error { return nil }

func (f *fakeSignalStore) Store(_ context.Context, sig *models.GammaBlastSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, sig)
	f.latest = sig
	return nil
}

func (f *fakeSignalStore) Latest(context.Context, string, string) (*models.GammaBlastSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	return f.latest, nil
}

func (f *fakeSignalStore) TopBlasts(_ context.Context, limit int) ([]models.GammaBlastSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GammaBlastSignal, 0, len(f.stored))
	for _, s := range f.stored {
		out = append(out, *s)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSignalStore) Health(context.Context) error { return nil }
func (f *fakeSignalStore) Close() error                 { return nil }

type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counters: make(map[string]int)} }

func (m *fakeMetrics) bump(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
}

func (m *fakeMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func (m *fakeMetrics) RecordSnapshotStored(backend, _ string) { m.bump("stored_" + backend) }
func (m *fakeMetrics) RecordError(kind string)                { m.bump("error_" + kind) }
func (m *fakeMetrics) RecordSpotPrice(string, float64)        { m.bump("spot") }
func (m *fakeMetrics) RecordBlastProbability(string, float64) { m.bump("probability") }
func (m *fakeMetrics) RecordSignal(_, confidence string)      { m.bump("signal_" + confidence) }
func (m *fakeMetrics) RecordLatency(op string, _ float64)     { m.bump("latency_" + op) }

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.MarketSnapshot
}

func (f *fakePublisher) Publish(_ context.Context, s *models.MarketSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, s)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, snaps []*models.MarketSnapshot) error {
	for _, s := range snaps {
		if err := f.Publish(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeScanQueue struct {
	mu   sync.Mutex
	jobs []*models.ScanJob
}

func (f *fakeScanQueue) Enqueue(_ context.Context, job *models.ScanJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeScanQueue) Close() error { return nil }

type fakeFetcher struct {
	expiry      string
	chain       models.OptionChain
	expiryCalls int
	chainCalls  int
}

func (f *fakeFetcher) NearestExpiry(context.Context, string) (string, error) {
	f.expiryCalls++
	return f.expiry, nil
}

func (f *fakeFetcher) OptionChain(_ context.Context, symbol, _, expiry string) (models.OptionChain, error) {
	f.chainCalls++
	c := f.chain
	c.Symbol = symbol
	c.Expiry = expiry
	return c, nil
}
