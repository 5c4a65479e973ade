package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
	"GammaPulse/pkg/cache"
)

func testChain() models.OptionChain {
	return models.OptionChain{
		SpotPrice: 20010,
		FetchedAt: time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC),
		Rows: []models.OptionChainRow{
			{Strike: 19950, CEOI: 2000, PEOI: 3000, CEIV: 15, PEIV: 17, CEGamma: 0.002, PEGamma: 0.002},
			{Strike: 20000, CEOI: 5000, PEOI: 5000, CEIV: 14, PEIV: 16, CEGamma: 0.003, PEGamma: 0.003},
			{Strike: 20050, CEOI: 3000, PEOI: 2000, CEIV: 15, PEIV: 17, CEGamma: 0.002, PEGamma: 0.002},
		},
	}
}

func newTestCollector(fetcher *fakeFetcher) (*ChainCollector, *fakeSnapshotStore, *fakeScanQueue) {
	store := &fakeSnapshotStore{}
	scans := &fakeScanQueue{}
	metrics := newFakeMetrics()
	proc := NewSnapshotProcessor(nil, store, scans, metrics, "clickhouse")
	symbols := []SymbolConfig{{Name: "NIFTY", InstrumentKey: "NSE_INDEX|Nifty 50"}}
	c := NewChainCollector(fetcher, proc, nil, cache.NewMemoryCache(), metrics, symbols, time.Minute,
		WithForceRun(true),
	)
	return c, store, scans
}

func TestCollectRoundStoresSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{expiry: "2025-03-13", chain: testChain()}
	c, store, scans := newTestCollector(fetcher)

	c.collectAll(context.Background())

	require.Len(t, store.stored, 1)
	snap := store.stored[0]
	assert.Equal(t, "NIFTY", snap.Symbol)
	assert.Equal(t, "2025-03-13", snap.Expiry)
	assert.Equal(t, 20000.0, snap.ATMStrike)

	require.Len(t, scans.jobs, 1)
	assert.Equal(t, &models.ScanJob{Symbol: "NIFTY", Expiry: "2025-03-13"}, scans.jobs[0])
}

func TestCollectCachesExpiry(t *testing.T) {
	fetcher := &fakeFetcher{expiry: "2025-03-13", chain: testChain()}
	c, store, _ := newTestCollector(fetcher)

	c.collectAll(context.Background())
	c.collectAll(context.Background())

	assert.Equal(t, 1, fetcher.expiryCalls, "expiry resolution is cached between rounds")
	assert.Equal(t, 2, fetcher.chainCalls)
	assert.Len(t, store.stored, 2)
}

func TestCollectDegenerateChain(t *testing.T) {
	fetcher := &fakeFetcher{expiry: "2025-03-13", chain: models.OptionChain{SpotPrice: 20010}}
	c, store, scans := newTestCollector(fetcher)

	c.collectAll(context.Background())

	assert.Empty(t, store.stored)
	assert.Empty(t, scans.jobs)
}

func TestCollectFillsSpotFromFeed(t *testing.T) {
	chain := testChain()
	chain.SpotPrice = 0
	fetcher := &fakeFetcher{expiry: "2025-03-13", chain: chain}
	c, store, _ := newTestCollector(fetcher)
	c.spots["NIFTY"] = 20010

	c.collectAll(context.Background())

	require.Len(t, store.stored, 1)
	assert.Equal(t, 20010.0, store.stored[0].SpotPrice)
}
