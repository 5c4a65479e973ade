package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/services/blast"
	"GammaPulse/pkg/cache"
)

func snapshotWindow(n int) []models.MarketSnapshot {
	base := time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC)
	out := make([]models.MarketSnapshot, n)
	for i := range out {
		out[i] = models.MarketSnapshot{
			Timestamp:          base.Add(-time.Duration(i) * 3 * time.Minute),
			Symbol:             "NIFTY",
			Expiry:             "2025-03-13",
			ATMIV:              20 + float64(i%3),
			ATMOI:              100000,
			GammaConcentration: 0.3,
			NetGEX:             float64(1000 * (i + 1)),
			SpotPrice:          20000,
			ATMStrike:          20300,
			CEOITotal:          100000,
			PEOITotal:          100000,
			CEIVAvg:            18,
			PEIVAvg:            18,
		}
	}
	return out
}

func newTestScanner(window []models.MarketSnapshot) (*BlastScanner, *fakeSnapshotStore, *fakeSignalStore, *fakeMetrics) {
	snaps := &fakeSnapshotStore{window: window}
	signals := &fakeSignalStore{}
	metrics := newFakeMetrics()
	scanner := NewBlastScanner(snaps, signals, blast.NewDetector(), cache.NewMemoryCache(), metrics)
	return scanner, snaps, signals, metrics
}

func TestScanStoresAndCaches(t *testing.T) {
	scanner, _, signals, metrics := newTestScanner(snapshotWindow(21))

	sig, err := scanner.Scan(context.Background(), "NIFTY", "2025-03-13")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY", sig.Symbol)
	assert.Equal(t, "2025-03-13", sig.Expiry)
	require.Len(t, signals.stored, 1)
	assert.Equal(t, 1, metrics.count("probability"))
	assert.Equal(t, 1, metrics.count("signal_"+string(sig.Confidence)))

	cached, ok := scanner.Cached(context.Background(), "NIFTY", "2025-03-13")
	require.True(t, ok)
	assert.Equal(t, sig.Probability, cached.Probability)
	assert.Equal(t, sig.Direction, cached.Direction)
}

func TestScanShortWindowUsesFallback(t *testing.T) {
	scanner, _, _, _ := newTestScanner(snapshotWindow(3))

	sig, err := scanner.Scan(context.Background(), "NIFTY", "2025-03-13")
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceLow, sig.Confidence)
	assert.Equal(t, models.DirectionNeutral, sig.Direction)
}

func TestScanNoSnapshots(t *testing.T) {
	scanner, _, _, _ := newTestScanner(nil)

	_, err := scanner.Scan(context.Background(), "NIFTY", "2025-03-13")
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestSignalServesCacheFirst(t *testing.T) {
	scanner, _, signals, _ := newTestScanner(snapshotWindow(21))

	_, err := scanner.Scan(context.Background(), "NIFTY", "2025-03-13")
	require.NoError(t, err)

	_, err = scanner.Signal(context.Background(), "NIFTY", "2025-03-13", false)
	require.NoError(t, err)
	assert.Len(t, signals.stored, 1, "cached signal must not trigger a rescan")
	assert.Equal(t, 0, signals.latestCalls)
}

func TestSignalFreshForcesRescan(t *testing.T) {
	scanner, _, signals, _ := newTestScanner(snapshotWindow(21))

	_, err := scanner.Signal(context.Background(), "NIFTY", "2025-03-13", true)
	require.NoError(t, err)
	_, err = scanner.Signal(context.Background(), "NIFTY", "2025-03-13", true)
	require.NoError(t, err)
	assert.Len(t, signals.stored, 2)
}

func TestSignalFallsBackToStore(t *testing.T) {
	scanner, _, signals, _ := newTestScanner(snapshotWindow(21))
	seeded := &models.GammaBlastSignal{Symbol: "NIFTY", Expiry: "2025-03-13", Probability: 0.5}
	signals.latest = seeded

	got, err := scanner.Signal(context.Background(), "NIFTY", "2025-03-13", false)
	require.NoError(t, err)
	assert.Equal(t, seeded, got)
	assert.Empty(t, signals.stored, "store hit must not trigger a rescan")
}
