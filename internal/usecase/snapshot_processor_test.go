package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/services/blast"
	"GammaPulse/pkg/cache"
)

func testSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Timestamp: time.Date(2025, 3, 12, 10, 30, 0, 0, time.UTC),
		Symbol:    "NIFTY",
		Expiry:    "2025-03-13",
		SpotPrice: 20010,
		ATMStrike: 20000,
	}
}

func TestProcessorKafkaRoute(t *testing.T) {
	pub := &fakePublisher{}
	scans := &fakeScanQueue{}
	p := NewSnapshotProcessor(pub, &fakeSnapshotStore{}, scans, newFakeMetrics(), "kafka")

	require.NoError(t, p.Process(context.Background(), testSnapshot()))
	assert.Len(t, pub.published, 1)
	assert.Empty(t, scans.jobs, "kafka route defers the scan to the consumer")
}

func TestProcessorClickhouseRoute(t *testing.T) {
	store := &fakeSnapshotStore{}
	scans := &fakeScanQueue{}
	p := NewSnapshotProcessor(&fakePublisher{}, store, scans, newFakeMetrics(), "clickhouse")

	require.NoError(t, p.Process(context.Background(), testSnapshot()))
	assert.Len(t, store.stored, 1)
	assert.Len(t, scans.jobs, 1)
}

func TestProcessorUnknownBackend(t *testing.T) {
	p := NewSnapshotProcessor(&fakePublisher{}, &fakeSnapshotStore{}, nil, newFakeMetrics(), "postgres")
	assert.Error(t, p.Process(context.Background(), testSnapshot()))
}

func TestProcessorNilSnapshot(t *testing.T) {
	p := NewSnapshotProcessor(&fakePublisher{}, &fakeSnapshotStore{}, nil, newFakeMetrics(), "kafka")
	assert.Error(t, p.Process(context.Background(), nil))
}

func TestKafkaSnapshotsHandler(t *testing.T) {
	store := &fakeSnapshotStore{}
	scans := &fakeScanQueue{}
	h := NewKafkaSnapshotsHandler("gammapulse.snapshots", store, scans, newFakeMetrics())

	b, err := json.Marshal(testSnapshot())
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), b))

	require.Len(t, store.stored, 1)
	assert.Equal(t, "NIFTY", store.stored[0].Symbol)
	require.Len(t, scans.jobs, 1)
	assert.Equal(t, "2025-03-13", scans.jobs[0].Expiry)
}

func TestKafkaSnapshotsHandlerBadPayload(t *testing.T) {
	h := NewKafkaSnapshotsHandler("gammapulse.snapshots", &fakeSnapshotStore{}, nil, newFakeMetrics())
	assert.Error(t, h.Handle(context.Background(), []byte("not json")))
}

func TestScanJobHandler(t *testing.T) {
	scanner, _, signals, _ := newTestScanner(snapshotWindow(21))
	job := NewScanJobHandler(scanner)

	assert.Equal(t, ScanJobType, job.Type())

	payload := map[string]interface{}{"symbol": "NIFTY", "expiry": "2025-03-13"}
	require.NoError(t, job.Handle(context.Background(), payload))
	assert.Len(t, signals.stored, 1)
}

func TestScanJobHandlerEmptyChainNotRetried(t *testing.T) {
	snaps := &fakeSnapshotStore{}
	scanner := NewBlastScanner(snaps, &fakeSignalStore{}, blast.NewDetector(), cache.NewMemoryCache(), newFakeMetrics())
	job := NewScanJobHandler(scanner)

	err := job.Handle(context.Background(), &models.ScanJob{Symbol: "NIFTY", Expiry: "2025-03-13"})
	assert.NoError(t, err, "missing chain is dropped, not retried")
}
