package usecase

import (
	"context"
	"encoding/json"
	"time"

	"GammaPulse/internal/domain/models"
	domrepo "GammaPulse/internal/domain/repository"
	pkgkafka "GammaPulse/pkg/kafka"
)

// KafkaSnapshotsHandler consumes snapshot messages, writes them to storage
// and enqueues a detector scan for the chain.
type KafkaSnapshotsHandler struct {
	topic   string
	storage domrepo.SnapshotStore
	scans   domrepo.ScanQueue
	metrics domrepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, storage domrepo.SnapshotStore, scans domrepo.ScanQueue, metrics domrepo.Metrics) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, storage: storage, scans: scans, metrics: metrics}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

// Handle expects the MarketSnapshot JSON envelope produced by the publisher.
func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.MarketSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if !snap.Timestamp.IsZero() {
		// E2E latency from snapshot time to now (approx)
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(snap.Timestamp).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &snap)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSnapshotStored("clickhouse", snap.Symbol)

	if h.scans != nil {
		if err := h.scans.Enqueue(ctx, &models.ScanJob{Symbol: snap.Symbol, Expiry: snap.Expiry}); err != nil {
			h.metrics.RecordError("scan_enqueue")
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
