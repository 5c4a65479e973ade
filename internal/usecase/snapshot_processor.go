package usecase

import (
	"context"
	"fmt"
	"time"

	"GammaPulse/internal/domain/models"
	drepo "GammaPulse/internal/domain/repository"
)

// SnapshotProcessor routes built snapshots to the configured backend and
// enqueues a detector scan once the snapshot is durable. With the kafka
// backend the scan is enqueued by the consumer after the store, not here.
type SnapshotProcessor struct {
	pub     drepo.SnapshotPublisher
	store   drepo.SnapshotStore
	scans   drepo.ScanQueue
	metrics drepo.Metrics
	backend string
}

// NewSnapshotProcessor creates a new SnapshotProcessor instance.
func NewSnapshotProcessor(
	pub drepo.SnapshotPublisher,
	store drepo.SnapshotStore,
	scans drepo.ScanQueue,
	metrics drepo.Metrics,
	backend string,
) *SnapshotProcessor {
	return &SnapshotProcessor{
		pub:     pub,
		store:   store,
		scans:   scans,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single snapshot to the configured backend.
func (p *SnapshotProcessor) Process(ctx context.Context, s *models.MarketSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, s)
	case "clickhouse":
		err = p.store.Store(ctx, s)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process snapshot: %w", err)
	}

	p.metrics.RecordSnapshotStored(p.backend, s.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	if p.backend == "clickhouse" && p.scans != nil {
		if err := p.scans.Enqueue(ctx, &models.ScanJob{Symbol: s.Symbol, Expiry: s.Expiry}); err != nil {
			p.metrics.RecordError("scan_enqueue")
		}
	}
	return nil
}

// ProcessBatch routes multiple snapshots in a batch.
func (p *SnapshotProcessor) ProcessBatch(ctx context.Context, snaps []*models.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, snaps)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, snaps)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, s := range snaps {
		p.metrics.RecordSnapshotStored(p.backend, s.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	if p.backend == "clickhouse" && p.scans != nil {
		for _, s := range snaps {
			if err := p.scans.Enqueue(ctx, &models.ScanJob{Symbol: s.Symbol, Expiry: s.Expiry}); err != nil {
				p.metrics.RecordError("scan_enqueue")
			}
		}
	}
	return nil
}

// Close closes underlying resources if available.
func (p *SnapshotProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
