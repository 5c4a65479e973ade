package repository

import (
	"context"

	"GammaPulse/internal/domain/models"
)

// MarketStream is a live spot-price feed. Read returns fan-in channels owned
// by the implementation; both close when the stream shuts down.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, instrumentKeys []string) error
	Read(ctx context.Context) (<-chan *models.SpotTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SnapshotPublisher pushes snapshots onto the message bus.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.MarketSnapshot) error
	PublishBatch(ctx context.Context, snaps []*models.MarketSnapshot) error
	Close() error
}

// ScanQueue enqueues detector scan jobs decoupled from the polling loop.
type ScanQueue interface {
	Enqueue(ctx context.Context, job *models.ScanJob) error
	Close() error
}

type Metrics interface {
	RecordSnapshotStored(backend, symbol string)
	RecordError(kind string)
	RecordSpotPrice(symbol string, price float64)
	RecordBlastProbability(symbol string, probability float64)
	RecordSignal(symbol, confidence string)
	RecordLatency(op string, seconds float64)
}
