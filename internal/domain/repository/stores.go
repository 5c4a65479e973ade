package repository

import (
	"context"
	"time"

	"GammaPulse/internal/domain/models"
)

// SnapshotStore persists market snapshots and serves the rolling windows the
// detector reads.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.MarketSnapshot) error
	StoreBatch(ctx context.Context, snaps []*models.MarketSnapshot) error
	// LatestSnapshots returns up to n snapshots for (symbol, expiry) ordered
	// newest first.
	LatestSnapshots(ctx context.Context, symbol, expiry string, n int) ([]models.MarketSnapshot, error)
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.MarketSnapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalStore persists emitted gamma blast signals.
type SignalStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, sig *models.GammaBlastSignal) error
	Latest(ctx context.Context, symbol, expiry string) (*models.GammaBlastSignal, error)
	// TopBlasts returns the highest-probability signals of the current
	// session, one row per (symbol, expiry), descending.
	TopBlasts(ctx context.Context, limit int) ([]models.GammaBlastSignal, error)
	Health(ctx context.Context) error
	Close() error
}
