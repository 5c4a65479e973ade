package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/domain/repository"
	pkgch "GammaPulse/pkg/clickhouse"
	applogger "GammaPulse/pkg/logger"
)

const signalColumns = "ts, symbol, expiry, probability, direction, confidence, time_to_blast_min, triggers"

// ClickHouseSignalStore implements SignalStore.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseSignalStore(ch *pkgch.Client, table string) *ClickHouseSignalStore {
	return &ClickHouseSignalStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSignalStore) Store(ctx context.Context, sig *models.GammaBlastSignal) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table, signalColumns)
	_, err := s.db.ExecContext(ctx, q,
		sig.Timestamp,
		sig.Symbol,
		sig.Expiry,
		sig.Probability,
		string(sig.Direction),
		string(sig.Confidence),
		int32(sig.TimeToBlastMin),
		sig.Triggers,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert_signal error",
				applogger.String("symbol", sig.Symbol),
				applogger.String("expiry", sig.Expiry),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalStore) Latest(ctx context.Context, symbol, expiry string) (*models.GammaBlastSignal, error) {
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ? AND expiry = ?
        ORDER BY ts DESC
        LIMIT 1
    `, signalColumns, s.table)
	row := s.db.QueryRowContext(ctx, q, symbol, expiry)
	sig, err := scanSignalRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest signal: %w", err)
	}
	return sig, nil
}

// TopBlasts returns the most recent signal per (symbol, expiry) for the
// current session, highest probability first.
func (s *ClickHouseSignalStore) TopBlasts(ctx context.Context, limit int) ([]models.GammaBlastSignal, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s FROM (
            SELECT %s
            FROM %s
            WHERE ts >= today()
            ORDER BY ts DESC
            LIMIT 1 BY symbol, expiry
        )
        ORDER BY probability DESC
        LIMIT ?
    `, signalColumns, signalColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("top blasts: %w", err)
	}
	defer rows.Close()

	out := make([]models.GammaBlastSignal, 0, limit)
	for rows.Next() {
		sig, err := scanSignalRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse top_blasts ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

func scanSignalRow(scan func(dest ...interface{}) error) (*models.GammaBlastSignal, error) {
	var (
		sig         models.GammaBlastSignal
		direction   string
		confidence  string
		timeToBlast int32
	)
	if err := scan(
		&sig.Timestamp,
		&sig.Symbol,
		&sig.Expiry,
		&sig.Probability,
		&direction,
		&confidence,
		&timeToBlast,
		&sig.Triggers,
	); err != nil {
		return nil, err
	}
	sig.Direction = models.Direction(direction)
	sig.Confidence = models.Confidence(confidence)
	sig.RiskLevel = sig.Confidence
	sig.TimeToBlastMin = int(timeToBlast)
	return &sig, nil
}

var _ repository.SignalStore = (*ClickHouseSignalStore)(nil)
