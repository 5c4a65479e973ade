package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GammaPulse/internal/domain/models"
	"GammaPulse/internal/domain/repository"
	pkgch "GammaPulse/pkg/clickhouse"
	applogger "GammaPulse/pkg/logger"
)

const snapshotColumns = "ts, symbol, expiry, atm_iv, atm_oi, gamma_concentration, net_gex, spot_price, atm_strike, ce_oi_total, pe_oi_total, ce_iv_avg, pe_iv_avg"

// ClickHouseSnapshotStore implements SnapshotStore over the shared ClickHouse
// connection pool.
type ClickHouseSnapshotStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseSnapshotStore(ch *pkgch.Client, table string) *ClickHouseSnapshotStore {
	return &ClickHouseSnapshotStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseSnapshotStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSnapshotStore) Store(ctx context.Context, snap *models.MarketSnapshot) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, snapshotColumns)
	_, err := s.db.ExecContext(ctx, q, snapshotArgs(snap)...)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *ClickHouseSnapshotStore) StoreBatch(ctx context.Context, snaps []*models.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	const chunkSize = 1000
	for start := 0; start < len(snaps); start += chunkSize {
		end := start + chunkSize
		if end > len(snaps) {
			end = len(snaps)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, snap := range snaps[start:end] {
			if snap == nil || snap.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, snapshotArgs(snap)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, snapshotColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert snapshot batch: %w", err)
		}
	}
	return nil
}

// LatestSnapshots returns up to n rows for (symbol, expiry), newest first.
// The ordering is what the detector expects for its history window.
func (s *ClickHouseSnapshotStore) LatestSnapshots(ctx context.Context, symbol, expiry string, n int) ([]models.MarketSnapshot, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ? AND expiry = ?
        ORDER BY ts DESC
        LIMIT ?
    `, snapshotColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, expiry, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_snapshots query error",
				applogger.String("symbol", symbol),
				applogger.String("expiry", expiry),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.MarketSnapshot, 0, n)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_snapshots ok",
			applogger.String("symbol", symbol),
			applogger.String("expiry", expiry),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseSnapshotStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.MarketSnapshot, error) {
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `, snapshotColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.MarketSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // Managed by pkg
}

func snapshotArgs(snap *models.MarketSnapshot) []interface{} {
	return []interface{}{
		snap.Timestamp,
		snap.Symbol,
		snap.Expiry,
		snap.ATMIV,
		snap.ATMOI,
		snap.GammaConcentration,
		snap.NetGEX,
		snap.SpotPrice,
		snap.ATMStrike,
		snap.CEOITotal,
		snap.PEOITotal,
		snap.CEIVAvg,
		snap.PEIVAvg,
	}
}

func scanSnapshot(rows *sql.Rows) (models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	err := rows.Scan(
		&snap.Timestamp,
		&snap.Symbol,
		&snap.Expiry,
		&snap.ATMIV,
		&snap.ATMOI,
		&snap.GammaConcentration,
		&snap.NetGEX,
		&snap.SpotPrice,
		&snap.ATMStrike,
		&snap.CEOITotal,
		&snap.PEOITotal,
		&snap.CEIVAvg,
		&snap.PEIVAvg,
	)
	return snap, err
}

var _ repository.SnapshotStore = (*ClickHouseSnapshotStore)(nil)
