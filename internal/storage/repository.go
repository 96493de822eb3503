package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bankwatch/internal/config"
	"bankwatch/internal/panel"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertMetricSQL = `INSERT INTO bank_metrics (
        bank,
        day,
        savings_yield,
        loan_rate,
        maintenance_fee,
        promo_score,
        source
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (bank, day) DO UPDATE
    SET
        savings_yield   = EXCLUDED.savings_yield,
        loan_rate       = EXCLUDED.loan_rate,
        maintenance_fee = EXCLUDED.maintenance_fee,
        promo_score     = EXCLUDED.promo_score,
        source          = EXCLUDED.source;`

	listMetricsBetweenSQL = `SELECT
        bank,
        day,
        savings_yield::text,
        loan_rate::text,
        maintenance_fee::text,
        promo_score::text,
        source,
        created_at
    FROM bank_metrics
    WHERE day >= $1
      AND day <= $2
    ORDER BY bank, day;`

	countMetricsSQL = `SELECT COUNT(*) FROM bank_metrics;`

	insertAlertSQL = `INSERT INTO variation_alerts (
        bank,
        day,
        metric,
        percent_change,
        value,
        threshold_pct,
        direction,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (bank, day, metric) DO UPDATE
    SET percent_change = EXCLUDED.percent_change,
        value          = EXCLUDED.value,
        threshold_pct  = EXCLUDED.threshold_pct,
        direction      = EXCLUDED.direction,
        channels       = EXCLUDED.channels
    RETURNING id, bank, day, metric, percent_change::text, value::text, threshold_pct::text, direction, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        bank,
        day,
        metric,
        percent_change::text,
        value::text,
        threshold_pct::text,
        direction,
        channels,
        created_at
    FROM variation_alerts
    ORDER BY day DESC, bank, metric
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM variation_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// MetricStore persists daily bank observations.
type MetricStore interface {
	UpsertRecords(ctx context.Context, records []panel.MetricRecord, source string) error
	ListRecordsBetween(ctx context.Context, from, to time.Time) ([]MetricRow, error)
	CountRecords(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to bank metrics and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open builds a pool from cfg, verifies connectivity and returns the Store.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewStore(pool), nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock also goes away with the session
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertRecords writes records in a single batch, replacing existing
// (bank, day) rows.
func (s *Store) UpsertRecords(ctx context.Context, records []panel.MetricRecord, source string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertMetricSQL, metricArgs(NewMetricRow(rec, source))...)
	}

	results := pool.SendBatch(ctx, batch)
	for i := range records {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("upsert record %s/%s: %w", records[i].Bank, panel.FormatDay(records[i].Date), execErr)
		}
	}
	if closeErr := results.Close(); closeErr != nil {
		return fmt.Errorf("close upsert batch: %w", closeErr)
	}
	return nil
}

func metricArgs(row MetricRow) []any {
	return []any{
		row.Bank,
		row.Day,
		row.SavingsYield.String(),
		row.LoanRate.String(),
		row.MaintenanceFee.String(),
		row.PromoScore.String(),
		row.Source,
	}
}

// ListRecordsBetween lists rows with from <= day <= to, ordered by bank and day.
func (s *Store) ListRecordsBetween(ctx context.Context, from, to time.Time) ([]MetricRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listMetricsBetweenSQL, panel.Day(from), panel.Day(to))
	if queryErr != nil {
		return nil, fmt.Errorf("list records between: %w", queryErr)
	}
	defer rows.Close()

	out := make([]MetricRow, 0)
	for rows.Next() {
		row, scanErr := scanMetricRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// FetchRange serves the stored panel for [from, to].
func (s *Store) FetchRange(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
	rows, err := s.ListRecordsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	records := make([]panel.MetricRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return records, nil
}

// CountRecords counts stored observations.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countMetricsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count records: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Bank,
		panel.Day(alert.Day),
		alert.Metric,
		alert.PercentChange.String(),
		alert.Value.String(),
		alert.ThresholdPct.String(),
		alert.Direction,
		alert.Channels,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists the newest alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanMetricRow(row pgx.Row) (MetricRow, error) {
	var (
		out                                 MetricRow
		yieldStr, loanStr, feeStr, promoStr string
	)
	if err := row.Scan(
		&out.Bank,
		&out.Day,
		&yieldStr,
		&loanStr,
		&feeStr,
		&promoStr,
		&out.Source,
		&out.CreatedAt,
	); err != nil {
		return MetricRow{}, err
	}

	var err error
	if out.SavingsYield, err = parseDecimal("savings yield", yieldStr); err != nil {
		return MetricRow{}, err
	}
	if out.LoanRate, err = parseDecimal("loan rate", loanStr); err != nil {
		return MetricRow{}, err
	}
	if out.MaintenanceFee, err = parseDecimal("maintenance fee", feeStr); err != nil {
		return MetricRow{}, err
	}
	if out.PromoScore, err = parseDecimal("promo score", promoStr); err != nil {
		return MetricRow{}, err
	}
	return out, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec                               AlertRecord
		changeStr, valueStr, thresholdStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Bank,
		&rec.Day,
		&rec.Metric,
		&changeStr,
		&valueStr,
		&thresholdStr,
		&rec.Direction,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var err error
	if rec.PercentChange, err = parseDecimal("percent change", changeStr); err != nil {
		return AlertRecord{}, err
	}
	if rec.Value, err = parseDecimal("value", valueStr); err != nil {
		return AlertRecord{}, err
	}
	if rec.ThresholdPct, err = parseDecimal("threshold pct", thresholdStr); err != nil {
		return AlertRecord{}, err
	}
	return rec, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return d, nil
}

var (
	_ MetricStore    = (*Store)(nil)
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
