package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	pkgch "FusionRisk/pkg/clickhouse"
	applogger "FusionRisk/pkg/logger"
)

// Table names shared by both storage backends.
const (
	TableMetricEvents = "metric_events"
	TableRiskEvents   = "risk_events"
	TableAuditLog     = "audit_log"
)

// ClickHouseSchema returns the idempotent DDL for the service tables.
func ClickHouseSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + TableMetricEvents + ` (
            event_type       LowCardinality(String),
            confidence_score Nullable(Float64),
            feedback_score   Nullable(Float64),
            adjustment_type  Nullable(String),
            created_at       DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (created_at, event_type)`,
		`CREATE TABLE IF NOT EXISTS ` + TableRiskEvents + ` (
            id                  UUID,
            event_type          LowCardinality(String),
            predicted_variance  Float64,
            predicted_stability Float64,
            risk_category       LowCardinality(String),
            action_taken        LowCardinality(String),
            created_at          DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (created_at, event_type)`,
		`CREATE TABLE IF NOT EXISTS ` + TableAuditLog + ` (
            id         UUID,
            source     LowCardinality(String),
            payload    String,
            created_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (source, created_at)`,
	}
}

// insertChunkSize bounds the rows per multi-row INSERT.
const insertChunkSize = 2000

// CHMetricStore implements MetricStore backed by ClickHouse.
type CHMetricStore struct {
	db  *sql.DB
	l   *applogger.Logger
	now func() time.Time
}

func NewCHMetricStore(ch *pkgch.Client, l *applogger.Logger) *CHMetricStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHMetricStore{db: ch.DB(), l: l, now: time.Now}
}

func (s *CHMetricStore) LatestRecords(ctx context.Context, lb models.Lookback) ([]models.MetricRecord, error) {
	q := "SELECT event_type, confidence_score, feedback_score, adjustment_type, created_at FROM " + TableMetricEvents
	args := make([]interface{}, 0, 2)
	if since := lb.Since(s.now()); !since.IsZero() {
		q += " WHERE created_at >= ?"
		args = append(args, since)
	}
	q += " ORDER BY created_at DESC"
	if lb.MaxRecords > 0 {
		q += " LIMIT ?"
		args = append(args, lb.MaxRecords)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse latest_records query error",
			applogger.Int("max_records", lb.MaxRecords),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query metric events: %w", err)
	}
	defer rows.Close()

	out := make([]models.MetricRecord, 0, lb.MaxRecords)
	for rows.Next() {
		var (
			r          models.MetricRecord
			conf, fb   sql.NullFloat64
			adjustment sql.NullString
		)
		if err := rows.Scan(&r.EventType, &conf, &fb, &adjustment, &r.CreatedAt); err != nil {
			s.l.Error("clickhouse latest_records scan error", applogger.Error(err))
			return nil, fmt.Errorf("scan metric event: %w", err)
		}
		r.ConfidenceScore = nullFloat(conf)
		r.FeedbackScore = nullFloat(fb)
		r.AdjustmentType = nullAdjustment(adjustment)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric events: %w", err)
	}
	return out, nil
}

func (s *CHMetricStore) InsertRecords(ctx context.Context, records []models.MetricRecord) error {
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, r := range records[start:end] {
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				r.EventType,
				floatArg(r.ConfidenceScore),
				floatArg(r.FeedbackScore),
				adjustmentArg(r.AdjustmentType),
				r.CreatedAt.UTC(),
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (event_type, confidence_score, feedback_score, adjustment_type, created_at) VALUES %s",
			TableMetricEvents, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert_records error", applogger.Int("rows", end-start), applogger.Error(err))
			return fmt.Errorf("insert metric events: %w", err)
		}
	}
	return nil
}

func (s *CHMetricStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullAdjustment(v sql.NullString) *models.AdjustmentType {
	if !v.Valid {
		return nil
	}
	a := models.AdjustmentType(v.String)
	return &a
}

func floatArg(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func adjustmentArg(v *models.AdjustmentType) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}

var _ domrepo.MetricStore = (*CHMetricStore)(nil)
