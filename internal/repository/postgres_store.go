package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	applogger "FusionRisk/pkg/logger"
	pkgpg "FusionRisk/pkg/postgres"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type metricEventRow struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	EventType       string    `gorm:"size:128;not null;index"`
	ConfidenceScore *float64  `gorm:"type:double precision"`
	FeedbackScore   *float64  `gorm:"type:double precision"`
	AdjustmentType  *string   `gorm:"size:16"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

func (metricEventRow) TableName() string { return TableMetricEvents }

type riskEventRow struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType          string    `gorm:"size:128;not null;index"`
	PredictedVariance  float64   `gorm:"not null"`
	PredictedStability float64   `gorm:"not null"`
	RiskCategory       string    `gorm:"size:32;not null"`
	ActionTaken        string    `gorm:"size:16;not null"`
	CreatedAt          time.Time `gorm:"not null;index"`
}

func (riskEventRow) TableName() string { return TableRiskEvents }

type auditLogRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Source    string    `gorm:"size:64;not null;index"`
	Payload   string    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (auditLogRow) TableName() string { return TableAuditLog }

// PostgresModels lists the GORM models to migrate.
func PostgresModels() []interface{} {
	return []interface{}{&metricEventRow{}, &riskEventRow{}, &auditLogRow{}}
}

// PGStore implements the metric, risk event and audit stores on PostgreSQL via GORM.
type PGStore struct {
	db  *gorm.DB
	l   *applogger.Logger
	now func() time.Time
}

func NewPGStore(pg *pkgpg.Client, l *applogger.Logger) *PGStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &PGStore{db: pg.DB(), l: l, now: time.Now}
}

func (s *PGStore) LatestRecords(ctx context.Context, lb models.Lookback) ([]models.MetricRecord, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if since := lb.Since(s.now()); !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if lb.MaxRecords > 0 {
		q = q.Limit(lb.MaxRecords)
	}

	var rows []metricEventRow
	if err := q.Find(&rows).Error; err != nil {
		s.l.Error("postgres latest_records query error", applogger.Error(err))
		return nil, fmt.Errorf("query metric events: %w", err)
	}

	out := make([]models.MetricRecord, 0, len(rows))
	for _, row := range rows {
		r := models.MetricRecord{
			EventType:       row.EventType,
			ConfidenceScore: row.ConfidenceScore,
			FeedbackScore:   row.FeedbackScore,
			CreatedAt:       row.CreatedAt,
		}
		if row.AdjustmentType != nil {
			a := models.AdjustmentType(*row.AdjustmentType)
			r.AdjustmentType = &a
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *PGStore) InsertRecords(ctx context.Context, records []models.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]metricEventRow, 0, len(records))
	for _, r := range records {
		row := metricEventRow{
			EventType:       r.EventType,
			ConfidenceScore: r.ConfidenceScore,
			FeedbackScore:   r.FeedbackScore,
			CreatedAt:       r.CreatedAt.UTC(),
		}
		if r.AdjustmentType != nil {
			a := string(*r.AdjustmentType)
			row.AdjustmentType = &a
		}
		rows = append(rows, row)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, insertChunkSize).Error; err != nil {
		s.l.Error("postgres insert_records error", applogger.Int("rows", len(rows)), applogger.Error(err))
		return fmt.Errorf("insert metric events: %w", err)
	}
	return nil
}

func (s *PGStore) InsertRiskEvents(ctx context.Context, events []models.RiskEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]riskEventRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, riskEventRow{
			ID:                 e.ID,
			EventType:          e.EventType,
			PredictedVariance:  e.PredictedVariance,
			PredictedStability: e.PredictedStability,
			RiskCategory:       e.RiskCategory,
			ActionTaken:        e.ActionTaken,
			CreatedAt:          e.CreatedAt.UTC(),
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		s.l.Error("postgres insert_risk_events error", applogger.Int("rows", len(rows)), applogger.Error(err))
		return fmt.Errorf("insert risk events: %w", err)
	}
	return nil
}

func (s *PGStore) WriteAudit(ctx context.Context, entry models.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	row := auditLogRow{
		ID:        entry.ID,
		Source:    entry.Source,
		Payload:   string(payload),
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PGStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var (
	_ domrepo.MetricStore    = (*PGStore)(nil)
	_ domrepo.RiskEventStore = (*PGStore)(nil)
	_ domrepo.AuditSink      = (*PGStore)(nil)
)
