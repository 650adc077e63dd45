package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	pkgch "FusionRisk/pkg/clickhouse"
	applogger "FusionRisk/pkg/logger"
)

// CHRiskStore appends risk events and audit entries to ClickHouse.
type CHRiskStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHRiskStore(ch *pkgch.Client, l *applogger.Logger) *CHRiskStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHRiskStore{db: ch.DB(), l: l}
}

// InsertRiskEvents writes all events in a single INSERT.
func (s *CHRiskStore) InsertRiskEvents(ctx context.Context, events []models.RiskEvent) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*7)
	for _, e := range events {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.ID,
			e.EventType,
			e.PredictedVariance,
			e.PredictedStability,
			e.RiskCategory,
			e.ActionTaken,
			e.CreatedAt.UTC(),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, event_type, predicted_variance, predicted_stability, risk_category, action_taken, created_at) VALUES %s",
		TableRiskEvents, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse insert_risk_events error", applogger.Int("rows", len(events)), applogger.Error(err))
		return fmt.Errorf("insert risk events: %w", err)
	}
	return nil
}

func (s *CHRiskStore) WriteAudit(ctx context.Context, entry models.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	q := "INSERT INTO " + TableAuditLog + " (id, source, payload, created_at) VALUES (?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, q, entry.ID, entry.Source, string(payload), entry.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

var (
	_ domrepo.RiskEventStore = (*CHRiskStore)(nil)
	_ domrepo.AuditSink      = (*CHRiskStore)(nil)
)
