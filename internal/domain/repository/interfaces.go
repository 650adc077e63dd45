package repository

import (
	"context"

	"FusionRisk/internal/domain/models"
)

// MetricStore reads and appends MetricRecords.
type MetricStore interface {
	// LatestRecords returns at most lb.MaxRecords records, most recent first.
	LatestRecords(ctx context.Context, lb models.Lookback) ([]models.MetricRecord, error)
	InsertRecords(ctx context.Context, records []models.MetricRecord) error
	Health(ctx context.Context) error
}

// RiskEventStore appends RiskEvents in one bulk write.
type RiskEventStore interface {
	InsertRiskEvents(ctx context.Context, events []models.RiskEvent) error
}

// AuditSink is the generic append-only audit log written by every pipeline function.
type AuditSink interface {
	WriteAudit(ctx context.Context, entry models.AuditEntry) error
}

// RiskEventPublisher announces persisted risk events to other services.
type RiskEventPublisher interface {
	PublishRiskEvents(ctx context.Context, events []models.RiskEvent) error
}

type Metrics interface {
	RecordInvocation(function, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRiskEvent(category, action string)
	RecordSync(action string, ok bool)
	RecordIngested(n int)
}
