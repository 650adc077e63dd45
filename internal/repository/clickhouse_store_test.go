package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"FusionRisk/internal/domain/models"
	pkgch "FusionRisk/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pkgch.NewClientFromDB(db), mock
}

func fp(v float64) *float64 { return &v }

func TestLatestRecordsQueryAndScan(t *testing.T) {
	ch, mock := newMock(t)
	store := NewCHMetricStore(ch, nil)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"event_type", "confidence_score", "feedback_score", "adjustment_type", "created_at"}).
		AddRow("signup", 0.9, 0.8, "reinforce", ts).
		AddRow("login", nil, 0.4, nil, ts.Add(-time.Minute))
	mock.ExpectQuery("SELECT event_type, confidence_score, feedback_score, adjustment_type, created_at FROM metric_events ORDER BY created_at DESC LIMIT ?").
		WithArgs(500).
		WillReturnRows(rows)

	got, err := store.LatestRecords(context.Background(), models.Lookback{MaxRecords: 500})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "signup", got[0].EventType)
	assert.Equal(t, 0.9, *got[0].ConfidenceScore)
	assert.Equal(t, models.AdjustmentReinforce, *got[0].AdjustmentType)
	assert.True(t, ts.Equal(got[0].CreatedAt))

	assert.Nil(t, got[1].ConfidenceScore)
	assert.Equal(t, 0.4, *got[1].FeedbackScore)
	assert.Nil(t, got[1].AdjustmentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRecordsWithMaxAge(t *testing.T) {
	ch, mock := newMock(t)
	store := NewCHMetricStore(ch, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	mock.ExpectQuery("SELECT event_type, confidence_score, feedback_score, adjustment_type, created_at FROM metric_events WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?").
		WithArgs(now.Add(-time.Hour), 100).
		WillReturnRows(sqlmock.NewRows([]string{"event_type", "confidence_score", "feedback_score", "adjustment_type", "created_at"}))

	got, err := store.LatestRecords(context.Background(), models.Lookback{MaxRecords: 100, MaxAge: time.Hour})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRecordsQueryError(t *testing.T) {
	ch, mock := newMock(t)
	store := NewCHMetricStore(ch, nil)

	mock.ExpectQuery("SELECT event_type, confidence_score, feedback_score, adjustment_type, created_at FROM metric_events ORDER BY created_at DESC LIMIT ?").
		WithArgs(10).
		WillReturnError(errors.New("code: 60, table does not exist"))

	_, err := store.LatestRecords(context.Background(), models.Lookback{MaxRecords: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table does not exist")
}

func TestInsertRecords(t *testing.T) {
	ch, mock := newMock(t)
	store := NewCHMetricStore(ch, nil)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tune := models.AdjustmentTune

	mock.ExpectExec("INSERT INTO metric_events (event_type, confidence_score, feedback_score, adjustment_type, created_at) VALUES (?, ?, ?, ?, ?),(?, ?, ?, ?, ?)").
		WithArgs(
			"a", 0.5, 0.6, "tune", ts,
			"b", nil, nil, nil, ts,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.InsertRecords(context.Background(), []models.MetricRecord{
		{EventType: "a", ConfidenceScore: fp(0.5), FeedbackScore: fp(0.6), AdjustmentType: &tune, CreatedAt: ts},
		{EventType: "b", CreatedAt: ts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecordsEmptyIsNoop(t *testing.T) {
	ch, mock := newMock(t)
	require.NoError(t, NewCHMetricStore(ch, nil).InsertRecords(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRiskEventsSingleWrite(t *testing.T) {
	ch, mock := newMock(t)
	store := NewCHRiskStore(ch, nil)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id1, id2 := uuid.New(), uuid.New()

	mock.ExpectExec("INSERT INTO risk_events (id, event_type, predicted_variance, predicted_stability, risk_category, action_taken, created_at) VALUES (?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?)").
		WithArgs(
			id1, "a", 0.1, 0.15, models.RiskHigh, models.ActionReset, ts,
			id2, "b", 0.2, 0.3, models.RiskModerate, models.ActionReinforce, ts,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.InsertRiskEvents(context.Background(), []models.RiskEvent{
		{ID: id1, EventType: "a", PredictedVariance: 0.1, PredictedStability: 0.15, RiskCategory: models.RiskHigh, ActionTaken: models.ActionReset, CreatedAt: ts},
		{ID: id2, EventType: "b", PredictedVariance: 0.2, PredictedStability: 0.3, RiskCategory: models.RiskModerate, ActionTaken: models.ActionReinforce, CreatedAt: ts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRiskEventsEmptyIsNoop(t *testing.T) {
	ch, mock := newMock(t)
	require.NoError(t, NewCHRiskStore(ch, nil).InsertRiskEvents(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRiskEventsError(t *testing.T) {
	ch, mock := newMock(t)
	mock.ExpectExec("INSERT INTO risk_events (id, event_type, predicted_variance, predicted_stability, risk_category, action_taken, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)").
		WillReturnError(errors.New("readonly"))

	err := NewCHRiskStore(ch, nil).InsertRiskEvents(context.Background(), []models.RiskEvent{{ID: uuid.New(), EventType: "a"}})
	assert.Error(t, err)
}

func TestWriteAudit(t *testing.T) {
	ch, mock := newMock(t)
	entry := models.AuditEntry{
		ID:        uuid.New(),
		Source:    "baseline-analyzer",
		Payload:   map[string]interface{}{"records_analyzed": 3},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO audit_log (id, source, payload, created_at) VALUES (?, ?, ?, ?)").
		WithArgs(entry.ID, entry.Source, `{"records_analyzed":3}`, entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCHRiskStore(ch, nil).WriteAudit(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
