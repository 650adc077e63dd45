package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"FusionRisk/internal/domain/models"
	pkgpg "FusionRisk/pkg/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPGMock(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewPGStore(pkgpg.NewClientFromGorm(gdb), nil), mock
}

func TestPGLatestRecords(t *testing.T) {
	store, mock := newPGMock(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "event_type", "confidence_score", "feedback_score", "adjustment_type", "created_at"}).
		AddRow(2, "signup", 0.7, 0.5, "reset", ts).
		AddRow(1, "signup", nil, nil, nil, ts.Add(-time.Second))
	mock.ExpectQuery(`SELECT \* FROM "metric_events" ORDER BY created_at DESC LIMIT`).WillReturnRows(rows)

	got, err := store.LatestRecords(context.Background(), models.Lookback{MaxRecords: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0.7, *got[0].ConfidenceScore)
	assert.Equal(t, models.AdjustmentReset, *got[0].AdjustmentType)
	assert.Nil(t, got[1].ConfidenceScore)
	assert.Nil(t, got[1].AdjustmentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGLatestRecordsWithMaxAge(t *testing.T) {
	store, mock := newPGMock(t)
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	mock.ExpectQuery(`SELECT \* FROM "metric_events" WHERE created_at >= \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type"}))

	got, err := store.LatestRecords(context.Background(), models.Lookback{MaxAge: time.Hour})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGLatestRecordsError(t *testing.T) {
	store, mock := newPGMock(t)
	mock.ExpectQuery(`SELECT \* FROM "metric_events"`).WillReturnError(errors.New("relation does not exist"))

	_, err := store.LatestRecords(context.Background(), models.Lookback{MaxRecords: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query metric events")
}

func TestPGInsertRiskEvents(t *testing.T) {
	store, mock := newPGMock(t)
	mock.ExpectExec(`INSERT INTO "risk_events"`).WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.InsertRiskEvents(context.Background(), []models.RiskEvent{
		{ID: uuid.New(), EventType: "a", RiskCategory: models.RiskHigh, ActionTaken: models.ActionReset},
		{ID: uuid.New(), EventType: "b", RiskCategory: models.RiskModerate, ActionTaken: models.ActionReinforce},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGInsertRiskEventsEmptyIsNoop(t *testing.T) {
	store, mock := newPGMock(t)
	require.NoError(t, store.InsertRiskEvents(context.Background(), nil))
	require.NoError(t, store.InsertRecords(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGWriteAudit(t *testing.T) {
	store, mock := newPGMock(t)
	mock.ExpectExec(`INSERT INTO "audit_log"`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.WriteAudit(context.Background(), models.NewAuditEntry("risk-engine", map[string]interface{}{"events_processed": 4}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
