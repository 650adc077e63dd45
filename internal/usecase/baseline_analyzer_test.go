package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"FusionRisk/internal/domain/models"
	xhttp "FusionRisk/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineAnalyzerEmptyStore(t *testing.T) {
	audit := &fakeAudit{}
	uc := NewBaselineAnalyzer(&fakeStore{}, audit, nil, nil, models.Lookback{MaxRecords: 500})

	report, err := uc.Analyze(context.Background(), models.Lookback{})
	require.NoError(t, err)
	assert.Equal(t, xhttp.StatusSuccess, report.Status)
	assert.Zero(t, report.RecordsAnalyzed)
	assert.Zero(t, report.CategoriesAnalyzed)
	assert.NotNil(t, report.Baselines)
	assert.Empty(t, report.Baselines)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, SourceBaselineAnalyzer, audit.entries[0].Source)
	assert.Equal(t, 0.0, audit.entries[0].Payload["top_stability_index"])
}

func TestBaselineAnalyzerSortsAndAudits(t *testing.T) {
	records := append(repeat("low", 3, 0.2, 0.2), repeat("high", 2, 0.9, 0.9)...)
	store := &fakeStore{records: records}
	audit := &fakeAudit{}
	uc := NewBaselineAnalyzer(store, audit, nil, nil, models.Lookback{MaxRecords: 500})

	report, err := uc.Analyze(context.Background(), models.Lookback{})
	require.NoError(t, err)
	assert.Equal(t, 5, report.RecordsAnalyzed)
	require.Equal(t, 2, report.CategoriesAnalyzed)
	assert.Equal(t, "high", report.Baselines[0].EventType)
	assert.Equal(t, "low", report.Baselines[1].EventType)

	require.Len(t, audit.entries, 1)
	p := audit.entries[0].Payload
	assert.Equal(t, 5, p["records_analyzed"])
	assert.Equal(t, 2, p["categories_analyzed"])
	assert.InDelta(t, 0.9, p["top_stability_index"], 1e-9)
}

func TestBaselineAnalyzerAppliesLookbackOverride(t *testing.T) {
	store := &fakeStore{}
	uc := NewBaselineAnalyzer(store, nil, nil, nil, models.Lookback{MaxRecords: 500})

	_, err := uc.Analyze(context.Background(), models.Lookback{MaxRecords: 50, MaxAge: time.Hour})
	require.NoError(t, err)
	_, err = uc.Analyze(context.Background(), models.Lookback{})
	require.NoError(t, err)

	require.Len(t, store.lookbacks, 2)
	assert.Equal(t, models.Lookback{MaxRecords: 50, MaxAge: time.Hour}, store.lookbacks[0])
	assert.Equal(t, models.Lookback{MaxRecords: 500}, store.lookbacks[1])
}

func TestBaselineAnalyzerStoreFailure(t *testing.T) {
	audit := &fakeAudit{}
	m := newFakeMetrics()
	uc := NewBaselineAnalyzer(&fakeStore{err: errors.New("connection refused")}, audit, m, nil, models.Lookback{MaxRecords: 500})

	_, err := uc.Analyze(context.Background(), models.Lookback{})
	require.Error(t, err)

	var appErr *xhttp.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "ERR_DATABASE", appErr.Code)
	assert.Equal(t, "connection refused", appErr.Details)
	assert.Empty(t, audit.entries)
	assert.Equal(t, 1, m.invocations[SourceBaselineAnalyzer+":error"])
}

func TestBaselineAnalyzerAuditFailureIsNotFatal(t *testing.T) {
	m := newFakeMetrics()
	uc := NewBaselineAnalyzer(&fakeStore{records: repeat("a", 2, 0.5, 0.5)}, &fakeAudit{err: errors.New("down")}, m, nil, models.Lookback{MaxRecords: 500})

	report, err := uc.Analyze(context.Background(), models.Lookback{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.CategoriesAnalyzed)
	assert.Equal(t, 1, m.errors["audit_write"])
}

func TestPredictiveForecasterAuditsRiskDistribution(t *testing.T) {
	records := append(repeat("stable", 10, 1, 1), repeat("risky", 10, 0, 0)...)
	audit := &fakeAudit{}
	uc := NewPredictiveForecaster(&fakeStore{records: records}, audit, nil, nil, models.Lookback{MaxRecords: 500})

	report, err := uc.Forecast(context.Background(), models.Lookback{})
	require.NoError(t, err)
	assert.Equal(t, 20, report.RecordsAnalyzed)
	require.Equal(t, 2, report.CategoriesForecast)
	assert.Equal(t, "stable", report.Forecasts[0].EventType)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, SourcePredictiveForecaster, audit.entries[0].Source)
	assert.Equal(t, map[string]int{models.RiskStable: 1, models.RiskHigh: 1}, audit.entries[0].Payload["risk_distribution"])
}

func TestPredictiveForecasterBelowFloor(t *testing.T) {
	uc := NewPredictiveForecaster(&fakeStore{records: repeat("a", 9, 0.5, 0.5)}, nil, nil, nil, models.Lookback{MaxRecords: 500})

	report, err := uc.Forecast(context.Background(), models.Lookback{})
	require.NoError(t, err)
	assert.Equal(t, 9, report.RecordsAnalyzed)
	assert.Empty(t, report.Forecasts)
}

func TestPredictiveForecasterStoreFailure(t *testing.T) {
	uc := NewPredictiveForecaster(&fakeStore{err: errors.New("timeout")}, nil, nil, nil, models.Lookback{MaxRecords: 500})

	_, err := uc.Forecast(context.Background(), models.Lookback{})
	var appErr *xhttp.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ERR_DATABASE", appErr.Code)
}
