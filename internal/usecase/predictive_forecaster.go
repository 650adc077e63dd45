package usecase

import (
	"context"
	"time"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	domsvc "FusionRisk/internal/domain/service"
	"FusionRisk/internal/services/analytics"
	xhttp "FusionRisk/pkg/http"
	applogger "FusionRisk/pkg/logger"
)

// PredictiveForecaster projects short-horizon stability per event type.
type PredictiveForecaster struct {
	store    domrepo.MetricStore
	audit    domrepo.AuditSink
	metrics  domrepo.Metrics
	l        *applogger.Logger
	lookback models.Lookback
}

func NewPredictiveForecaster(store domrepo.MetricStore, audit domrepo.AuditSink, metrics domrepo.Metrics, l *applogger.Logger, lookback models.Lookback) *PredictiveForecaster {
	return &PredictiveForecaster{
		store:    store,
		audit:    audit,
		metrics:  orNoop(metrics),
		l:        orNop(l),
		lookback: lookback,
	}
}

// Forecast groups with fewer than analytics.MinForecastSamples scored records
// are left out; that is not an error.
func (uc *PredictiveForecaster) Forecast(ctx context.Context, override models.Lookback) (report models.ForecastReport, err error) {
	start := time.Now()
	defer func() {
		uc.metrics.RecordInvocation(SourcePredictiveForecaster, outcome(err))
		uc.metrics.RecordLatency(SourcePredictiveForecaster, time.Since(start).Seconds())
	}()

	lb := uc.lookback.Override(override.MaxRecords, override.MaxAge)
	records, err := uc.store.LatestRecords(ctx, lb)
	if err != nil {
		uc.metrics.RecordError("forecast_fetch")
		uc.l.Error("predictive forecaster: fetch records failed", applogger.Error(err))
		return models.ForecastReport{}, xhttp.DatabaseError("Failed to fetch metric records", err)
	}

	forecasts := analytics.ForecastAll(records)
	report = models.ForecastReport{
		Status:             xhttp.StatusSuccess,
		RecordsAnalyzed:    len(records),
		CategoriesForecast: len(forecasts),
		Forecasts:          forecasts,
	}

	writeAudit(ctx, uc.audit, uc.metrics, uc.l, SourcePredictiveForecaster, map[string]interface{}{
		"records_analyzed":    report.RecordsAnalyzed,
		"categories_forecast": report.CategoriesForecast,
		"risk_distribution": countBy(forecasts, func(f models.ForecastResult) string {
			return f.RiskCategory
		}),
	})
	return report, nil
}

var _ domsvc.Forecaster = (*PredictiveForecaster)(nil)
