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

// BaselineAnalyzer computes per-category baselines from the most recent metric records.
type BaselineAnalyzer struct {
	store    domrepo.MetricStore
	audit    domrepo.AuditSink
	metrics  domrepo.Metrics
	l        *applogger.Logger
	lookback models.Lookback
}

func NewBaselineAnalyzer(store domrepo.MetricStore, audit domrepo.AuditSink, metrics domrepo.Metrics, l *applogger.Logger, lookback models.Lookback) *BaselineAnalyzer {
	return &BaselineAnalyzer{
		store:    store,
		audit:    audit,
		metrics:  orNoop(metrics),
		l:        orNop(l),
		lookback: lookback,
	}
}

// Analyze applies the non-zero fields of override to the configured lookback.
// No data yields an empty successful report.
func (uc *BaselineAnalyzer) Analyze(ctx context.Context, override models.Lookback) (report models.BaselineReport, err error) {
	start := time.Now()
	defer func() {
		uc.metrics.RecordInvocation(SourceBaselineAnalyzer, outcome(err))
		uc.metrics.RecordLatency(SourceBaselineAnalyzer, time.Since(start).Seconds())
	}()

	lb := uc.lookback.Override(override.MaxRecords, override.MaxAge)
	records, err := uc.store.LatestRecords(ctx, lb)
	if err != nil {
		uc.metrics.RecordError("baseline_fetch")
		uc.l.Error("baseline analyzer: fetch records failed", applogger.Error(err))
		return models.BaselineReport{}, xhttp.DatabaseError("Failed to fetch metric records", err)
	}

	baselines := analytics.ComputeBaselines(records)
	report = models.BaselineReport{
		Status:             xhttp.StatusSuccess,
		RecordsAnalyzed:    len(records),
		CategoriesAnalyzed: len(baselines),
		Baselines:          baselines,
	}

	top := 0.0
	if len(baselines) > 0 {
		top = baselines[0].StabilityIndex
	}
	writeAudit(ctx, uc.audit, uc.metrics, uc.l, SourceBaselineAnalyzer, map[string]interface{}{
		"records_analyzed":    report.RecordsAnalyzed,
		"categories_analyzed": report.CategoriesAnalyzed,
		"top_stability_index": top,
	})

	uc.l.Info("baseline analyzer: completed",
		applogger.Int("records", report.RecordsAnalyzed),
		applogger.Int("categories", report.CategoriesAnalyzed),
	)
	return report, nil
}

var _ domsvc.BaselineAnalyzer = (*BaselineAnalyzer)(nil)
