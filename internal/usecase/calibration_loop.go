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

// CalibrationLoop compares the baseline snapshot with a recent sample and
// recommends tuning per event type.
type CalibrationLoop struct {
	baselines domsvc.BaselineAnalyzer
	store     domrepo.MetricStore
	audit     domrepo.AuditSink
	metrics   domrepo.Metrics
	l         *applogger.Logger
	lookback  models.Lookback
	now       func() time.Time
}

func NewCalibrationLoop(baselines domsvc.BaselineAnalyzer, store domrepo.MetricStore, audit domrepo.AuditSink, metrics domrepo.Metrics, l *applogger.Logger, lookback models.Lookback) *CalibrationLoop {
	return &CalibrationLoop{
		baselines: baselines,
		store:     store,
		audit:     audit,
		metrics:   orNoop(metrics),
		l:         orNop(l),
		lookback:  lookback,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run uses the analyzer's own lookback for the baseline; override applies to
// the current sample only.
func (uc *CalibrationLoop) Run(ctx context.Context, override models.Lookback) (report models.CalibrationReport, err error) {
	start := time.Now()
	defer func() {
		uc.metrics.RecordInvocation(SourceCalibrationLoop, outcome(err))
		uc.metrics.RecordLatency(SourceCalibrationLoop, time.Since(start).Seconds())
	}()

	baseline, err := uc.baselines.Analyze(ctx, models.Lookback{})
	if err != nil {
		uc.metrics.RecordError("baseline_call")
		uc.l.Error("calibration loop: baseline analyzer failed", applogger.Error(err))
		return models.CalibrationReport{}, xhttp.UpstreamError("Failed to fetch baseline", upstreamStatus(err), err)
	}

	lb := uc.lookback.Override(override.MaxRecords, override.MaxAge)
	current, err := uc.store.LatestRecords(ctx, lb)
	if err != nil {
		uc.metrics.RecordError("calibration_fetch")
		uc.l.Error("calibration loop: fetch records failed", applogger.Error(err))
		return models.CalibrationReport{}, xhttp.DatabaseError("Failed to fetch metric records", err)
	}

	entries := analytics.Calibrate(baseline.Baselines, current)
	report = models.CalibrationReport{
		Status:               xhttp.StatusSuccess,
		CategoriesCalibrated: len(entries),
		Calibrations:         entries,
		GeneratedAt:          uc.now(),
	}

	writeAudit(ctx, uc.audit, uc.metrics, uc.l, SourceCalibrationLoop, map[string]interface{}{
		"categories_calibrated": report.CategoriesCalibrated,
		"recommendation_distribution": countBy(entries, func(e models.CalibrationEntry) string {
			return e.Recommendation
		}),
	})
	return report, nil
}
