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

	"github.com/google/uuid"
)

// RiskEngine turns forecasts into corrective actions, syncs them downstream
// and records the resulting RiskEvents.
type RiskEngine struct {
	forecaster domsvc.Forecaster
	syncer     domsvc.ReinforcementSyncer
	events     domrepo.RiskEventStore
	publisher  domrepo.RiskEventPublisher
	audit      domrepo.AuditSink
	metrics    domrepo.Metrics
	l          *applogger.Logger
	now        func() time.Time
}

func NewRiskEngine(
	forecaster domsvc.Forecaster,
	syncer domsvc.ReinforcementSyncer,
	events domrepo.RiskEventStore,
	publisher domrepo.RiskEventPublisher,
	audit domrepo.AuditSink,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *RiskEngine {
	return &RiskEngine{
		forecaster: forecaster,
		syncer:     syncer,
		events:     events,
		publisher:  publisher,
		audit:      audit,
		metrics:    orNoop(metrics),
		l:          orNop(l),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run forecasts over override, then handles each forecast sequentially.
// A failed sync drops that item only; any other failure aborts the run.
func (uc *RiskEngine) Run(ctx context.Context, override models.Lookback) (report models.RiskReport, err error) {
	start := time.Now()
	defer func() {
		uc.metrics.RecordInvocation(SourceRiskEngine, outcome(err))
		uc.metrics.RecordLatency(SourceRiskEngine, time.Since(start).Seconds())
	}()

	forecast, err := uc.forecaster.Forecast(ctx, override)
	if err != nil {
		uc.metrics.RecordError("forecaster_call")
		uc.l.Error("risk engine: forecaster failed", applogger.Error(err))
		return models.RiskReport{}, xhttp.UpstreamError("Failed to fetch forecasts", upstreamStatus(err), err)
	}

	processed := make([]models.RiskEvent, 0, len(forecast.Forecasts))
	var instabilitySum, stabilitySum float64

	for _, f := range forecast.Forecasts {
		if err := ctx.Err(); err != nil {
			return models.RiskReport{}, xhttp.InternalErrorf("risk engine interrupted: %v", err)
		}

		action := analytics.ActionFor(f.RiskCategory)
		if action != models.ActionMaintain {
			syncErr := uc.syncer.Sync(ctx, models.SyncRequest{EventType: f.EventType, Recommendation: action})
			uc.metrics.RecordSync(action, syncErr == nil)
			if syncErr != nil {
				uc.l.Warn("risk engine: reinforcement sync failed",
					applogger.String("event_type", f.EventType),
					applogger.String("action", action),
					applogger.Error(syncErr),
				)
				continue
			}
		}

		processed = append(processed, models.RiskEvent{
			ID:                 uuid.New(),
			EventType:          f.EventType,
			PredictedVariance:  f.PredictedVariance,
			PredictedStability: f.PredictedStabilityIndex,
			RiskCategory:       f.RiskCategory,
			ActionTaken:        action,
			CreatedAt:          uc.now(),
		})
		instabilitySum += f.InstabilityProbability
		stabilitySum += f.PredictedStabilityIndex
	}

	corrective := make([]models.RiskEvent, 0, len(processed))
	for _, e := range processed {
		if e.Corrective() {
			corrective = append(corrective, e)
		}
	}

	if len(corrective) > 0 {
		if err := uc.events.InsertRiskEvents(ctx, corrective); err != nil {
			uc.metrics.RecordError("risk_insert")
			uc.l.Error("risk engine: insert risk events failed", applogger.Error(err))
			return models.RiskReport{}, xhttp.DatabaseError("Failed to insert risk events", err)
		}
		for _, e := range corrective {
			uc.metrics.RecordRiskEvent(e.RiskCategory, e.ActionTaken)
		}
		if uc.publisher != nil {
			if err := uc.publisher.PublishRiskEvents(ctx, corrective); err != nil {
				uc.metrics.RecordError("risk_publish")
				uc.l.Warn("risk engine: publish risk events failed", applogger.Error(err))
			}
		}
	}

	var avgInstability, avgStability float64
	if n := len(processed); n > 0 {
		avgInstability = instabilitySum / float64(n)
		avgStability = stabilitySum / float64(n)
	}
	writeAudit(ctx, uc.audit, uc.metrics, uc.l, SourceRiskEngine, map[string]interface{}{
		"action_distribution": countBy(processed, func(e models.RiskEvent) string { return e.ActionTaken }),
		"risk_distribution":   countBy(processed, func(e models.RiskEvent) string { return e.RiskCategory }),
		"avg_instability":     avgInstability,
		"avg_stability":       avgStability,
	})

	uc.l.Info("risk engine: completed",
		applogger.Int("forecasts", len(forecast.Forecasts)),
		applogger.Int("processed", len(processed)),
		applogger.Int("persisted", len(corrective)),
	)
	return models.RiskReport{
		Status:          xhttp.StatusSuccess,
		EventsProcessed: len(processed),
		Events:          processed,
	}, nil
}
