package usecase

import (
	"context"
	"errors"
	"net/http"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	xhttp "FusionRisk/pkg/http"
	applogger "FusionRisk/pkg/logger"
)

// Audit sources, one per pipeline function.
const (
	SourceBaselineAnalyzer     = "baseline-analyzer"
	SourcePredictiveForecaster = "predictive-forecaster"
	SourceRiskEngine           = "risk-engine"
	SourceCalibrationLoop      = "calibration-loop"
)

// writeAudit appends one entry to the audit sink. Failures are logged and
// counted but never fail the invocation.
func writeAudit(ctx context.Context, sink domrepo.AuditSink, metrics domrepo.Metrics, l *applogger.Logger, source string, payload map[string]interface{}) {
	if sink == nil {
		return
	}
	if err := sink.WriteAudit(ctx, models.NewAuditEntry(source, payload)); err != nil {
		metrics.RecordError("audit_write")
		l.Warn("audit write failed", applogger.String("source", source), applogger.Error(err))
	}
}

// upstreamStatus returns the HTTP status carried by an in-process collaborator error.
func upstreamStatus(err error) int {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func countBy[T any](items []T, key func(T) string) map[string]int {
	out := make(map[string]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}

// noopMetrics is used when no recorder is wired.
type noopMetrics struct{}

func (noopMetrics) RecordInvocation(string, string) {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLatency(string, float64)   {}
func (noopMetrics) RecordRiskEvent(string, string)  {}
func (noopMetrics) RecordSync(string, bool)         {}
func (noopMetrics) RecordIngested(int)              {}

func orNoop(m domrepo.Metrics) domrepo.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func orNop(l *applogger.Logger) *applogger.Logger {
	if l == nil {
		return applogger.Nop()
	}
	return l
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
