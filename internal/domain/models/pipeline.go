package models

import (
	"time"

	"github.com/google/uuid"
)

// Risk categories, ordered by severity.
const (
	RiskStable   = "Stable"
	RiskModerate = "Moderate Risk"
	RiskHigh     = "High Risk"
)

// Corrective actions taken by the risk engine.
const (
	ActionMaintain  = "maintain"
	ActionReinforce = "reinforce"
	ActionReset     = "reset"
)

// Calibration recommendations.
const (
	RecommendReinforce = "reinforce"
	RecommendTune      = "tune"
	RecommendReset     = "reset"
)

// BaselineMetrics summarises the valid records of one event type.
type BaselineMetrics struct {
	EventType      string  `json:"event_type"`
	SampleSize     int     `json:"sample_size"`
	AvgConfidence  float64 `json:"avg_confidence"`
	AvgFeedback    float64 `json:"avg_feedback"`
	ReinforceRatio float64 `json:"reinforce_ratio"`
	TuneRatio      float64 `json:"tune_ratio"`
	ResetRatio     float64 `json:"reset_ratio"`
	StabilityIndex float64 `json:"stability_index"`
}

type BaselineReport struct {
	Status             string            `json:"status"`
	RecordsAnalyzed    int               `json:"records_analyzed"`
	CategoriesAnalyzed int               `json:"categories_analyzed"`
	Baselines          []BaselineMetrics `json:"baselines"`
}

// ForecastResult is the short-horizon stability projection for one event type.
type ForecastResult struct {
	EventType               string  `json:"event_type"`
	SampleSize              int     `json:"sample_size"`
	CurrentVariance         float64 `json:"current_variance"`
	PredictedVariance       float64 `json:"predicted_variance"`
	CurrentStability        float64 `json:"current_stability"`
	PredictedStabilityIndex float64 `json:"predicted_stability_index"`
	InstabilityProbability  float64 `json:"instability_probability"`
	RiskCategory            string  `json:"risk_category"`
}

type ForecastReport struct {
	Status             string           `json:"status"`
	RecordsAnalyzed    int              `json:"records_analyzed"`
	CategoriesForecast int              `json:"categories_forecast"`
	Forecasts          []ForecastResult `json:"forecasts"`
}

// RiskEvent is the persisted outcome of one risk engine decision.
type RiskEvent struct {
	ID                 uuid.UUID `json:"id"`
	EventType          string    `json:"event_type"`
	PredictedVariance  float64   `json:"predicted_variance"`
	PredictedStability float64   `json:"predicted_stability"`
	RiskCategory       string    `json:"risk_category"`
	ActionTaken        string    `json:"action_taken"`
	CreatedAt          time.Time `json:"created_at"`
}

// Corrective reports whether the event carries an action other than maintain.
func (e RiskEvent) Corrective() bool {
	return e.ActionTaken == ActionReinforce || e.ActionTaken == ActionReset
}

type RiskReport struct {
	Status          string      `json:"status"`
	EventsProcessed int         `json:"events_processed"`
	Events          []RiskEvent `json:"events"`
}

type CalibrationEntry struct {
	EventType         string  `json:"event_type"`
	BaselineStability float64 `json:"baseline_stability"`
	CurrentStability  float64 `json:"current_stability"`
	Variance          float64 `json:"variance"`
	Recommendation    string  `json:"recommendation"`
	SampleSize        int     `json:"sample_size"`
}

type CalibrationReport struct {
	Status               string             `json:"status"`
	CategoriesCalibrated int                `json:"categories_calibrated"`
	Calibrations         []CalibrationEntry `json:"calibrations"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// AuditEntry is one append-only record in the generic audit sink.
type AuditEntry struct {
	ID        uuid.UUID              `json:"id"`
	Source    string                 `json:"source"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewAuditEntry(source string, payload map[string]interface{}) AuditEntry {
	return AuditEntry{
		ID:        uuid.New(),
		Source:    source,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// SyncRequest is the payload sent to the reinforcement sync endpoint.
type SyncRequest struct {
	EventType      string `json:"event_type"`
	Recommendation string `json:"recommendation"`
}

// RunRequest is the optional body accepted by every pipeline function.
type RunRequest struct {
	MaxRecords int    `json:"max_records" validate:"omitempty,gte=1,lte=5000"`
	MaxAge     string `json:"max_age" validate:"omitempty,duration"`
}

// Lookback applies the request's overrides to base.
func (r RunRequest) Lookback(base Lookback) Lookback {
	var age time.Duration
	if r.MaxAge != "" {
		age, _ = time.ParseDuration(r.MaxAge)
	}
	return base.Override(r.MaxRecords, age)
}
