package analytics

import (
	"FusionRisk/internal/domain/models"
	"FusionRisk/internal/services/features"
)

// MinForecastSamples is the smallest group the forecaster will project.
const MinForecastSamples = 10

// Risk category breakpoints on instability probability. Each is inclusive on
// the higher category.
const (
	HighRiskThreshold     = 0.8
	ModerateRiskThreshold = 0.6
)

// ClassifyRisk maps an instability probability to a risk category.
func ClassifyRisk(instability float64) string {
	switch {
	case instability >= HighRiskThreshold:
		return models.RiskHigh
	case instability >= ModerateRiskThreshold:
		return models.RiskModerate
	default:
		return models.RiskStable
	}
}

// ForecastAll projects every event type in records, which must be ordered most
// recent first. Results follow the first appearance of each event type.
func ForecastAll(records []models.MetricRecord) []models.ForecastResult {
	groups, order := models.GroupByEventType(records)
	out := make([]models.ForecastResult, 0, len(order))
	for _, eventType := range order {
		if f, ok := Forecast(eventType, groups[eventType]); ok {
			out = append(out, f)
		}
	}
	return out
}

// Forecast projects one event type from its records, most recent first.
// ok is false when fewer than MinForecastSamples records carry both scores.
func Forecast(eventType string, newestFirst []models.MetricRecord) (models.ForecastResult, bool) {
	chronological := make([]models.MetricRecord, len(newestFirst))
	for i, r := range newestFirst {
		chronological[len(newestFirst)-1-i] = r
	}

	conf, feedback := features.Scores(chronological)
	n := len(conf)
	if n < MinForecastSamples {
		return models.ForecastResult{}, false
	}

	currentVariance := features.PopVariance(features.Tail(conf, features.WindowSize))
	currentStability := features.StabilityIndex(features.Mean(conf), features.Mean(feedback))

	predictedVariance := currentVariance
	predictedStability := currentStability

	// Only the most recent historical window feeds the projection.
	if windows := features.HistoricalWindows(n, features.WindowSize); len(windows) > 0 {
		w := windows[len(windows)-1]
		histVariance := features.PopVariance(conf[w.Start:w.End])
		histStability := features.StabilityIndex(
			features.Mean(conf[w.Start:w.End]),
			features.Mean(feedback[w.Start:w.End]),
		)
		predictedVariance = features.Smooth(currentVariance, histVariance)
		predictedStability = features.Smooth(currentStability, histStability)
	}

	instability := features.Clamp01(1 - predictedStability)
	return models.ForecastResult{
		EventType:               eventType,
		SampleSize:              n,
		CurrentVariance:         currentVariance,
		PredictedVariance:       predictedVariance,
		CurrentStability:        currentStability,
		PredictedStabilityIndex: predictedStability,
		InstabilityProbability:  instability,
		RiskCategory:            ClassifyRisk(instability),
	}, true
}
