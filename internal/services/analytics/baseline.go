package analytics

import (
	"sort"

	"FusionRisk/internal/domain/models"
	"FusionRisk/internal/services/features"
)

// ComputeBaselines groups records by event type and summarises each group's
// complete records. Groups without a complete record are omitted. The result
// is ordered by stability index descending, then event type.
func ComputeBaselines(records []models.MetricRecord) []models.BaselineMetrics {
	groups, order := models.GroupByEventType(records)
	out := make([]models.BaselineMetrics, 0, len(order))
	for _, eventType := range order {
		if b, ok := Baseline(eventType, groups[eventType]); ok {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StabilityIndex != out[j].StabilityIndex {
			return out[i].StabilityIndex > out[j].StabilityIndex
		}
		return out[i].EventType < out[j].EventType
	})
	return out
}

// Baseline summarises one event type. Records missing a score or the
// adjustment type are filtered individually; ok is false when none remain.
func Baseline(eventType string, records []models.MetricRecord) (models.BaselineMetrics, bool) {
	conf := make([]float64, 0, len(records))
	feedback := make([]float64, 0, len(records))
	var reinforce, tune, reset int

	for _, r := range records {
		if !r.Complete() {
			continue
		}
		conf = append(conf, *r.ConfidenceScore)
		feedback = append(feedback, *r.FeedbackScore)
		switch *r.AdjustmentType {
		case models.AdjustmentReinforce:
			reinforce++
		case models.AdjustmentTune:
			tune++
		case models.AdjustmentReset:
			reset++
		}
	}

	n := len(conf)
	if n == 0 {
		return models.BaselineMetrics{}, false
	}

	avgConf := features.Mean(conf)
	avgFeedback := features.Mean(feedback)
	return models.BaselineMetrics{
		EventType:      eventType,
		SampleSize:     n,
		AvgConfidence:  avgConf,
		AvgFeedback:    avgFeedback,
		ReinforceRatio: float64(reinforce) / float64(n),
		TuneRatio:      float64(tune) / float64(n),
		ResetRatio:     float64(reset) / float64(n),
		StabilityIndex: features.Clamp01(features.StabilityIndex(avgConf, avgFeedback)),
	}, true
}
