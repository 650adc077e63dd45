package analytics

import (
	"math"
	"sort"

	"FusionRisk/internal/domain/models"
	"FusionRisk/internal/services/features"
)

// CalibrationThreshold is the stability drift, inclusive, that triggers
// reinforce (upward) or reset (downward).
const CalibrationThreshold = 0.05

func Recommend(variance float64) string {
	switch {
	case variance >= CalibrationThreshold:
		return models.RecommendReinforce
	case variance <= -CalibrationThreshold:
		return models.RecommendReset
	default:
		return models.RecommendTune
	}
}

// Calibrate compares each baseline with the current sample of the same event
// type. Baselines without a current scored record are skipped. Entries are
// ordered by absolute variance descending, then event type.
func Calibrate(baselines []models.BaselineMetrics, current []models.MetricRecord) []models.CalibrationEntry {
	groups, _ := models.GroupByEventType(current)
	out := make([]models.CalibrationEntry, 0, len(baselines))

	for _, b := range baselines {
		conf, feedback := features.Scores(groups[b.EventType])
		if len(conf) == 0 {
			continue
		}
		stability := features.StabilityIndex(features.Mean(conf), features.Mean(feedback))
		variance := stability - b.StabilityIndex
		out = append(out, models.CalibrationEntry{
			EventType:         b.EventType,
			BaselineStability: b.StabilityIndex,
			CurrentStability:  stability,
			Variance:          variance,
			Recommendation:    Recommend(variance),
			SampleSize:        len(conf),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Variance), math.Abs(out[j].Variance)
		if ai != aj {
			return ai > aj
		}
		return out[i].EventType < out[j].EventType
	})
	return out
}
