package features

import (
	"FusionRisk/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

const (
	// ConfidenceWeight and FeedbackWeight define the stability index.
	ConfidenceWeight = 0.6
	FeedbackWeight   = 0.4

	// SmoothingWeight is the weight of the current sample in a single-step projection.
	SmoothingWeight = 0.6

	// WindowSize is the number of records in one variance window.
	WindowSize = 20
)

// Scores extracts the confidence and feedback series of records that carry
// both scores, preserving input order.
func Scores(records []models.MetricRecord) (conf, feedback []float64) {
	conf = make([]float64, 0, len(records))
	feedback = make([]float64, 0, len(records))
	for _, r := range records {
		if !r.HasScores() {
			continue
		}
		conf = append(conf, *r.ConfidenceScore)
		feedback = append(feedback, *r.FeedbackScore)
	}
	return conf, feedback
}

// Mean returns the arithmetic mean of xs, or 0 for an empty series.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// PopVariance returns the population variance of xs, or 0 for an empty series.
func PopVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := stat.PopVariance(xs, nil)
	if v < 0 {
		return 0
	}
	return v
}

// StabilityIndex is 0.6*confidence + 0.4*feedback.
func StabilityIndex(avgConfidence, avgFeedback float64) float64 {
	return ConfidenceWeight*avgConfidence + FeedbackWeight*avgFeedback
}

// Smooth projects current one step against the last historical sample.
// It is applied once, not recursively over the history.
func Smooth(current, lastHistorical float64) float64 {
	return SmoothingWeight*current + (1-SmoothingWeight)*lastHistorical
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Tail returns the last n elements of xs, or all of them when fewer.
func Tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// Window is a half-open [Start, End) index range.
type Window struct {
	Start, End int
}

// HistoricalWindows returns [i-size, i) for i = size, 2*size, ... while i < n.
// A window ending exactly at n is the current window and is not historical.
func HistoricalWindows(n, size int) []Window {
	if size <= 0 {
		return nil
	}
	var out []Window
	for i := size; i < n; i += size {
		out = append(out, Window{Start: i - size, End: i})
	}
	return out
}
