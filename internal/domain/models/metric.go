package models

import "time"

// AdjustmentType is the corrective adjustment recorded with a metric event.
type AdjustmentType string

const (
	AdjustmentReinforce AdjustmentType = "reinforce"
	AdjustmentTune      AdjustmentType = "tune"
	AdjustmentReset     AdjustmentType = "reset"
)

func (a AdjustmentType) Valid() bool {
	switch a {
	case AdjustmentReinforce, AdjustmentTune, AdjustmentReset:
		return true
	}
	return false
}

// MetricRecord is one observed event. Records are immutable once written and
// grouped by EventType at query time.
type MetricRecord struct {
	EventType       string          `json:"event_type"`
	ConfidenceScore *float64        `json:"confidence_score"`
	FeedbackScore   *float64        `json:"feedback_score"`
	AdjustmentType  *AdjustmentType `json:"adjustment_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

// HasScores reports whether both scores are present and within [0,1].
func (r MetricRecord) HasScores() bool {
	return inUnit(r.ConfidenceScore) && inUnit(r.FeedbackScore)
}

// Complete reports whether the record carries both scores and a known adjustment type.
func (r MetricRecord) Complete() bool {
	return r.HasScores() && r.AdjustmentType != nil && r.AdjustmentType.Valid()
}

func inUnit(v *float64) bool {
	return v != nil && *v >= 0 && *v <= 1
}

// Lookback bounds a "most recent records" query. MaxAge of zero means no time bound.
type Lookback struct {
	MaxRecords int
	MaxAge     time.Duration
}

// Since returns the oldest created_at the lookback admits, or the zero time.
func (l Lookback) Since(now time.Time) time.Time {
	if l.MaxAge <= 0 {
		return time.Time{}
	}
	return now.Add(-l.MaxAge)
}

// Override returns l with the non-zero arguments applied.
func (l Lookback) Override(maxRecords int, maxAge time.Duration) Lookback {
	if maxRecords > 0 {
		l.MaxRecords = maxRecords
	}
	if maxAge > 0 {
		l.MaxAge = maxAge
	}
	return l
}

// GroupByEventType buckets records by event type and returns the keys in
// first-appearance order.
func GroupByEventType(records []MetricRecord) (map[string][]MetricRecord, []string) {
	groups := make(map[string][]MetricRecord)
	order := make([]string, 0)
	for _, r := range records {
		if _, ok := groups[r.EventType]; !ok {
			order = append(order, r.EventType)
		}
		groups[r.EventType] = append(groups[r.EventType], r)
	}
	return groups, order
}
