package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FusionRisk/internal/domain/models"
	domrepo "FusionRisk/internal/domain/repository"
	xhttp "FusionRisk/pkg/http"
	pkgkafka "FusionRisk/pkg/kafka"
	applogger "FusionRisk/pkg/logger"
	"FusionRisk/pkg/util"

	"github.com/segmentio/kafka-go"
)

// ErrInvalidMetric marks payloads that can never be stored.
var ErrInvalidMetric = errors.New("invalid metric event")

// MetricEvent is the wire form of one MetricRecord on the metrics topic.
type MetricEvent struct {
	EventType       string   `json:"event_type" validate:"required,max=128"`
	ConfidenceScore *float64 `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
	FeedbackScore   *float64 `json:"feedback_score" validate:"omitempty,gte=0,lte=1"`
	AdjustmentType  *string  `json:"adjustment_type" validate:"omitempty,oneof=reinforce tune reset"`
	CreatedAt       string   `json:"created_at"`
}

func (e MetricEvent) record(now time.Time) models.MetricRecord {
	r := models.MetricRecord{
		EventType:       e.EventType,
		ConfidenceScore: e.ConfidenceScore,
		FeedbackScore:   e.FeedbackScore,
		CreatedAt:       util.ParseTimeDefault(e.CreatedAt, now),
	}
	if e.AdjustmentType != nil {
		at := models.AdjustmentType(*e.AdjustmentType)
		r.AdjustmentType = &at
	}
	return r
}

// MetricIngestHandler appends metric events consumed from Kafka. A message
// holds one event object or an array of them; the batch is stored atomically.
type MetricIngestHandler struct {
	topic   string
	store   domrepo.MetricStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewMetricIngestHandler(topic string, store domrepo.MetricStore, metrics domrepo.Metrics, l *applogger.Logger) *MetricIngestHandler {
	return &MetricIngestHandler{
		topic:   topic,
		store:   store,
		metrics: orNoop(metrics),
		l:       orNop(l),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *MetricIngestHandler) Topic() string { return h.topic }

func (h *MetricIngestHandler) Handle(ctx context.Context, data []byte) error {
	events, err := decodeMetricEvents(data)
	if err != nil {
		h.metrics.RecordError("ingest_decode")
		return err
	}

	now := h.now()
	records := make([]models.MetricRecord, 0, len(events))
	for i, e := range events {
		if err := xhttp.ValidateStruct(e); err != nil {
			h.metrics.RecordError("ingest_validate")
			return fmt.Errorf("%w: event %d: %v", ErrInvalidMetric, i, err)
		}
		records = append(records, e.record(now))
	}
	if len(records) == 0 {
		return nil
	}

	if err := h.store.InsertRecords(ctx, records); err != nil {
		h.metrics.RecordError("ingest_store")
		return fmt.Errorf("insert metric records: %w", err)
	}
	h.metrics.RecordIngested(len(records))
	h.l.Debug("metric ingest: stored",
		applogger.Int("records", len(records)),
		applogger.String("trace_id", pkgkafka.TraceID(ctx)),
	)
	return nil
}

func decodeMetricEvents(data []byte) ([]MetricEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidMetric)
	}
	if trimmed[0] == '[' {
		var events []MetricEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetric, err)
		}
		return events, nil
	}
	var e MetricEvent
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetric, err)
	}
	return []MetricEvent{e}, nil
}

// IngestValidationHook rejects malformed JSON before the handler runs, so
// poison messages go straight to error handling.
type IngestValidationHook struct {
	pkgkafka.NoopHook
	l *applogger.Logger
}

func NewIngestValidationHook(l *applogger.Logger) *IngestValidationHook {
	return &IngestValidationHook{l: orNop(l)}
}

func (h *IngestValidationHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	if !json.Valid(data) {
		return ctx, km, data, &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: ErrInvalidMetric}
	}
	return ctx, km, data, nil
}

func (h *IngestValidationHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	h.l.Warn("metric ingest: message rejected",
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
		applogger.Error(err),
	)
}
