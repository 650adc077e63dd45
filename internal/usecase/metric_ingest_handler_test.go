package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FusionRisk/internal/domain/models"
	pkgkafka "FusionRisk/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricIngestSingleEvent(t *testing.T) {
	store := &fakeStore{}
	m := newFakeMetrics()
	h := NewMetricIngestHandler("metrics", store, m, nil)
	assert.Equal(t, "metrics", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"event_type":"signup","confidence_score":0.9,"feedback_score":0.8,"adjustment_type":"reinforce","created_at":"2024-10-10T10:10:10Z"}`))
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	r := store.inserted[0]
	assert.Equal(t, "signup", r.EventType)
	assert.Equal(t, 0.9, *r.ConfidenceScore)
	assert.Equal(t, models.AdjustmentReinforce, *r.AdjustmentType)
	assert.True(t, time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Equal(r.CreatedAt))
	assert.Equal(t, 1, m.ingested)
}

func TestMetricIngestBatchWithMissingFields(t *testing.T) {
	store := &fakeStore{}
	h := NewMetricIngestHandler("metrics", store, nil, nil)
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	err := h.Handle(context.Background(), []byte(`[{"event_type":"a"},{"event_type":"b","feedback_score":0.1,"created_at":"1700000000"}]`))
	require.NoError(t, err)

	require.Len(t, store.inserted, 2)
	assert.Nil(t, store.inserted[0].ConfidenceScore)
	assert.Nil(t, store.inserted[0].AdjustmentType)
	assert.Equal(t, now, store.inserted[0].CreatedAt)
	assert.Equal(t, int64(1700000000), store.inserted[1].CreatedAt.Unix())
}

func TestMetricIngestRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing event type": `{"confidence_score":0.5}`,
		"score out of range": `{"event_type":"a","confidence_score":1.5}`,
		"unknown adjustment": `{"event_type":"a","adjustment_type":"boost"}`,
		"malformed":          `{"event_type":`,
		"empty":              `  `,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			err := NewMetricIngestHandler("metrics", store, nil, nil).Handle(context.Background(), []byte(payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMetric)
			assert.Empty(t, store.inserted)
		})
	}
}

func TestMetricIngestStoreFailure(t *testing.T) {
	h := NewMetricIngestHandler("metrics", &fakeStore{insertErr: errors.New("down")}, nil, nil)
	err := h.Handle(context.Background(), []byte(`{"event_type":"a"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidMetric)
}

func TestIngestValidationHook(t *testing.T) {
	h := NewIngestValidationHook(nil)

	_, _, _, err := h.BeforeHandle(context.Background(), "metrics", kafka.Message{}, []byte(`{"event_type":"a"}`))
	assert.NoError(t, err)

	_, _, _, err = h.BeforeHandle(context.Background(), "metrics", kafka.Message{}, []byte(`not json`))
	var hookErr *pkgkafka.HookError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, "ERR_VALIDATION", hookErr.Code)
}
