package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	mu       sync.Mutex
	calls    int
	failures int // calls that fail before the handler starts succeeding; -1 fails forever
}

func (h *countingHandler) Topic() string { return "fusionrisk.metric_events" }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.failures < 0 || h.calls <= h.failures {
		return errors.New("store unavailable")
	}
	return nil
}

type rejectingHook struct {
	NoopHook
	errs int
}

func (h *rejectingHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, &HookError{Code: "ERR_VALIDATION", Err: errors.New("not json")}
}

func (h *rejectingHook) OnError(context.Context, string, kafka.Message, []byte, error) { h.errs++ }

func newTestConsumer(t *testing.T, retryMax int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"127.0.0.1:9092"}),
		WithConsumerRetry(retryMax, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func testMessage() *message {
	return &message{
		topic: "fusionrisk.metric_events",
		km:    kafka.Message{Partition: 0, Offset: 7, Value: []byte(`{"event_type":"signup"}`)},
	}
}

func TestHandleWithRetryExhaustsAttempts(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &countingHandler{failures: -1}

	attempts, err := c.handleWithRetry(h, testMessage())

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, h.calls)
}

func TestHandleWithRetryRecovers(t *testing.T) {
	c := newTestConsumer(t, 2)
	h := &countingHandler{failures: 1}

	attempts, err := c.handleWithRetry(h, testMessage())

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, h.calls)
}

func TestHandleWithRetryHookRejectionSkipsRetry(t *testing.T) {
	c := newTestConsumer(t, 2)
	c.WithConsumerHook(&rejectingHook{})
	h := &countingHandler{}

	attempts, err := c.handleWithRetry(h, testMessage())

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_VALIDATION", hookErr.Code)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, h.calls)
}

func TestHandleWithRetryStopsOnShutdown(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"127.0.0.1:9092"}),
		WithConsumerRetry(5, time.Hour, time.Hour),
	)
	require.NoError(t, err)
	close(c.stopChan)
	h := &countingHandler{failures: -1}

	attempts, err := c.handleWithRetry(h, testMessage())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestProcessReportsFailureToHooks(t *testing.T) {
	c := newTestConsumer(t, 1)
	hook := &rejectingHook{}
	c.WithConsumerHook(hook)
	h := &countingHandler{}

	assert.NotPanics(t, func() { c.process(h, testMessage()) })
	assert.Equal(t, 1, hook.errs)
	assert.Zero(t, h.calls)
}

func TestHookChainRejectionNotifiesEveryHook(t *testing.T) {
	first, second := &rejectingHook{}, &rejectingHook{}
	chain := NewHookChain(TraceHook{}, first, second, nil)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, first.errs)
	assert.Equal(t, 1, second.errs)
}

func TestTraceHookStampsTraceID(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc-123")}}}

	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "t", km, nil)

	require.NoError(t, err)
	assert.Equal(t, "abc-123", TraceID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		exp := min << uint(attempt-1)
		if exp > max {
			exp = max
		}
		for i := 0; i < 50; i++ {
			d := backoffWithJitter(min, max, attempt)
			assert.LessOrEqual(t, d, exp, "attempt %d", attempt)
			assert.GreaterOrEqual(t, d, exp/2, "attempt %d", attempt)
		}
	}
}

func TestBackoffWithJitterDefaults(t *testing.T) {
	d := backoffWithJitter(0, 0, 0)
	assert.LessOrEqual(t, d, 50*time.Millisecond)
	assert.Greater(t, d, 25*time.Millisecond-time.Nanosecond)

	d = backoffWithJitter(time.Millisecond, 10*time.Millisecond, 80)
	assert.LessOrEqual(t, d, 10*time.Millisecond)
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
}
