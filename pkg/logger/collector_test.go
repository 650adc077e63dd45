package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]Digest
	err     error
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]Digest))
	return p.err
}

func (p *capturePublisher) published() [][]Digest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]Digest(nil), p.batches...)
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(CollectorConfig{FlushInterval: time.Hour, Topic: "fusionrisk.logs", Publisher: pub})

	fields := map[string]interface{}{"function": "risk-engine"}
	c.Add("error", "reinforcement sync failed", fields, "risk_engine.go:88")
	c.Add("error", "reinforcement sync failed", fields, "risk_engine.go:88")
	c.Add("error", "insert failed", nil, "clickhouse_risk_store.go:51")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	batches := pub.published()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"fusionrisk.logs"}, pub.topics)

	counts := map[string]int{}
	for _, d := range batches[0] {
		counts[d.Message] = d.Count
	}
	assert.Equal(t, map[string]int{"reinforcement sync failed": 2, "insert failed": 1}, counts)
	assert.Equal(t, 0, c.Pending())
}

func TestCollectorFlushesWhenFull(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(CollectorConfig{FlushInterval: time.Hour, MaxDistinct: 2, Publisher: pub})
	defer c.Close()

	c.Add("error", "a", nil, "")
	c.Add("error", "b", nil, "")

	assert.Equal(t, 0, c.Pending())
	assert.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorWithoutPublisherKeepsBuffer(t *testing.T) {
	c := NewCollector(CollectorConfig{FlushInterval: time.Hour})
	c.Add("error", "a", nil, "")
	c.Close()
	assert.Equal(t, 1, c.Pending())
}

func TestCollectorPublishErrorIsSwallowed(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	c := NewCollector(CollectorConfig{FlushInterval: time.Hour, Publisher: pub})
	c.Add("error", "a", nil, "")

	assert.NotPanics(t, c.Close)
	assert.Len(t, pub.published(), 1)
}
