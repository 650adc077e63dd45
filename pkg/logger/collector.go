package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of digests to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectorConfig struct {
	FlushInterval time.Duration // e.g. 30s
	MaxDistinct   int           // flush early once this many distinct entries are buffered
	Topic         string
	Publisher     Publisher
}

// Digest is one deduplicated log line with its occurrence count.
type Digest struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector deduplicates repeated error entries and publishes them in batches,
// so a failing downstream produces one digest per interval instead of a flood.
type Collector struct {
	cfg     CollectorConfig
	mu      sync.Mutex
	digests map[string]*Digest
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.MaxDistinct <= 0 {
		cfg.MaxDistinct = 100
	}
	c := &Collector{
		cfg:     cfg,
		digests: make(map[string]*Digest),
		stopCh:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *Collector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := digestKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.digests[key]; ok {
		d.Count++
		d.LastSeen = now
	} else {
		c.digests[key] = &Digest{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.digests) >= c.cfg.MaxDistinct {
		c.flushLocked(false)
	}
}

// Pending returns the number of distinct buffered digests.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.digests)
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	raw, _ := json.Marshal(struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *Collector) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked(false)
			c.mu.Unlock()
		case <-c.stopCh:
			c.mu.Lock()
			c.flushLocked(true)
			c.mu.Unlock()
			return
		}
	}
}

// flushLocked must be called with c.mu held. The final flush on Close is synchronous.
func (c *Collector) flushLocked(sync bool) {
	if len(c.digests) == 0 || c.cfg.Publisher == nil {
		return
	}
	batch := make([]Digest, 0, len(c.digests))
	for _, d := range c.digests {
		batch = append(batch, *d)
	}
	c.digests = make(map[string]*Digest)

	send := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			// the logger itself is the failing path here
			fmt.Fprintf(os.Stderr, "log collector: publish %d digests: %v\n", len(batch), err)
		}
	}
	if sync {
		send()
		return
	}
	go send()
}

// Close stops the flush loop after a final synchronous flush.
func (c *Collector) Close() {
	c.once.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
}
