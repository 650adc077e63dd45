package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	xhttp "FusionRisk/pkg/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Every key shares the same burst and refill rate.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time

	pruneEvery time.Duration
	idleAfter  time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
}

func New(burst, refillPerSec float64) *Limiter {
	return &Limiter{
		visitors:   make(map[string]*visitor),
		limit:      rate.Limit(refillPerSec),
		burst:      int(burst),
		now:        time.Now,
		pruneEvery: time.Minute,
		idleAfter:  10 * time.Minute,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Allow reports whether one request for key fits in its bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Prune drops visitors idle for longer than idle; their buckets would be full again.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the limit with 429. Clients are keyed by real IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				return xhttp.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests", nil)
			}
			return next(c)
		}
	}
}

// Start prunes idle visitors in the background until Stop.
func (l *Limiter) Start() {
	go func() {
		defer close(l.doneCh)
		ticker := time.NewTicker(l.pruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Prune(l.idleAfter)
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Stop ends the prune loop started by Start.
func (l *Limiter) Stop(ctx context.Context) error {
	close(l.stopCh)
	select {
	case <-l.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
