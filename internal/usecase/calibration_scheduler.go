package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FusionRisk/internal/domain/models"
	"FusionRisk/pkg/cache"
	applogger "FusionRisk/pkg/logger"
)

const (
	calibrationNamespace = "calibration"
	calibrationLockKey   = "lock"
	calibrationLatestKey = "latest"
)

// ErrNoCalibration is returned by Latest before any scheduled run has completed.
var ErrNoCalibration = errors.New("calibration: no report available")

// CalibrationRunner is satisfied by CalibrationLoop.
type CalibrationRunner interface {
	Run(ctx context.Context, override models.Lookback) (models.CalibrationReport, error)
}

// CalibrationScheduler runs the calibration loop periodically. A cache lock
// ensures one replica runs each tick; the latest report is kept in the cache.
type CalibrationScheduler struct {
	runner   CalibrationRunner
	cache    cache.Service
	interval time.Duration
	l        *applogger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewCalibrationScheduler(runner CalibrationRunner, c cache.Service, interval time.Duration, l *applogger.Logger) *CalibrationScheduler {
	return &CalibrationScheduler{
		runner:   runner,
		cache:    c,
		interval: interval,
		l:        orNop(l),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the ticker goroutine. A non-positive interval disables it.
func (s *CalibrationScheduler) Start() {
	if s.interval <= 0 {
		s.l.Info("calibration scheduler: disabled")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				if _, err := s.RunOnce(ctx); err != nil {
					s.l.Error("calibration scheduler: tick failed", applogger.Error(err))
				}
				cancel()
			}
		}
	}()
	s.l.Info("calibration scheduler: started", applogger.Duration("interval", s.interval))
}

// Stop waits for an in-flight tick or ctx expiry.
func (s *CalibrationScheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs one calibration if the lock is free. It reports whether the
// run happened on this replica. A successful run keeps the lock until its TTL,
// just under one interval, so other replicas skip the same tick. A failed run
// releases it for another replica to retry.
func (s *CalibrationScheduler) RunOnce(ctx context.Context) (ran bool, err error) {
	lockKey := cache.Key(calibrationNamespace, calibrationLockKey)
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	ok, err := s.cache.TryLock(ctx, lockKey, lockTTL(interval))
	if err != nil {
		return false, fmt.Errorf("acquire calibration lock: %w", err)
	}
	if !ok {
		s.l.Debug("calibration scheduler: lock held elsewhere, skipping tick")
		return false, nil
	}
	defer func() {
		if err == nil {
			return
		}
		if uerr := s.cache.Unlock(context.Background(), lockKey); uerr != nil {
			s.l.Warn("calibration scheduler: unlock failed", applogger.Error(uerr))
		}
	}()

	report, err := s.runner.Run(ctx, models.Lookback{})
	if err != nil {
		return true, fmt.Errorf("run calibration: %w", err)
	}
	if err := s.cache.Set(ctx, cache.Key(calibrationNamespace, calibrationLatestKey), report, 2*interval); err != nil {
		return true, fmt.Errorf("store calibration report: %w", err)
	}
	s.l.Info("calibration scheduler: report stored", applogger.Int("categories", report.CategoriesCalibrated))
	return true, nil
}

// lockTTL leaves a tenth of the interval, at most five seconds, for clock skew
// between replicas so the next tick finds the lock expired.
func lockTTL(interval time.Duration) time.Duration {
	slack := interval / 10
	if slack > 5*time.Second {
		slack = 5 * time.Second
	}
	return interval - slack
}

// Latest returns the most recent scheduled report.
func (s *CalibrationScheduler) Latest(ctx context.Context) (models.CalibrationReport, error) {
	var report models.CalibrationReport
	err := s.cache.Get(ctx, cache.Key(calibrationNamespace, calibrationLatestKey), &report)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.CalibrationReport{}, ErrNoCalibration
	}
	if err != nil {
		return models.CalibrationReport{}, fmt.Errorf("load calibration report: %w", err)
	}
	return report, nil
}
