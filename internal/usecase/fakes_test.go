package usecase

import (
	"context"
	"sync"
	"time"

	"FusionRisk/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func adj(a models.AdjustmentType) *models.AdjustmentType { return &a }

func rec(eventType string, conf, fb float64) models.MetricRecord {
	return models.MetricRecord{
		EventType:       eventType,
		ConfidenceScore: f(conf),
		FeedbackScore:   f(fb),
		AdjustmentType:  adj(models.AdjustmentTune),
		CreatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func repeat(eventType string, n int, conf, fb float64) []models.MetricRecord {
	out := make([]models.MetricRecord, n)
	for i := range out {
		out[i] = rec(eventType, conf, fb)
	}
	return out
}

type fakeStore struct {
	mu        sync.Mutex
	records   []models.MetricRecord
	err       error
	insertErr error
	lookbacks []models.Lookback
	inserted  []models.MetricRecord
}

func (s *fakeStore) LatestRecords(_ context.Context, lb models.Lookback) ([]models.MetricRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookbacks = append(s.lookbacks, lb)
	if s.err != nil {
		return nil, s.err
	}
	if lb.MaxRecords > 0 && len(s.records) > lb.MaxRecords {
		return s.records[:lb.MaxRecords], nil
	}
	return s.records, nil
}

func (s *fakeStore) InsertRecords(_ context.Context, records []models.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, records...)
	return nil
}

func (s *fakeStore) Health(context.Context) error { return s.err }

type fakeAudit struct {
	entries []models.AuditEntry
	err     error
}

func (a *fakeAudit) WriteAudit(_ context.Context, e models.AuditEntry) error {
	a.entries = append(a.entries, e)
	return a.err
}

type fakeRiskStore struct {
	calls  int
	events []models.RiskEvent
	err    error
}

func (s *fakeRiskStore) InsertRiskEvents(_ context.Context, events []models.RiskEvent) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

type fakePublisher struct {
	events []models.RiskEvent
	err    error
}

func (p *fakePublisher) PublishRiskEvents(_ context.Context, events []models.RiskEvent) error {
	p.events = append(p.events, events...)
	return p.err
}

type fakeForecaster struct {
	report models.ForecastReport
	err    error
	got    models.Lookback
}

func (f *fakeForecaster) Forecast(_ context.Context, lb models.Lookback) (models.ForecastReport, error) {
	f.got = lb
	return f.report, f.err
}

type fakeSyncer struct {
	calls []models.SyncRequest
	fail  map[string]error
}

func (s *fakeSyncer) Sync(_ context.Context, req models.SyncRequest) error {
	s.calls = append(s.calls, req)
	return s.fail[req.EventType]
}

type fakeBaseline struct {
	report models.BaselineReport
	err    error
}

func (b *fakeBaseline) Analyze(context.Context, models.Lookback) (models.BaselineReport, error) {
	return b.report, b.err
}

type fakeMetrics struct {
	mu          sync.Mutex
	errors      map[string]int
	invocations map[string]int
	ingested    int
	syncFailed  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, invocations: map[string]int{}}
}

func (m *fakeMetrics) RecordInvocation(function, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocations[function+":"+outcome]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64)  {}
func (m *fakeMetrics) RecordRiskEvent(string, string) {}

func (m *fakeMetrics) RecordSync(_ string, ok bool) {
	if !ok {
		m.syncFailed++
	}
}

func (m *fakeMetrics) RecordIngested(n int) { m.ingested += n }
