package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeProber struct {
	mu      sync.Mutex
	latency map[string]time.Duration
	failing map[string]bool
}

func (p *fakeProber) Probe(ctx context.Context, endpoint string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[endpoint] {
		return 0, errors.New("unreachable")
	}
	if endpoint == "panic" {
		panic("boom")
	}
	return p.latency[endpoint], nil
}

type recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *recorder) listen(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func newTestMonitor(signal Signal, prober Prober, endpoints ...string) *Monitor {
	return New(Config{
		Endpoints:      endpoints,
		Interval:       time.Hour,
		SignalInterval: time.Hour,
		ProbeTimeout:   time.Second,
		Thresholds:     testThresholds,
	}, signal, prober)
}

func TestMonitor_CheckClassifies(t *testing.T) {
	prober := &fakeProber{latency: map[string]time.Duration{"a": 20 * time.Millisecond, "b": 40 * time.Millisecond}}
	m := newTestMonitor(NewStaticSignal(true), prober, "a", "b")

	status := m.Check(context.Background())
	if !status.IsOnline || status.Quality != QualityExcellent {
		t.Fatalf("expected online excellent, got %+v", status)
	}
	if status.SuccessRate != 1 {
		t.Fatalf("expected success rate 1, got %v", status.SuccessRate)
	}
	if status.ResponseTimeMS != 30 {
		t.Fatalf("expected 30ms mean, got %d", status.ResponseTimeMS)
	}
}

func TestMonitor_ProbePanicCountsAsFailure(t *testing.T) {
	prober := &fakeProber{latency: map[string]time.Duration{"a": 20 * time.Millisecond}}
	m := newTestMonitor(NewStaticSignal(true), prober, "a", "panic")

	status := m.Check(context.Background())
	if status.Quality != QualityFair {
		t.Fatalf("expected fair with one success, got %s", status.Quality)
	}
}

func TestMonitor_SubscribeDeliversImmediately(t *testing.T) {
	m := newTestMonitor(NewStaticSignal(false), &fakeProber{}, "a")
	rec := &recorder{}

	unsubscribe := m.Subscribe(rec.listen)
	got := rec.snapshot()
	if len(got) != 1 || got[0].Quality != QualityOffline {
		t.Fatalf("expected immediate offline status, got %+v", got)
	}

	unsubscribe()
	m.Check(context.Background())
	if len(rec.snapshot()) != 1 {
		t.Fatalf("unsubscribed listener should not be notified")
	}
}

func TestMonitor_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	m := newTestMonitor(NewStaticSignal(true), &fakeProber{latency: map[string]time.Duration{"a": time.Millisecond, "b": time.Millisecond}}, "a", "b")
	rec := &recorder{}

	m.Subscribe(func(Status) { panic("listener bug") })
	m.Subscribe(rec.listen)

	m.Check(context.Background())
	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[1].Quality != QualityExcellent {
		t.Fatalf("expected excellent, got %s", got[1].Quality)
	}
}

func TestMonitor_SignalTransitions(t *testing.T) {
	signal := NewStaticSignal(true)
	m := newTestMonitor(signal, &fakeProber{latency: map[string]time.Duration{"a": time.Millisecond, "b": time.Millisecond}}, "a", "b")
	ctx := context.Background()
	m.Check(ctx)

	rec := &recorder{}
	m.Subscribe(rec.listen)

	signal.Set(false)
	m.pollSignal(ctx)
	if s := m.Status(); s.IsOnline || s.Quality != QualityOffline {
		t.Fatalf("expected offline after signal loss, got %+v", s)
	}

	m.pollSignal(ctx)
	if n := len(rec.snapshot()); n != 2 {
		t.Fatalf("unchanged signal must not republish, got %d deliveries", n)
	}

	signal.Set(true)
	m.pollSignal(ctx)
	if s := m.Status(); !s.IsOnline || s.Quality != QualityExcellent {
		t.Fatalf("expected recheck on restore, got %+v", s)
	}
	if n := len(rec.snapshot()); n != 3 {
		t.Fatalf("expected 3 deliveries, got %d", n)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	m := newTestMonitor(NewStaticSignal(true), &fakeProber{}, "a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	m.Stop()
	m.Stop()
}
