package netmon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"golang.org/x/sync/errgroup"
)

// Status is the current connectivity view.
type Status struct {
	IsOnline       bool      `json:"isOnline"`
	Quality        Quality   `json:"quality"`
	Timestamp      time.Time `json:"timestamp"`
	ResponseTimeMS int64     `json:"responseTime"`
	SuccessRate    float64   `json:"successRate"`
}

// Prober measures one endpoint. A nil error means the endpoint answered.
type Prober interface {
	Probe(ctx context.Context, endpoint string) (time.Duration, error)
}

// Listener receives every recomputed status.
type Listener func(Status)

type Config struct {
	Endpoints      []string
	Interval       time.Duration
	SignalInterval time.Duration
	ProbeTimeout   time.Duration
	Thresholds     Thresholds
}

// Monitor tracks online state and quality, and fans status out to listeners.
type Monitor struct {
	cfg    Config
	signal Signal
	prober Prober
	now    func() time.Time

	mu        sync.RWMutex
	status    Status
	listeners map[int]Listener
	nextID    int

	checkMu sync.Mutex
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func New(cfg Config, signal Signal, prober Prober) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.SignalInterval <= 0 {
		cfg.SignalInterval = 2 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if signal == nil {
		signal = InterfaceSignal{}
	}
	return &Monitor{
		cfg:       cfg,
		signal:    signal,
		prober:    prober,
		now:       time.Now,
		status:    Status{Quality: QualityOffline},
		listeners: make(map[int]Listener),
		stop:      make(chan struct{}),
	}
}

// Start runs an initial check, then polls the signal and recomputes quality on their intervals.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		qualityTicker := time.NewTicker(m.cfg.Interval)
		signalTicker := time.NewTicker(m.cfg.SignalInterval)
		defer qualityTicker.Stop()
		defer signalTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-qualityTicker.C:
				m.Check(ctx)
			case <-signalTicker.C:
				m.pollSignal(ctx)
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe delivers the current status right away and every later one.
// The returned func unregisters the listener.
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	current := m.status
	m.mu.Unlock()

	m.deliver(id, l, current)

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Check probes all endpoints and publishes the result.
func (m *Monitor) Check(ctx context.Context) Status {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	online := m.signal.Online(ctx)
	var meas Measurement
	if online {
		meas = Measure(m.probeAll(ctx))
	}

	status := Status{
		IsOnline:       online,
		Quality:        Classify(online, meas, m.cfg.Thresholds),
		Timestamp:      m.now(),
		ResponseTimeMS: meas.MeanLatency.Milliseconds(),
		SuccessRate:    meas.SuccessRate,
	}
	m.publish(status)
	return status
}

func (m *Monitor) pollSignal(ctx context.Context) {
	online := m.signal.Online(ctx)
	prev := m.Status()
	if online == prev.IsOnline {
		return
	}

	if online {
		logger.Infow("Network signal restored")
		m.Check(ctx)
		return
	}

	logger.Warnw("Network signal lost")
	m.publish(Status{IsOnline: false, Quality: QualityOffline, Timestamp: m.now()})
}

const maxParallelProbes = 8

func (m *Monitor) probeAll(ctx context.Context) []ProbeResult {
	endpoints := m.cfg.Endpoints
	if len(endpoints) == 0 || m.prober == nil {
		return nil
	}

	results := make([]ProbeResult, len(endpoints))
	var g errgroup.Group
	g.SetLimit(maxParallelProbes)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			results[i] = m.probeOne(ctx, endpoint)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Monitor) probeOne(ctx context.Context, endpoint string) (result ProbeResult) {
	result.Endpoint = endpoint
	defer func() {
		if r := recover(); r != nil {
			result.OK = false
			result.Err = fmt.Errorf("probe panic: %v", r)
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	latency, err := m.prober.Probe(probeCtx, endpoint)
	if err != nil {
		logger.Debugw("Probe failed", "endpoint", endpoint, "error", err.Error())
		result.Err = err
		return result
	}
	result.OK = true
	result.Latency = latency
	return result
}

func (m *Monitor) publish(status Status) {
	m.mu.Lock()
	prev := m.status
	m.status = status
	listeners := make(map[int]Listener, len(m.listeners))
	for id, l := range m.listeners {
		listeners[id] = l
	}
	m.mu.Unlock()

	if prev.Quality != status.Quality || prev.IsOnline != status.IsOnline {
		logger.Infow("Network status changed",
			"online", status.IsOnline,
			"quality", string(status.Quality),
			"previous_quality", string(prev.Quality),
			"success_rate", status.SuccessRate,
			"response_time_ms", status.ResponseTimeMS,
		)
	}

	for id, l := range listeners {
		m.deliver(id, l, status)
	}
}

// deliver isolates a listener so its panic cannot stop the rest.
func (m *Monitor) deliver(id int, l Listener, status Status) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("Network listener panicked", "listener", id, "panic", fmt.Sprint(r))
		}
	}()
	l(status)
}
