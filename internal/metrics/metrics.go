package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric captures error rates
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timerState struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

type errorRateState struct {
	total  int64
	errors int64
}

// Metrics is an in-memory metrics collector. All record paths are atomic
// after the first registration of a name, so it is safe to share across
// request handlers and worker goroutines.
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timerState
	errorRates   map[string]*errorRateState
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timerState),
		errorRates:   make(map[string]*errorRateState),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// counter returns the named counter cell, registering it on first use.
func (m *Metrics) counter(in map[string]*int64, name string) *int64 {
	m.mu.RLock()
	cell, ok := in[name]
	m.mu.RUnlock()
	if ok {
		return cell
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cell, ok = in[name]; !ok {
		cell = new(int64)
		in[name] = cell
	}
	return cell
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(m.counter(m.counters, name), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.counter(m.gauges, name), value)
}

// RecordTimer records a timing measurement
func (m *Metrics) RecordTimer(name string, durationMs int64) {
	m.mu.RLock()
	timer, ok := m.timers[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if timer, ok = m.timers[name]; !ok {
			timer = &timerState{minTimeMs: math.MaxInt64}
			m.timers[name] = timer
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&timer.count, 1)
	atomic.AddInt64(&timer.totalTimeMs, durationMs)

	for {
		min := atomic.LoadInt64(&timer.minTimeMs)
		if durationMs >= min || atomic.CompareAndSwapInt64(&timer.minTimeMs, min, durationMs) {
			break
		}
	}
	for {
		max := atomic.LoadInt64(&timer.maxTimeMs)
		if durationMs <= max || atomic.CompareAndSwapInt64(&timer.maxTimeMs, max, durationMs) {
			break
		}
	}
}

// TimeSince records the elapsed time since start under the given timer name
func (m *Metrics) TimeSince(name string, start time.Time) {
	m.RecordTimer(name, time.Since(start).Milliseconds())
}

// RecordSuccess records a successful operation for error rate tracking
func (m *Metrics) RecordSuccess(name string) {
	m.recordOutcome(name, false)
}

// RecordError records an error for error rate tracking
func (m *Metrics) RecordError(name string) {
	m.recordOutcome(name, true)
}

func (m *Metrics) recordOutcome(name string, isError bool) {
	m.mu.RLock()
	rate, ok := m.errorRates[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if rate, ok = m.errorRates[name]; !ok {
			rate = &errorRateState{}
			m.errorRates[name] = rate
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&rate.total, 1)
	if isError {
		atomic.AddInt64(&rate.errors, 1)
	}
}

// SetHealth sets the health status of a component (0 = unhealthy, 1 = healthy)
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	var value int64
	if isHealthy {
		value = 1
	}
	atomic.StoreInt64(m.counter(m.healthChecks, component), value)
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return m.snapshotInt64(m.counters)
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return m.snapshotInt64(m.gauges)
}

func (m *Metrics) snapshotInt64(in map[string]*int64) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(in))
	for name, cell := range in {
		out[name] = atomic.LoadInt64(cell)
	}
	return out
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerMetric, len(m.timers))
	for name, timer := range m.timers {
		count := atomic.LoadInt64(&timer.count)
		total := atomic.LoadInt64(&timer.totalTimeMs)

		var average float64
		if count > 0 {
			average = float64(total) / float64(count)
		}

		timers[name] = TimerMetric{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: average,
			MinTimeMs:     atomic.LoadInt64(&timer.minTimeMs),
			MaxTimeMs:     atomic.LoadInt64(&timer.maxTimeMs),
		}
	}
	return timers
}

// GetErrorRates returns all error rates
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rates := make(map[string]ErrorRateMetric, len(m.errorRates))
	for name, rate := range m.errorRates {
		total := atomic.LoadInt64(&rate.total)
		errs := atomic.LoadInt64(&rate.errors)

		var pct float64
		if total > 0 {
			pct = float64(errs) / float64(total) * 100.0
		}

		rates[name] = ErrorRateMetric{
			Total:     total,
			Errors:    errs,
			ErrorRate: pct,
		}
	}
	return rates
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.healthChecks))
	for name, health := range m.healthChecks {
		checks[name] = atomic.LoadInt64(health) > 0
	}
	return checks
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}
