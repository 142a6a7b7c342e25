package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/reqprobe/reqprobe/packages/request"
)

// Metrics aggregates execution latency and outcome counts.
type Metrics struct {
	mu sync.RWMutex

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	errorRequests   atomic.Int64
	timeoutRequests atomic.Int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		// Histogram: 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Record folds one outcome into the aggregates.
func (m *Metrics) Record(outcome *request.Outcome) {
	if outcome == nil {
		return
	}

	m.totalRequests.Add(1)
	if outcome.Success {
		m.successRequests.Add(1)
	} else {
		m.errorRequests.Add(1)
		if outcome.IsTimeout() {
			m.timeoutRequests.Add(1)
		}
	}

	latencyUs := outcome.DurationMs * 1000
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	m.mu.Unlock()
}

// Summary is a point-in-time aggregate of recorded executions.
type Summary struct {
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	TimeoutCount  int64
	SuccessRate   float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// GetSummary returns the metrics summary.
func (m *Metrics) GetSummary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.totalRequests.Load()
	success := m.successRequests.Load()

	successRate := float64(0)
	if total > 0 {
		successRate = float64(success) / float64(total)
	}

	return Summary{
		TotalRequests: total,
		SuccessCount:  success,
		ErrorCount:    m.errorRequests.Load(),
		TimeoutCount:  m.timeoutRequests.Load(),
		SuccessRate:   successRate,
		P50:           time.Duration(m.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:           time.Duration(m.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99:           time.Duration(m.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Min:           time.Duration(m.histogram.Min()) * time.Microsecond,
		Max:           time.Duration(m.histogram.Max()) * time.Microsecond,
		Mean:          time.Duration(m.histogram.Mean()) * time.Microsecond,
	}
}
