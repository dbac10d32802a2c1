package performance

import (
	"sync"
	"time"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// Observer receives every completed marker, typically a metrics histogram.
type Observer func(operation string, success bool, duration time.Duration)

// Tracker hands out markers and aggregates their results per operation
type Tracker struct {
	mu            sync.RWMutex
	stats         map[string]*OperationStats
	slowThreshold time.Duration
	observer      Observer
	logger        *logging.ChanneledLogger
	started       time.Time
}

// OperationStats aggregates completed markers for one operation name
type OperationStats struct {
	Count       int64         `json:"count"`
	Failures    int64         `json:"failures"`
	TotalTime   time.Duration `json:"totalTime"`
	MaxDuration time.Duration `json:"maxDuration"`
	SlowCount   int64         `json:"slowCount"`
}

// AverageDuration returns the mean duration of the operation
func (s OperationStats) AverageDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Count)
}

// NewTracker creates a tracker. Operations slower than slowThreshold are logged
// on the performance channel. observer and logger may be nil.
func NewTracker(slowThreshold time.Duration, observer Observer, logger *logging.ChanneledLogger) *Tracker {
	return &Tracker{
		stats:         make(map[string]*OperationStats),
		slowThreshold: slowThreshold,
		observer:      observer,
		logger:        logger,
		started:       time.Now(),
	}
}

// StartOperation creates a new performance marker for an operation
func (t *Tracker) StartOperation(operation, subject string) *Marker {
	return &Marker{
		Operation: operation,
		Subject:   subject,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	slow := t.slowThreshold > 0 && m.Duration > t.slowThreshold

	t.mu.Lock()
	stats, ok := t.stats[m.Operation]
	if !ok {
		stats = &OperationStats{}
		t.stats[m.Operation] = stats
	}
	stats.Count++
	stats.TotalTime += m.Duration
	if !m.Success {
		stats.Failures++
	}
	if m.Duration > stats.MaxDuration {
		stats.MaxDuration = m.Duration
	}
	if slow {
		stats.SlowCount++
	}
	t.mu.Unlock()

	if t.observer != nil {
		t.observer(m.Operation, m.Success, m.Duration)
	}
	if slow && t.logger != nil {
		t.logger.Perf().Warn("Slow operation detected",
			"operation", m.Operation,
			"duration", m.Duration,
			"threshold", t.slowThreshold,
			"success", m.Success)
	}
}

// Stats returns a copy of the aggregated statistics keyed by operation
func (t *Tracker) Stats() map[string]OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]OperationStats, len(t.stats))
	for op, s := range t.stats {
		out[op] = *s
	}
	return out
}

// Uptime returns how long the tracker has been running
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
