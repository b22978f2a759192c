package metrics

import (
	"sync"
	"time"
)

// Registry is an in-memory metrics store for the client session: messages
// sent, uploads performed, bytes pushed. It is dumped at debug level on
// shutdown rather than exported.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]int64
	timers    map[string]*timerMetric
	startTime time.Time
}

type timerMetric struct {
	Count int64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Well-known metric names.
const (
	MessagesSent     = "messages_sent"
	MessagesReceived = "messages_received"
	UploadsStarted   = "uploads_started"
	UploadsFailed    = "uploads_failed"
	UploadBytes      = "upload_bytes"
	SendDuration     = "send_duration"
	UploadDuration   = "upload_duration"
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]int64),
		timers:    make(map[string]*timerMetric),
		startTime: time.Now(),
	}
}

// Add increments a counter by delta.
func (r *Registry) Add(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// Increment bumps a counter by one.
func (r *Registry) Increment(name string) {
	r.Add(name, 1)
}

// Counter returns the current value of a counter.
func (r *Registry) Counter(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Observe records one duration sample for a timer.
func (r *Registry) Observe(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[name]
	if !ok {
		t = &timerMetric{Min: d, Max: d}
		r.timers[name] = t
	}
	t.Count++
	t.Sum += d
	if d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
}

// TimerSnapshot summarizes one timer.
type TimerSnapshot struct {
	Count   int64         `json:"count"`
	Average time.Duration `json:"avg"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
}

// Snapshot returns a copy of all metrics plus the session uptime.
func (r *Registry) Snapshot() (map[string]int64, map[string]TimerSnapshot, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]int64, len(r.counters))
	for name, v := range r.counters {
		counters[name] = v
	}

	timers := make(map[string]TimerSnapshot, len(r.timers))
	for name, t := range r.timers {
		snap := TimerSnapshot{Count: t.Count, Min: t.Min, Max: t.Max}
		if t.Count > 0 {
			snap.Average = t.Sum / time.Duration(t.Count)
		}
		timers[name] = snap
	}

	return counters, timers, time.Since(r.startTime)
}
