// Package telemetry carries named scalar values out of the control loop.
//
// Publishing is fire-and-forget: a Sink never returns an error and must not
// stop the cycle that calls it.
package telemetry

import (
	"sort"
	"sync"

	"swerve-core/utils"
)

// Sink receives one named value at a time.
type Sink interface {
	Publish(name string, value float64)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(string, float64) {}

// Multi fans a value out to every sink.
type Multi []Sink

func (m Multi) Publish(name string, value float64) {
	for _, s := range m {
		s.Publish(name, value)
	}
}

// Safe wraps a sink so a panicking backend cannot abort the caller.
func Safe(s Sink, log *utils.Logger) Sink {
	if s == nil {
		return Nop{}
	}
	return safeSink{inner: s, log: log}
}

type safeSink struct {
	inner Sink
	log   *utils.Logger
}

func (s safeSink) Publish(name string, value float64) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Error("telemetry publish %s panicked: %v", name, r)
		}
	}()
	s.inner.Publish(name, value)
}

// LogSink writes every value at trace level.
type LogSink struct {
	Log *utils.Logger
}

func (s LogSink) Publish(name string, value float64) {
	s.Log.Trace("telemetry %s=%.4f", name, value)
}

// Recorder keeps the latest value per name.
type Recorder struct {
	mu     sync.RWMutex
	values map[string]float64
	counts map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{values: map[string]float64{}, counts: map[string]int{}}
}

func (r *Recorder) Publish(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
	r.counts[name]++
}

// Value returns the latest value for name.
func (r *Recorder) Value(name string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Count returns how many times name was published.
func (r *Recorder) Count(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[name]
}

// Names returns every published name, sorted.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
