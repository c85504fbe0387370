// Package metric exposes processing counters of graphs with expvar.
// Counters are updated with atomic operations and can be captured on
// the processing goroutine.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/graph/signal"
)

const graphsLabel = "graph"

const (
	// BlockCounter measures number of processed blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// ProcessingCounter measures the time spent in the last block.
	ProcessingCounter = "Processing"
	// GraphCounter counts number of graphs metered under the name.
	GraphCounter = "Graphs"
	// EventCounter counts delivered events.
	EventCounter = "Events"
	// ClampedCounter counts events with offset outside of the block.
	ClampedCounter = "Clamped"
	// DroppedCounter counts events rejected by a full queue.
	DroppedCounter = "Dropped"
	// StealCounter counts voices reassigned while active.
	StealCounter = "Steals"
)

var (
	graphs = metrics{
		m: make(map[string]*metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
		ProcessingCounter,
		GraphCounter,
		EventCounter,
		ClampedCounter,
		DroppedCounter,
		StealCounter,
	}
)

// Get metrics values for provided graph name.
func Get(name string) map[string]string {
	return getCounters(name)
}

// GetAll returns counters for all measured graphs.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	graphs.Lock()
	defer graphs.Unlock()
	for name := range graphs.m {
		m[name] = getCounters(name)
	}
	return m
}

func getCounters(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(name, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until graph is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when block is processed. Start is the
// time when processing of the block started.
type MeasureFunc func(blockSize int64, start time.Time)

// CountFunc adds delta to a counter.
type CountFunc func(delta int64)

// Meter creates new meter closure to capture graph counters.
func Meter(name string, sampleRate int) ResetFunc {
	metric := graphs.get(name)
	metric.graphs.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			blockSize     int64
			blockDuration time.Duration
		)
		return func(s int64, start time.Time) {
			now := time.Now()
			metric.latency.set(now.Sub(calledAt))
			metric.processing.set(now.Sub(start))
			metric.blocks.Add(1)
			metric.samples.Add(s)
			// recalculate block duration only when block size has changed
			if blockSize != s {
				blockSize = s
				blockDuration = signal.DurationOf(sampleRate, s)
			}
			metric.duration.add(blockDuration)
			calledAt = now
		}
	}
}

// Counter returns a function that increments one of event counters.
// It panics if counter is not an event counter.
func Counter(name, counter string) CountFunc {
	metric := graphs.get(name)
	var v *expvar.Int
	switch counter {
	case EventCounter:
		v = metric.events
	case ClampedCounter:
		v = metric.clamped
	case DroppedCounter:
		v = metric.dropped
	case StealCounter:
		v = metric.steals
	default:
		panic(fmt.Sprintf("unknown counter %q", counter))
	}
	return v.Add
}

type metrics struct {
	sync.Mutex
	m map[string]*metric
}

func (m *metrics) get(name string) *metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[name]; ok {
		// return existing metric if available
		return metric
	}
	metric := newMetric(name)
	m.m[name] = metric
	return metric
}

type metric struct {
	graphs     *expvar.Int
	blocks     *expvar.Int
	samples    *expvar.Int
	events     *expvar.Int
	clamped    *expvar.Int
	dropped    *expvar.Int
	steals     *expvar.Int
	latency    *duration
	duration   *duration
	processing *duration
}

func newMetric(name string) *metric {
	m := metric{
		graphs:     expvar.NewInt(key(name, GraphCounter)),
		blocks:     expvar.NewInt(key(name, BlockCounter)),
		samples:    expvar.NewInt(key(name, SampleCounter)),
		events:     expvar.NewInt(key(name, EventCounter)),
		clamped:    expvar.NewInt(key(name, ClampedCounter)),
		dropped:    expvar.NewInt(key(name, DroppedCounter)),
		steals:     expvar.NewInt(key(name, StealCounter)),
		latency:    &duration{},
		duration:   &duration{},
		processing: &duration{},
	}
	expvar.Publish(key(name, LatencyCounter), m.latency)
	expvar.Publish(key(name, DurationCounter), m.duration)
	expvar.Publish(key(name, ProcessingCounter), m.processing)
	return &m
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", graphsLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
