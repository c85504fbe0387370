package graph

import "pipelined.dev/graph/log"

// Option configures the graph.
type Option func(*Graph)

// WithEventSinks adds sinks that receive every drained event.
func WithEventSinks(sinks ...EventSink) Option {
	return func(g *Graph) {
		g.sinks = append(g.sinks, sinks...)
	}
}

// WithAdvancers adds components notified after every block.
func WithAdvancers(advancers ...Advancer) Option {
	return func(g *Graph) {
		g.advancers = append(g.advancers, advancers...)
	}
}

// WithLogger sets the logger used outside of processing.
func WithLogger(l log.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(g *Graph) {
		g.queueSize = size
	}
}

// WithSampleRate sets the sample rate used to meter signal duration.
func WithSampleRate(sampleRate int) Option {
	return func(g *Graph) {
		g.sampleRate = sampleRate
	}
}

// WithName sets the name used for metrics. Default name is the graph id.
func WithName(name string) Option {
	return func(g *Graph) {
		g.name = name
	}
}
