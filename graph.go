package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"pipelined.dev/graph/log"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/mutable"
)

const (
	defaultQueueSize  = 1024
	defaultSampleRate = 44100
)

type (
	// EventSink receives events drained at the start of a block.
	// Schedule is called on the processing goroutine before any
	// component processes the block.
	EventSink interface {
		Schedule(midi.Event)
	}

	// Advancer is notified after every processed block.
	Advancer interface {
		Advance(n int)
	}

	// Graph drives the root component block after block.
	Graph struct {
		id         string
		name       string
		root       Component
		maxBlock   int
		sampleRate int
		queueSize  int
		queue      *midi.Queue
		sinks      []EventSink
		advancers  []Advancer
		mutations  mutable.Destination
		logger     log.Logger

		pushMu sync.Mutex
		pusher *mutable.Pusher

		measure metric.MeasureFunc
		events  metric.CountFunc
		clamped metric.CountFunc
		dropped metric.CountFunc
	}
)

// New returns a graph that processes blocks of at most maxBlock
// samples.
func New(root Component, maxBlock int, options ...Option) (*Graph, error) {
	if root == nil {
		return nil, Configurationf("new graph", ErrMissingOutput, "nil root")
	}
	if maxBlock < 1 {
		return nil, Configurationf("new graph", ErrCapacity, "max block: %d", maxBlock)
	}
	g := Graph{
		id:         xid.New().String(),
		root:       root,
		maxBlock:   maxBlock,
		sampleRate: defaultSampleRate,
		queueSize:  defaultQueueSize,
		mutations:  mutable.NewDestination(),
		logger:     log.Discard(),
	}
	for _, option := range options {
		option(&g)
	}
	if g.name == "" {
		g.name = g.id
	}
	g.queue = midi.NewQueue(g.queueSize)
	g.pusher = mutable.NewPusher(g.mutations)
	g.measure = metric.Meter(g.name, g.sampleRate)()
	g.events = metric.Counter(g.name, metric.EventCounter)
	g.clamped = metric.Counter(g.name, metric.ClampedCounter)
	g.dropped = metric.Counter(g.name, metric.DroppedCounter)
	g.logger.Info(fmt.Sprintf("graph %s: max block %d, %d sinks, %d advancers, queue %d", g.name, maxBlock, len(g.sinks), len(g.advancers), g.queue.Cap()))
	return &g, nil
}

// ID returns unique id of the graph.
func (g *Graph) ID() string {
	return g.id
}

// Name returns the name used for metrics.
func (g *Graph) Name() string {
	return g.name
}

// MaxBlock returns the maximum block length.
func (g *Graph) MaxBlock() int {
	return g.maxBlock
}

// Send queues an event for the next block. It must be called from a
// single control goroutine. It returns false if the queue is full.
func (g *Graph) Send(e midi.Event) bool {
	if g.queue.Push(e) {
		return true
	}
	g.dropped(1)
	g.logger.Debug(fmt.Sprintf("graph %s: queue full, dropped %v", g.name, e))
	return false
}

// Push delivers mutations to the processing goroutine. They are applied
// at the start of the next block. Push blocks while previous mutations
// are pending until ctx is done. Mutations that were not delivered are
// kept and sent with the next Push. A mutation without a mutable context
// is rejected with ErrImmutable and nothing is queued.
func (g *Graph) Push(ctx context.Context, mutations ...mutable.Mutation) error {
	for _, m := range mutations {
		if !m.IsMutable() {
			return ErrImmutable
		}
	}
	g.pushMu.Lock()
	defer g.pushMu.Unlock()
	g.pusher.Put(mutations...)
	return g.pusher.Push(ctx)
}

// Pending returns true if mutations of a failed Push are waiting to be
// delivered.
func (g *Graph) Pending() bool {
	g.pushMu.Lock()
	defer g.pushMu.Unlock()
	return g.pusher.Pending()
}

// Process drives one block of n samples through the graph. It returns
// ErrBlockTooLarge without processing if n is not in [1, MaxBlock].
func (g *Graph) Process(n int) error {
	if n < 1 || n > g.maxBlock {
		return ErrBlockTooLarge
	}
	start := time.Now()
	if ms := g.mutations.Receive(); ms != nil {
		ms.Apply()
	}
	g.drain(n)
	g.root.Process(0, n)
	for _, a := range g.advancers {
		a.Advance(n)
	}
	g.measure(int64(n), start)
	return nil
}

func (g *Graph) drain(n int) {
	var count int64
	for {
		e, ok := g.queue.Pop()
		if !ok {
			break
		}
		count++
		switch {
		case e.Offset < 0:
			e.Offset = 0
			g.clamped(1)
		case e.Offset >= n:
			e.Offset = n - 1
			g.clamped(1)
		}
		for _, s := range g.sinks {
			s.Schedule(e)
		}
	}
	if count > 0 {
		g.events(count)
	}
}

// Reset resets the root component and drops queued events.
func (g *Graph) Reset() {
	for {
		if _, ok := g.queue.Pop(); !ok {
			break
		}
	}
	g.root.Reset()
}
