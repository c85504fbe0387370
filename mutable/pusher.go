package mutable

import "context"

type (
	// Pusher accumulates mutations and sends them to the destination.
	// Pusher is not safe for concurrent use, each control goroutine
	// should have its own.
	Pusher struct {
		destination Destination
		mutations   Mutations
	}

	// Destination is a channel that is used as source of mutations by
	// the processing goroutine.
	Destination chan Mutations
)

// NewDestination returns a destination that can hold one pending set of
// mutations.
func NewDestination() Destination {
	return make(chan Mutations, 1)
}

// NewPusher creates new pusher for provided destination.
func NewPusher(d Destination) *Pusher {
	return &Pusher{
		destination: d,
	}
}

// Put mutations to the pusher.
func (p *Pusher) Put(mutations ...Mutation) {
	for _, m := range mutations {
		p.mutations = p.mutations.Put(m)
	}
}

// Pending returns true if pusher has mutations that were not pushed yet.
func (p *Pusher) Pending() bool {
	return len(p.mutations) > 0
}

// Push sends accumulated mutations to the destination. It blocks until
// the destination accepts them or context is done.
func (p *Pusher) Push(ctx context.Context) error {
	if len(p.mutations) == 0 {
		return nil
	}
	select {
	case p.destination <- p.mutations:
		p.mutations = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns pending mutations without blocking. It returns nil if
// there is nothing to apply.
func (d Destination) Receive() Mutations {
	select {
	case ms := <-d:
		return ms
	default:
		return nil
	}
}
