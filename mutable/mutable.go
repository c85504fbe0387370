// Package mutable delivers control-side changes to components that are
// owned by the processing goroutine. Changes are closures bound to the
// context of the component they modify and are applied between blocks.
package mutable

import (
	"crypto/rand"
)

// zero value for context is immutable.
var immutable = Context{}

type (
	// Context can be embedded to make structure behaviour mutable.
	Context [16]byte

	// Mutation is mutator function associated with a certain mutable context.
	Mutation struct {
		Context
		mutator MutatorFunc
	}

	// Mutations is a set of mutators mapped to their contexts.
	Mutations map[Context][]MutatorFunc

	// MutatorFunc mutates the object. It runs on the processing
	// goroutine and must not block.
	MutatorFunc func()
)

// Mutable returns new mutable context.
func Mutable() Context {
	var id [16]byte
	rand.Read(id[:])
	return id
}

// Mutate associates provided mutator with the context and returns
// mutation. It panics if context is immutable.
func (c Context) Mutate(m MutatorFunc) Mutation {
	if c == immutable {
		panic("mutate immutable")
	}
	return Mutation{
		Context: c,
		mutator: m,
	}
}

// IsMutable returns true if object is mutable.
func (c Context) IsMutable() bool {
	return c != immutable
}

// Apply mutator function.
func (m Mutation) Apply() {
	m.mutator()
}

// Put mutation to the set of Mutations.
func (ms Mutations) Put(m Mutation) Mutations {
	if m.Context == immutable {
		return ms
	}
	if ms == nil {
		return map[Context][]MutatorFunc{m.Context: {m.mutator}}
	}
	ms[m.Context] = append(ms[m.Context], m.mutator)
	return ms
}

// Apply consumes all mutations in the set. Mutators of the same context
// are applied in the order they were put.
func (ms Mutations) Apply() {
	for id, fns := range ms {
		for _, fn := range fns {
			fn()
		}
		delete(ms, id)
	}
}
