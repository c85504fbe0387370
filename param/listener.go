package param

import "pipelined.dev/graph"

// Listener reads the ramp of a parameter during the current block. It
// is a single channel coupler: Sample(0, i) is the value at block
// sample i. Stale listeners read zero.
type Listener struct {
	r  *Registry
	id ID
}

// Listen returns a listener of the parameter.
func (r *Registry) Listen(id ID) (Listener, error) {
	if r.slot(id) == nil {
		return Listener{}, graph.NewConfigurationError("listen", ErrStale)
	}
	return Listener{r: r, id: id}, nil
}

// ID returns the parameter id.
func (l Listener) ID() ID {
	return l.id
}

// Valid returns true if the parameter is still registered.
func (l Listener) Valid() bool {
	return l.r != nil && l.r.slot(l.id) != nil
}

// Channels always returns 1.
func (l Listener) Channels() int {
	return 1
}

// Sample returns the value at block sample i.
func (l Listener) Sample(_, i int) float64 {
	if l.r == nil {
		return 0
	}
	s := l.r.slot(l.id)
	if s == nil {
		return 0
	}
	return s.at(i)
}

// Ramp returns a copy of the ramp at the start of the current block.
// The copy can be advanced by the caller without affecting the
// parameter.
func (l Listener) Ramp() Ramp {
	if l.r == nil {
		return Ramp{}
	}
	if s := l.r.slot(l.id); s != nil {
		return s.ramp
	}
	return Ramp{}
}
