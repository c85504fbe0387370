package main

import (
	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/param"
)

// controls ramps registry parameters on controller changes. Ramps start
// at the offsets of the events.
type controls struct {
	registry *param.Registry
	ramp     int
	bound    map[uint8]param.ID
}

func newControls(r *param.Registry, ramp int) *controls {
	return &controls{
		registry: r,
		ramp:     ramp,
		bound:    make(map[uint8]param.ID),
	}
}

func (c *controls) bind(cc uint8, id param.ID) {
	c.bound[cc] = id
}

func (c *controls) Schedule(e midi.Event) {
	if e.Kind != midi.ControlChange {
		return
	}
	if id, ok := c.bound[e.Key]; ok {
		c.registry.SetRampedAt(id, e.Value, c.ramp, e.Offset)
	}
}
