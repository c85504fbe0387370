package delay

import (
	"pipelined.dev/graph"
	"pipelined.dev/graph/buffer"
)

type (
	// MultiTap sums several taps of a delay line per channel.
	MultiTap struct {
		graph.Base
		in    graph.Connector
		out   *graph.Port
		lines []*buffer.Circular[float64]
		taps  []Tap
	}

	// Tap is a delayed copy of the input. Delay zero is the current
	// sample.
	Tap struct {
		Delay int
		Gain  float64
	}
)

// NewMultiTap returns a multi-tap delay of in.
func NewMultiTap(in graph.Coupler, channels, maxBlock int, taps ...Tap) (*MultiTap, error) {
	if len(taps) == 0 {
		return nil, graph.NewConfigurationError("multi tap", graph.ErrNoInputs)
	}
	input, err := graph.Connect(in, channels)
	if err != nil {
		return nil, err
	}
	longest := 0
	for _, t := range taps {
		if t.Delay < 0 {
			return nil, graph.Configurationf("multi tap", graph.ErrRange, "delay %d", t.Delay)
		}
		longest = max(longest, t.Delay)
	}
	bits := 1
	for 1<<bits <= longest {
		bits++
	}
	m := MultiTap{
		in:    input,
		lines: make([]*buffer.Circular[float64], channels),
		taps:  append([]Tap(nil), taps...),
	}
	for i := range m.lines {
		if m.lines[i], err = buffer.NewCircular[float64](bits); err != nil {
			return nil, err
		}
	}
	out, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	m.Init(0)
	m.out = m.AddOutput(Output, out)
	return &m, nil
}

// Taps returns configured taps.
func (m *MultiTap) Taps() []Tap {
	return m.taps
}

// Process implements graph.Component.
func (m *MultiTap) Process(offset, n int) {
	m.Run(m, offset, n)
}

// Step sums the taps.
func (m *MultiTap) Step(offset, n int) {
	for c, l := range m.lines {
		out := m.out.Channel(c)
		for i := offset; i < offset+n; i++ {
			l.TapIn(m.in.Sample(c, i))
			var y float64
			for _, t := range m.taps {
				y += t.Gain * l.TapOutClamped(t.Delay)
			}
			out[i] = y
		}
	}
}

// Idle keeps writing the input into delay lines.
func (m *MultiTap) Idle(offset, n int) {
	for c, l := range m.lines {
		for i := offset; i < offset+n; i++ {
			l.TapIn(m.in.Sample(c, i))
		}
	}
}

// Reset clears delay lines.
func (m *MultiTap) Reset() {
	for _, l := range m.lines {
		l.Reset(0)
	}
}
