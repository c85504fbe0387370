// Package delay provides delay line components.
package delay

import (
	"math"

	"pipelined.dev/graph"
	"pipelined.dev/graph/buffer"
	"pipelined.dev/graph/mutable"
)

// Output is the name of the output port.
const Output = "out"

type (
	// Delay delays every channel of the input by the same time. The
	// time is either fixed or read per sample from a modulation input.
	// Delay is at least one sample.
	Delay struct {
		graph.Base
		in       graph.Connector
		time     graph.Connector
		out      *graph.Port
		lines    []*buffer.Dynamic[float64]
		delay    float64
		max      int
		feedback float64
		kernel   buffer.Kernel
	}

	// Option configures the delay.
	Option func(*options)

	options struct {
		ceiling  int
		feedback float64
		kernel   buffer.Kernel
		time     graph.Coupler
	}
)

// WithKernel enables fractional delay with the interpolation kernel.
// Without kernel the time is rounded to whole samples.
func WithKernel(k buffer.Kernel) Option {
	return func(o *options) {
		o.kernel = k
	}
}

// WithFeedback sets the gain of the output fed back into the line.
func WithFeedback(gain float64) Option {
	return func(o *options) {
		o.feedback = gain
	}
}

// WithCeiling allows to grow the maximum delay up to n samples with
// SetMaxDelay.
func WithCeiling(n int) Option {
	return func(o *options) {
		o.ceiling = n
	}
}

// WithModulation reads the delay time in samples from a single channel
// coupler.
func WithModulation(c graph.Coupler) Option {
	return func(o *options) {
		o.time = c
	}
}

// New returns a delay of in with fixed time in samples.
func New(in graph.Coupler, channels, maxBlock, maxDelay int, delay float64, opts ...Option) (*Delay, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	input, err := graph.Connect(in, channels)
	if err != nil {
		return nil, err
	}
	d := Delay{
		in:       input,
		max:      maxDelay,
		feedback: o.feedback,
		kernel:   o.kernel,
		lines:    make([]*buffer.Dynamic[float64], channels),
	}
	if o.time != nil {
		if d.time, err = graph.Connect(o.time, 1); err != nil {
			return nil, err
		}
	}
	ceiling := max(o.ceiling, maxDelay)
	for i := range d.lines {
		if d.lines[i], err = buffer.NewDynamic[float64](maxDelay, ceiling); err != nil {
			return nil, err
		}
	}
	out, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	d.Init(0)
	d.out = d.AddOutput(Output, out)
	d.SetDelay(delay)
	return &d, nil
}

// SetDelay sets fixed time in samples. It is clamped to
// [1, MaxDelay].
func (d *Delay) SetDelay(samples float64) {
	d.delay = d.clamp(samples)
}

// Delay returns fixed time in samples.
func (d *Delay) Delay() float64 {
	return d.delay
}

// Time returns a mutation that sets fixed time.
func (d *Delay) Time(samples float64) mutable.Mutation {
	return d.Mutate(func() {
		d.SetDelay(samples)
	})
}

// MaxDelay returns the maximum time in samples.
func (d *Delay) MaxDelay() int {
	return d.max
}

// SetMaxDelay resizes delay lines and clears them. It must not exceed
// the ceiling.
func (d *Delay) SetMaxDelay(n int) error {
	for _, l := range d.lines {
		if err := l.SetLength(n); err != nil {
			return err
		}
	}
	d.max = n
	d.delay = d.clamp(d.delay)
	return nil
}

// Process implements graph.Component.
func (d *Delay) Process(offset, n int) {
	d.Run(d, offset, n)
}

// Step delays the input.
func (d *Delay) Step(offset, n int) {
	for c, l := range d.lines {
		out := d.out.Channel(c)
		for i := offset; i < offset+n; i++ {
			t := d.delay
			if d.time.Connected() {
				t = d.clamp(d.time.Sample(0, i))
			}
			y := d.read(l, t)
			l.TapIn(d.in.Sample(c, i) + d.feedback*y)
			out[i] = y
		}
	}
}

// Idle keeps writing the input into delay lines.
func (d *Delay) Idle(offset, n int) {
	for c, l := range d.lines {
		for i := offset; i < offset+n; i++ {
			l.TapIn(d.in.Sample(c, i))
		}
	}
}

// Reset clears delay lines.
func (d *Delay) Reset() {
	for _, l := range d.lines {
		l.Reset(0)
	}
}

// read returns the sample written t samples before the next one.
func (d *Delay) read(l *buffer.Dynamic[float64], t float64) float64 {
	if d.kernel == nil {
		return l.TapOutClamped(int(math.Round(t)) - 1)
	}
	y, err := buffer.Fractional[float64](l, t-1, d.kernel)
	if err != nil {
		return 0
	}
	return y
}

func (d *Delay) clamp(samples float64) float64 {
	switch {
	case math.IsNaN(samples) || samples < 1:
		return 1
	case samples > float64(d.max):
		return float64(d.max)
	}
	return samples
}
