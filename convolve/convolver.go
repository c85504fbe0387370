package convolve

import (
	"pipelined.dev/graph"
	"pipelined.dev/graph/mutable"
)

// Output is the name of the convolver output.
const Output = "out"

// Convolver is a component that convolves every channel of its input
// with the same impulse.
type Convolver struct {
	graph.Base
	in      graph.Connector
	out     *graph.Port
	engines []*Engine
}

// NewConvolver returns a convolver of the input. Impulse is loaded with
// Load or Swap.
func NewConvolver(in graph.Coupler, channels, maxBlock, partition, maxPartitions int) (*Convolver, error) {
	conn, err := graph.Connect(in, channels)
	if err != nil {
		return nil, err
	}
	out, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	c := Convolver{
		in:      conn,
		engines: make([]*Engine, channels),
	}
	for i := range c.engines {
		if c.engines[i], err = NewEngine(partition, maxPartitions); err != nil {
			return nil, err
		}
	}
	c.Init(0)
	c.out = c.AddOutput(Output, out)
	return &c, nil
}

// NewKernel transforms impulse for this convolver.
func (c *Convolver) NewKernel(impulse []float64) (*Kernel, error) {
	return c.engines[0].NewKernel(impulse)
}

// Load replaces the kernel of all channels. All engines share the
// shape, so a kernel rejected by one is rejected by all.
func (c *Convolver) Load(k *Kernel) error {
	if err := c.engines[0].check(k); err != nil {
		return err
	}
	for _, e := range c.engines {
		_ = e.Load(k)
	}
	return nil
}

// Swap returns a mutation that loads the kernel between blocks.
func (c *Convolver) Swap(k *Kernel) (mutable.Mutation, error) {
	if err := c.engines[0].check(k); err != nil {
		return mutable.Mutation{}, err
	}
	return c.Mutate(func() {
		_ = c.Load(k)
	}), nil
}

// Latency returns the delay of the output in samples.
func (c *Convolver) Latency() int {
	return c.engines[0].Latency()
}

// Process convolves the range of the block.
func (c *Convolver) Process(offset, n int) {
	c.Run(c, offset, n)
}

// Step convolves the samples.
func (c *Convolver) Step(offset, n int) {
	for ch, e := range c.engines {
		out := c.out.Channel(ch)
		for i := offset; i < offset+n; i++ {
			out[i] = e.ProcessSample(c.in.Sample(ch, i))
		}
	}
}

// Idle keeps the input history running while output is silent.
func (c *Convolver) Idle(offset, n int) {
	for ch, e := range c.engines {
		for i := offset; i < offset+n; i++ {
			e.ProcessSample(c.in.Sample(ch, i))
		}
	}
}

// Reset clears the history of all channels.
func (c *Convolver) Reset() {
	for _, e := range c.engines {
		e.Reset()
	}
	c.out.Clear(0, c.out.Capacity())
}
