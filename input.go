package graph

import "pipelined.dev/graph/signal"

// InputOutput is the name of the host input port.
const InputOutput = "out"

// Input is a component filled by the host before each block.
type Input struct {
	Base
	out *Port
}

// NewInput returns a host input with provided shape.
func NewInput(channels, maxBlock int) (*Input, error) {
	p, err := NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	var in Input
	in.Init(0)
	in.out = in.AddOutput(InputOutput, p)
	return &in, nil
}

// Write copies per-channel samples into the port. It returns number of
// samples per channel written.
func (in *Input) Write(block signal.Float64) int {
	n := block.Size()
	if n > in.out.Capacity() {
		n = in.out.Capacity()
	}
	for c := 0; c < in.out.Channels() && c < block.NumChannels(); c++ {
		copy(in.out.Channel(c)[:n], block[c][:n])
	}
	return n
}

// WriteInterleaved copies interleaved samples into the port. It returns
// number of samples per channel written.
func (in *Input) WriteInterleaved(data []float32) int {
	return signal.Deinterleave(in.out.Signal(), data)
}

// Process marks written samples as valid.
func (in *Input) Process(offset, n int) {
	in.Run(in, offset, n)
}

// Step does nothing, samples are written by the host.
func (in *Input) Step(offset, n int) {}

// Reset silences the port.
func (in *Input) Reset() {
	in.out.Clear(0, in.out.Capacity())
}

// ReadInterleaved copies first n samples of the port into interleaved
// slice. It returns number of samples per channel copied.
func ReadInterleaved(p *Port, dst []float32, n int) int {
	return signal.Interleave(dst, p.Signal(), min(n, p.Capacity()))
}
