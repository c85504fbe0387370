package convolve

import (
	"math"

	"pipelined.dev/graph"
	"pipelined.dev/graph/buffer"
)

// Names of the Hilbert transform outputs.
const (
	InPhaseOutput    = "inphase"
	QuadratureOutput = "quadrature"
)

// hamming is the alpha of the raised cosine window.
const hamming = 25.0 / 46.0

// HilbertFIR returns windowed taps of a Hilbert transformer. Taps must
// be odd, even count is increased by one.
func HilbertFIR(taps int) []float64 {
	if taps%2 == 0 {
		taps++
	}
	h := make([]float64, taps)
	center := taps / 2
	for i := range h {
		x := i - center
		if x%2 == 0 {
			continue
		}
		h[i] = 2 / (math.Pi * float64(x))
		if taps > 1 {
			h[i] *= hamming - (1-hamming)*math.Cos(2*math.Pi*float64(i)/float64(taps-1))
		}
	}
	return h
}

// Hilbert is a component that produces the analytic pair of a signal:
// the in-phase output is the input delayed to match the quadrature
// output.
type Hilbert struct {
	graph.Base
	in         graph.Connector
	inPhase    *graph.Port
	quadrature *graph.Port
	engines    []*Engine
	delays     []*buffer.Dynamic[float64]
	delay      int
}

// NewHilbert returns a Hilbert transform of the input with provided
// number of FIR taps. Quadrature is computed with partitioned
// convolution.
func NewHilbert(in graph.Coupler, channels, maxBlock, taps, partition int) (*Hilbert, error) {
	conn, err := graph.Connect(in, channels)
	if err != nil {
		return nil, err
	}
	h := HilbertFIR(taps)
	maxPartitions := (len(h) + partition - 1) / max(partition, 1)
	t := Hilbert{
		in:      conn,
		engines: make([]*Engine, channels),
		delays:  make([]*buffer.Dynamic[float64], channels),
	}
	for c := range t.engines {
		if t.engines[c], err = NewEngine(partition, maxPartitions); err != nil {
			return nil, err
		}
		k, err := t.engines[c].NewKernel(h)
		if err != nil {
			return nil, err
		}
		if err := t.engines[c].Load(k); err != nil {
			return nil, err
		}
	}
	t.delay = partition + len(h)/2
	for c := range t.delays {
		if t.delays[c], err = buffer.NewDynamic[float64](t.delay+1, t.delay+1); err != nil {
			return nil, err
		}
	}
	inPhase, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	quadrature, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	t.Init(0)
	t.inPhase = t.AddOutput(InPhaseOutput, inPhase)
	t.quadrature = t.AddOutput(QuadratureOutput, quadrature)
	return &t, nil
}

// Latency returns the delay of both outputs in samples.
func (t *Hilbert) Latency() int {
	return t.delay
}

// Process transforms the range of the block.
func (t *Hilbert) Process(offset, n int) {
	t.Run(t, offset, n)
}

// Step transforms the samples.
func (t *Hilbert) Step(offset, n int) {
	for c, e := range t.engines {
		d := t.delays[c]
		ip, q := t.inPhase.Channel(c), t.quadrature.Channel(c)
		for i := offset; i < offset+n; i++ {
			x := t.in.Sample(c, i)
			d.TapIn(x)
			ip[i] = d.TapOutClamped(t.delay)
			q[i] = e.ProcessSample(x)
		}
	}
}

// Idle keeps the delay lines and engines running while outputs are
// silent.
func (t *Hilbert) Idle(offset, n int) {
	for c, e := range t.engines {
		d := t.delays[c]
		for i := offset; i < offset+n; i++ {
			x := t.in.Sample(c, i)
			d.TapIn(x)
			e.ProcessSample(x)
		}
	}
}

// Reset clears the state of all channels.
func (t *Hilbert) Reset() {
	for c, e := range t.engines {
		e.Reset()
		t.delays[c].Reset(0)
	}
	t.inPhase.Clear(0, t.inPhase.Capacity())
	t.quadrature.Clear(0, t.quadrature.Capacity())
}
