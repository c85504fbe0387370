// Package convolve implements streaming convolution with uniformly
// partitioned impulse responses.
//
// The impulse is split into partitions of B samples that are transformed
// once. Input is collected in partitions too, every full partition is
// transformed into a frequency-domain delay line and multiplied with the
// kernel spectra. The output is delayed by exactly B samples.
package convolve

import (
	"errors"
	"math/bits"

	"gonum.org/v1/gonum/dsp/fourier"

	"pipelined.dev/graph"
	"pipelined.dev/graph/buffer"
	"pipelined.dev/graph/mutable"
)

// ErrPartition is returned when partition size is not a power of two.
var ErrPartition = errors.New("partition size must be a power of two")

type (
	// Engine convolves a single channel. It is not safe for concurrent
	// use.
	Engine struct {
		mutable.Context
		partition     int
		maxPartitions int
		fft           *fourier.FFT
		scale         float64

		kernel  *Kernel
		pending *Kernel

		// frame holds the previous and the current input partitions.
		frame []float64
		// history is the frequency-domain delay line, TapOut(p) is the
		// spectrum of the frame p partitions ago.
		history *buffer.Modulus[[]complex128]
		acc     []complex128
		result  []float64
		output  []float64
		pos     int
	}

	// Kernel is an impulse response transformed for an engine. Kernels
	// are immutable and can be shared by engines of the same partition
	// size.
	Kernel struct {
		partition int
		length    int
		spectra   [][]complex128
	}
)

// NewEngine returns an engine for impulses of at most
// partition*maxPartitions samples.
func NewEngine(partition, maxPartitions int) (*Engine, error) {
	if partition < 1 || bits.OnesCount(uint(partition)) != 1 {
		return nil, graph.Configurationf("convolution engine", ErrPartition, "%d", partition)
	}
	if maxPartitions < 1 {
		return nil, graph.Configurationf("convolution engine", graph.ErrCapacity, "max partitions: %d", maxPartitions)
	}
	size := 2 * partition
	history, err := buffer.NewModulus[[]complex128](maxPartitions)
	if err != nil {
		return nil, err
	}
	for i := 0; i < maxPartitions; i++ {
		history.TapIn(make([]complex128, partition+1))
	}
	e := Engine{
		Context:       mutable.Mutable(),
		partition:     partition,
		maxPartitions: maxPartitions,
		fft:           fourier.NewFFT(size),
		frame:         make([]float64, size),
		history:       history,
		acc:           make([]complex128, partition+1),
		result:        make([]float64, size),
		output:        make([]float64, partition),
	}
	e.scale = transformScale(e.fft, size)
	return &e, nil
}

// transformScale returns the factor that makes the inverse transform
// of the forward transform an identity.
func transformScale(fft *fourier.FFT, size int) float64 {
	impulse := make([]float64, size)
	impulse[0] = 1
	seq := fft.Sequence(nil, fft.Coefficients(nil, impulse))
	return 1 / seq[0]
}

// Latency returns the delay of the output in samples.
func (e *Engine) Latency() int {
	return e.partition
}

// Partition returns the partition size.
func (e *Engine) Partition() int {
	return e.partition
}

// MaxLength returns the maximum impulse length.
func (e *Engine) MaxLength() int {
	return e.partition * e.maxPartitions
}

// NewKernel transforms the impulse for this engine. It allocates and
// can be called from any goroutine.
func (e *Engine) NewKernel(impulse []float64) (*Kernel, error) {
	if len(impulse) == 0 {
		return nil, graph.Configurationf("convolution kernel", graph.ErrCapacity, "empty impulse")
	}
	if len(impulse) > e.MaxLength() {
		return nil, graph.Configurationf("convolution kernel", graph.ErrCapacity, "impulse length %d exceeds %d", len(impulse), e.MaxLength())
	}
	size := 2 * e.partition
	fft := fourier.NewFFT(size)
	count := (len(impulse) + e.partition - 1) / e.partition
	k := Kernel{
		partition: e.partition,
		length:    len(impulse),
		spectra:   make([][]complex128, count),
	}
	seq := make([]float64, size)
	for p := range k.spectra {
		for i := range seq {
			seq[i] = 0
		}
		copy(seq, impulse[p*e.partition:min(len(impulse), (p+1)*e.partition)])
		k.spectra[p] = fft.Coefficients(nil, seq)
	}
	return &k, nil
}

// Len returns the length of the impulse.
func (k *Kernel) Len() int {
	return k.length
}

// Partitions returns number of partitions.
func (k *Kernel) Partitions() int {
	return len(k.spectra)
}

// Load replaces the kernel at the next partition boundary. Every output
// partition is computed with exactly one kernel. Nil kernel silences
// the output. Kernels of another partition size or longer than the
// engine history are rejected and the current kernel is kept.
func (e *Engine) Load(k *Kernel) error {
	if err := e.check(k); err != nil {
		return err
	}
	if k == nil {
		k = &Kernel{partition: e.partition}
	}
	e.pending = k
	return nil
}

// Swap returns a mutation that loads the kernel between blocks. The
// kernel is checked before the mutation is returned.
func (e *Engine) Swap(k *Kernel) (mutable.Mutation, error) {
	if err := e.check(k); err != nil {
		return mutable.Mutation{}, err
	}
	return e.Mutate(func() {
		_ = e.Load(k)
	}), nil
}

func (e *Engine) check(k *Kernel) error {
	if k == nil {
		return nil
	}
	if k.partition != e.partition {
		return graph.Configurationf("load kernel", ErrPartition, "kernel partition %d, engine partition %d", k.partition, e.partition)
	}
	if len(k.spectra) > e.maxPartitions {
		return graph.Configurationf("load kernel", graph.ErrCapacity, "%d partitions exceed %d", len(k.spectra), e.maxPartitions)
	}
	return nil
}

// Kernel returns the active kernel.
func (e *Engine) Kernel() *Kernel {
	return e.kernel
}

// ProcessSample consumes one input sample and returns one output
// sample.
func (e *Engine) ProcessSample(x float64) float64 {
	out := e.output[e.pos]
	e.frame[e.partition+e.pos] = x
	e.pos++
	if e.pos == e.partition {
		e.compute()
		e.pos = 0
	}
	return out
}

// Process convolves a block. In and out may be the same slice.
func (e *Engine) Process(in, out []float64) {
	for i, x := range in {
		out[i] = e.ProcessSample(x)
	}
}

func (e *Engine) compute() {
	if e.pending != nil {
		e.kernel, e.pending = e.pending, nil
	}
	// the oldest spectrum is overwritten with the newest frame
	newest := e.history.TapOutClamped(e.maxPartitions - 1)
	e.fft.Coefficients(newest, e.frame)
	e.history.TapIn(newest)
	copy(e.frame[:e.partition], e.frame[e.partition:])

	if e.kernel == nil || len(e.kernel.spectra) == 0 {
		for i := range e.output {
			e.output[i] = 0
		}
		return
	}
	for i := range e.acc {
		e.acc[i] = 0
	}
	for p, h := range e.kernel.spectra {
		x := e.history.TapOutClamped(p)
		for i := range e.acc {
			e.acc[i] += x[i] * h[i]
		}
	}
	e.fft.Sequence(e.result, e.acc)
	for i := range e.output {
		e.output[i] = e.result[e.partition+i] * e.scale
	}
}

// Reset clears the input history and pending output. The kernel is
// kept.
func (e *Engine) Reset() {
	for i := range e.frame {
		e.frame[i] = 0
	}
	for i := range e.output {
		e.output[i] = 0
	}
	for p := 0; p < e.maxPartitions; p++ {
		s := e.history.TapOutClamped(p)
		for i := range s {
			s[i] = 0
		}
	}
	if e.pending != nil {
		e.kernel, e.pending = e.pending, nil
	}
	e.pos = 0
}
