package convolve_test

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/convolve"
)

const delta = 1e-9

func naive(x, h []float64) []float64 {
	y := make([]float64, len(x))
	for t := range y {
		for j, v := range h {
			if t-j >= 0 {
				y[t] += v * x[t-j]
			}
		}
	}
	return y
}

func random(r *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

func run(e *convolve.Engine, x []float64) []float64 {
	y := make([]float64, len(x))
	e.Process(x, y)
	return y
}

func TestImpulse(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	var tests = []struct {
		partition int
		length    int
	}{
		{partition: 1, length: 5},
		{partition: 4, length: 10},
		{partition: 16, length: 16},
		{partition: 8, length: 61},
	}
	for _, test := range tests {
		e, err := convolve.NewEngine(test.partition, (test.length+test.partition-1)/test.partition)
		require.NoError(t, err)
		h := random(r, test.length)
		k, err := e.NewKernel(h)
		require.NoError(t, err)
		require.NoError(t, e.Load(k))

		x := make([]float64, test.length+3*test.partition)
		x[0] = 1
		y := run(e, x)
		for i, v := range y {
			want := 0.0
			if j := i - e.Latency(); j >= 0 && j < len(h) {
				want = h[j]
			}
			assert.InDelta(t, want, v, delta, "partition %d sample %d", test.partition, i)
		}
	}
}

func TestNaive(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	e, err := convolve.NewEngine(8, 8)
	require.NoError(t, err)
	h := random(r, 37)
	k, err := e.NewKernel(h)
	require.NoError(t, err)
	assert.Equal(t, 5, k.Partitions())
	assert.Equal(t, 37, k.Len())
	require.NoError(t, e.Load(k))

	x := random(r, 300)
	want := naive(x, h)
	// blocks that do not align with partitions
	y := make([]float64, len(x))
	for start := 0; start < len(x); start += 13 {
		end := min(start+13, len(x))
		e.Process(x[start:end], y[start:end])
	}
	for i := e.Latency(); i < len(y); i++ {
		assert.InDelta(t, want[i-e.Latency()], y[i], delta, "sample %d", i)
	}
	for i := 0; i < e.Latency(); i++ {
		assert.Zero(t, y[i], "latency sample %d", i)
	}
}

func TestSwap(t *testing.T) {
	const partition = 4
	r := rand.New(rand.NewSource(11))
	e, err := convolve.NewEngine(partition, 4)
	require.NoError(t, err)
	h1, h2 := random(r, 9), random(r, 14)
	k1, err := e.NewKernel(h1)
	require.NoError(t, err)
	k2, err := e.NewKernel(h2)
	require.NoError(t, err)
	require.NoError(t, e.Load(k1))

	x := random(r, 64)
	y1, y2 := naive(x, h1), naive(x, h2)
	swapAt := 2*partition + 1
	y := make([]float64, len(x))
	for i, v := range x {
		if i == swapAt {
			m, err := e.Swap(k2)
			require.NoError(t, err)
			m.Apply()
		}
		y[i] = e.ProcessSample(v)
	}
	// kernel changes at the end of the partition that contains swapAt
	boundary := (swapAt/partition + 1) * partition
	for i := partition; i < len(y); i++ {
		want := y1[i-partition]
		if i >= boundary+partition {
			want = y2[i-partition]
		}
		assert.InDelta(t, want, y[i], delta, "sample %d", i)
	}
	assert.Equal(t, k2, e.Kernel())

	// nil kernel silences the output after latency
	require.NoError(t, e.Load(nil))
	y = run(e, x[:3*partition])
	for i := 2 * partition; i < len(y); i++ {
		assert.Zero(t, y[i])
	}
}

func TestEngineErrors(t *testing.T) {
	_, err := convolve.NewEngine(3, 4)
	assert.ErrorIs(t, err, graph.ErrConfiguration)
	assert.ErrorIs(t, err, convolve.ErrPartition)
	_, err = convolve.NewEngine(0, 4)
	assert.ErrorIs(t, err, convolve.ErrPartition)
	_, err = convolve.NewEngine(4, 0)
	assert.ErrorIs(t, err, graph.ErrCapacity)

	e, err := convolve.NewEngine(4, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, e.MaxLength())
	_, err = e.NewKernel(make([]float64, 9))
	assert.ErrorIs(t, err, graph.ErrCapacity)
	_, err = e.NewKernel(nil)
	assert.ErrorIs(t, err, graph.ErrConfiguration)
}

func TestLoadMismatch(t *testing.T) {
	e, err := convolve.NewEngine(4, 2)
	require.NoError(t, err)
	k, err := e.NewKernel([]float64{1})
	require.NoError(t, err)
	require.NoError(t, e.Load(k))

	other, err := convolve.NewEngine(8, 2)
	require.NoError(t, err)
	wide, err := other.NewKernel([]float64{0.5})
	require.NoError(t, err)
	err = e.Load(wide)
	assert.ErrorIs(t, err, graph.ErrConfiguration)
	assert.ErrorIs(t, err, convolve.ErrPartition)
	_, err = e.Swap(wide)
	assert.ErrorIs(t, err, convolve.ErrPartition)

	long, err := convolve.NewEngine(4, 4)
	require.NoError(t, err)
	tail, err := long.NewKernel(make([]float64, 13))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Load(tail), graph.ErrCapacity)

	// rejected kernels leave the loaded one in place
	y := run(e, []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.InDelta(t, 1, y[e.Latency()], delta)
	assert.Equal(t, k, e.Kernel())
}

func TestReset(t *testing.T) {
	e, err := convolve.NewEngine(4, 2)
	require.NoError(t, err)
	k, err := e.NewKernel([]float64{1, 0.5})
	require.NoError(t, err)
	require.NoError(t, e.Load(k))
	run(e, []float64{1, 1, 1, 1, 1, 1})
	e.Reset()
	y := run(e, make([]float64, 16))
	for _, v := range y {
		assert.Zero(t, v)
	}
}

// Steady state amplitude of a sine matches the magnitude response
// computed by an independent transform.
func TestSineResponse(t *testing.T) {
	const (
		partition = 8
		period    = 16
	)
	r := rand.New(rand.NewSource(5))
	h := random(r, 20)
	e, err := convolve.NewEngine(partition, 3)
	require.NoError(t, err)
	k, err := e.NewKernel(h)
	require.NoError(t, err)
	require.NoError(t, e.Load(k))

	x := make([]float64, 256)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	y := run(e, x)

	// bin 2 of 32 points is the frequency of the sine
	padded := make([]float64, 2*period)
	copy(padded, h)
	want := cmplx.Abs(fft.FFTReal(padded)[2])

	var power float64
	const from, periods = 64, 10
	for i := from; i < from+periods*period; i++ {
		power += y[i] * y[i]
	}
	amplitude := math.Sqrt(2 * power / (periods * period))
	assert.InDelta(t, want, amplitude, delta)
}

func TestEngineAllocs(t *testing.T) {
	e, err := convolve.NewEngine(16, 4)
	require.NoError(t, err)
	k, err := e.NewKernel(make([]float64, 50))
	require.NoError(t, err)
	require.NoError(t, e.Load(k))
	in := make([]float64, 64)
	out := make([]float64, 64)
	allocs := testing.AllocsPerRun(50, func() {
		e.Process(in, out)
	})
	assert.Zero(t, allocs)
}
