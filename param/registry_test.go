package param_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/param"
)

func TestRegister(t *testing.T) {
	r := param.NewRegistry(2, param.WithSampleRate(48000), param.WithBlockSize(128))
	gain, err := r.Register("gain", 0.5)
	require.NoError(t, err)
	_, err = r.Register("gain", 1)
	assert.ErrorIs(t, err, graph.ErrConfiguration)
	assert.ErrorIs(t, err, param.ErrDuplicate)

	cutoff, err := r.Register("cutoff", 100000, param.WithRange(20, 20000), param.WithCurve(param.Exponential))
	require.NoError(t, err)
	_, err = r.Register("q", 1)
	assert.ErrorIs(t, err, param.ErrFull)

	v, ok := r.Get(cutoff)
	assert.True(t, ok)
	assert.Equal(t, 20000.0, v, "limited")

	id, ok := r.Lookup("gain")
	assert.True(t, ok)
	assert.Equal(t, gain, id)
	name, ok := r.Name(id)
	assert.True(t, ok)
	assert.Equal(t, "gain", name)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 48000.0, r.SampleRate())
	assert.Equal(t, 128, r.BlockSize())
	assert.Equal(t, 480.0, r.MsToSamples(10))
	assert.Equal(t, 10.0, r.SamplesToMs(480))
}

func TestStaleID(t *testing.T) {
	r := param.NewRegistry(1)
	id, err := r.Register("gain", 1)
	require.NoError(t, err)
	l, err := r.Listen(id)
	require.NoError(t, err)
	assert.True(t, l.Valid())

	r.Unregister(id)
	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.False(t, r.SetImmediate(id, 2))
	assert.False(t, r.SetRamped(id, 2, 10))
	assert.False(t, l.Valid())
	assert.Equal(t, 0.0, l.Sample(0, 0))
	_, err = r.Listen(id)
	assert.ErrorIs(t, err, param.ErrStale)

	// the slot is reused with a new generation
	reused, err := r.Register("level", 3)
	require.NoError(t, err)
	assert.NotEqual(t, id, reused)
	_, ok = r.Get(id)
	assert.False(t, ok)
	assert.False(t, l.Valid())

	r.Close()
	_, ok = r.Get(reused)
	assert.False(t, ok)

	_, ok = r.Get(param.ID{})
	assert.False(t, ok, "zero id")
}

func TestListenerBlocks(t *testing.T) {
	const block = 4
	r := param.NewRegistry(1)
	id, err := r.Register("gain", 0)
	require.NoError(t, err)
	l, err := r.Listen(id)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Channels())

	assert.True(t, r.SetRamped(id, 1, 10))
	var values []float64
	for b := 0; b < 4; b++ {
		for i := 0; i < block; i++ {
			values = append(values, l.Sample(0, i))
		}
		r.Advance(block)
	}
	expected := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1, 1, 1, 1, 1}
	assert.InDeltaSlice(t, expected, values, 1e-12)
	assert.Equal(t, 1.0, values[10], "exact at the end")

	// the pulled ramp can be consumed without affecting the parameter
	assert.True(t, r.SetRamped(id, 0, 2))
	ramp := l.Ramp()
	assert.Equal(t, 1.0, ramp.Next())
	assert.Equal(t, 0.5, ramp.Next())
	assert.Equal(t, 1.0, l.Sample(0, 0))
}

func TestSetRampedAt(t *testing.T) {
	const block = 8
	r := param.NewRegistry(1)
	id, err := r.Register("gain", 0)
	require.NoError(t, err)
	l, err := r.Listen(id)
	require.NoError(t, err)
	samples := func() []float64 {
		values := make([]float64, block)
		for i := range values {
			values[i] = l.Sample(0, i)
		}
		return values
	}

	assert.True(t, r.SetRampedAt(id, 1, 4, 3))
	assert.True(t, r.SetRampedAt(id, 0, 0, 5))
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0.25, 0, 0, 0}, samples(), 1e-12)
	v, _ := r.Get(id)
	assert.Zero(t, v, "block start")
	r.Advance(block)
	v, _ = r.Get(id)
	assert.Zero(t, v)

	// an earlier offset retargets the last change
	assert.True(t, r.SetRampedAt(id, 1, 2, 2))
	assert.True(t, r.SetRampedAt(id, 0.5, 2, 1))
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0.25, 0.5, 0.5, 0.5, 0.5}, samples(), 1e-12)
	r.Advance(block)
	v, _ = r.Get(id)
	assert.Equal(t, 0.5, v)

	// block start changes drop pending ones
	assert.True(t, r.SetRampedAt(id, 1, 0, 4))
	assert.True(t, r.SetImmediate(id, 0.25))
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25, 0.25}, samples())

	r.Unregister(id)
	assert.False(t, r.SetRampedAt(id, 1, 0, 1))
}

func TestRegistryMutations(t *testing.T) {
	r := param.NewRegistry(1)
	id, err := r.Register("gain", 0)
	require.NoError(t, err)

	r.Immediate(id, 0.25).Apply()
	v, _ := r.Get(id)
	assert.Equal(t, 0.25, v)

	r.Ramped(id, 0.75, 2).Apply()
	r.Advance(1)
	v, _ = r.Get(id)
	assert.Equal(t, 0.5, v)
}

func TestTransport(t *testing.T) {
	r := param.NewRegistry(0, param.WithSampleRate(1000))
	r.SetTransport(param.Transport{Playing: true, Tempo: 120})
	r.Advance(500)
	tr := r.Transport()
	assert.Equal(t, 0.5, tr.Seconds)
	assert.Equal(t, 1.0, tr.PPQ)

	r.SetTransport(param.Transport{Tempo: 120})
	r.Advance(500)
	assert.Equal(t, 0.0, r.Transport().Seconds, "stopped")
}

func TestAdvanceAllocs(t *testing.T) {
	r := param.NewRegistry(8)
	id, err := r.Register("gain", 0)
	require.NoError(t, err)
	l, err := r.Listen(id)
	require.NoError(t, err)
	allocs := testing.AllocsPerRun(100, func() {
		r.SetRamped(id, 1, 64)
		r.SetRampedAt(id, 0, 8, 5)
		for i := 0; i < 16; i++ {
			l.Sample(0, i)
		}
		r.Advance(16)
	})
	assert.Zero(t, allocs)
}
