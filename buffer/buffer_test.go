package buffer_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/buffer"
)

func buffers(t *testing.T) map[string]buffer.Buffer[float64] {
	t.Helper()
	c, err := buffer.NewCircular[float64](4)
	require.NoError(t, err)
	d, err := buffer.NewDynamic[float64](9, 64)
	require.NoError(t, err)
	m, err := buffer.NewModulus[float64](13)
	require.NoError(t, err)
	return map[string]buffer.Buffer[float64]{
		"circular": c,
		"dynamic":  d,
		"modulus":  m,
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for name, b := range buffers(t) {
		var written []float64
		for i := 0; i < 3*b.Capacity(); i++ {
			x := r.Float64()
			written = append(written, b.TapIn(x))
			v, err := b.TapOut(0)
			assert.NoError(t, err)
			assert.Equal(t, x, v, "%s: latest sample", name)
		}
		for d := 0; d < b.Capacity(); d++ {
			v, err := b.TapOut(d)
			assert.NoError(t, err)
			assert.Equal(t, written[len(written)-1-d], v, "%s: delay %d", name, d)
		}
	}
}

func TestRange(t *testing.T) {
	for name, b := range buffers(t) {
		for i := 0; i < b.Capacity(); i++ {
			b.TapIn(float64(i + 1))
		}
		_, err := b.TapOut(b.Capacity())
		assert.ErrorIs(t, err, graph.ErrRange, name)
		_, err = b.TapOut(-1)
		assert.ErrorIs(t, err, graph.ErrRange, name)

		// clamped to the oldest and the newest samples
		assert.Equal(t, 1.0, b.TapOutClamped(b.Capacity()+10), name)
		assert.Equal(t, float64(b.Capacity()), b.TapOutClamped(-3), name)

		b.Reset(0.5)
		v, err := b.TapOut(b.Capacity() - 1)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, v, name)
	}
}

func TestUnwritten(t *testing.T) {
	for name, b := range buffers(t) {
		_, err := b.TapOut(0)
		assert.ErrorIs(t, err, graph.ErrRange, name)

		b.TapIn(1)
		b.TapIn(2)
		v, err := b.TapOut(1)
		assert.NoError(t, err, name)
		assert.Equal(t, 1.0, v, name)
		_, err = b.TapOut(2)
		assert.ErrorIs(t, err, graph.ErrRange, name)
		_, err = b.TapOut(5)
		assert.ErrorIs(t, err, graph.ErrRange, name)

		// fill is a valid history
		b.Reset(0.25)
		v, err = b.TapOut(b.Capacity() - 1)
		assert.NoError(t, err, name)
		assert.Equal(t, 0.25, v, name)
	}
}

func TestCapacity(t *testing.T) {
	var tests = []struct {
		name     string
		new      func() (buffer.Buffer[float64], error)
		capacity int
		err      bool
	}{
		{
			name:     "circular",
			new:      func() (buffer.Buffer[float64], error) { return buffer.NewCircular[float64](10) },
			capacity: 1024,
		},
		{
			name: "circular zero bits",
			new:  func() (buffer.Buffer[float64], error) { return buffer.NewCircular[float64](0) },
			err:  true,
		},
		{
			name: "circular too large",
			new:  func() (buffer.Buffer[float64], error) { return buffer.NewCircular[float64](buffer.MaxBits + 1) },
			err:  true,
		},
		{
			name:     "dynamic rounds up",
			new:      func() (buffer.Buffer[float64], error) { return buffer.NewDynamic[float64](100, 1000) },
			capacity: 128,
		},
		{
			name: "dynamic above ceiling",
			new:  func() (buffer.Buffer[float64], error) { return buffer.NewDynamic[float64](2000, 1000) },
			err:  true,
		},
		{
			name:     "modulus",
			new:      func() (buffer.Buffer[float64], error) { return buffer.NewModulus[float64](100) },
			capacity: 100,
		},
		{
			name: "modulus empty",
			new:  func() (buffer.Buffer[float64], error) { return buffer.NewModulus[float64](0) },
			err:  true,
		},
	}
	for _, test := range tests {
		b, err := test.new()
		if test.err {
			assert.True(t, errors.Is(err, graph.ErrConfiguration), test.name)
			assert.ErrorIs(t, err, graph.ErrCapacity, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		assert.Equal(t, test.capacity, b.Capacity(), test.name)
	}
}

func TestDynamicSetLength(t *testing.T) {
	b, err := buffer.NewDynamic[float64](4, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Capacity())
	assert.Equal(t, 128, b.Ceiling())

	for i := 0; i < 4; i++ {
		b.TapIn(1)
	}
	require.NoError(t, b.SetLength(33))
	assert.Equal(t, 64, b.Capacity())
	_, err = b.TapOut(0)
	assert.ErrorIs(t, err, graph.ErrRange, "cleared on resize")
	assert.Zero(t, b.TapOutClamped(63))

	assert.ErrorIs(t, b.SetLength(129), graph.ErrConfiguration)
	assert.ErrorIs(t, b.SetLength(0), graph.ErrConfiguration)
	assert.Equal(t, 64, b.Capacity(), "unchanged on error")

	allocs := testing.AllocsPerRun(10, func() {
		b.SetLength(128)
		b.SetLength(2)
	})
	assert.Zero(t, allocs)
}

func TestOneTap(t *testing.T) {
	b, err := buffer.NewModulus[int](3)
	require.NoError(t, err)

	in := []int{1, 2, 3, 4, 5, 6, 7}
	out := make([]int, len(in))
	b.OneTapRun(in, out)
	assert.Equal(t, []int{0, 0, 0, 1, 2, 3, 4}, out)
}

func TestAllocs(t *testing.T) {
	for name, b := range buffers(t) {
		allocs := testing.AllocsPerRun(100, func() {
			b.TapIn(1)
			b.TapOut(3)
			b.TapOut(1000)
			b.TapOutClamped(1000)
		})
		assert.Zero(t, allocs, name)
	}
}
