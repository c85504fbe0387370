package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
)

func port(t *testing.T, channels, capacity int, values ...float64) *graph.Port {
	t.Helper()
	p, err := graph.NewPort(channels, capacity)
	require.NoError(t, err)
	for c := 0; c < channels; c++ {
		for i := 0; i < capacity; i++ {
			if len(values) > 0 {
				p.Set(c, i, values[c%len(values)])
			}
		}
	}
	return p
}

func TestPort(t *testing.T) {
	p := port(t, 2, 4)
	assert.Equal(t, 2, p.Channels())
	assert.Equal(t, 4, p.Capacity())
	assert.Zero(t, p.Len())

	p.Set(1, 3, 0.5)
	assert.Equal(t, 0.5, p.Sample(1, 3))
	assert.Equal(t, []float64{0, 0, 0, 0.5}, p.Channel(1))
	assert.Equal(t, []float64{0, 0, 0, 0}, p.Channel(0))
	// signal view shares the storage
	view := p.Signal()
	assert.Equal(t, 2, view.NumChannels())
	assert.Equal(t, 4, view.Size())
	view[0][0] = 0.25
	assert.Equal(t, 0.25, p.Sample(0, 0))
	p.Set(0, 0, 0)

	p.Set(0, 1, 1)
	p.Set(0, 2, 1)
	p.Clear(2, 2)
	assert.Equal(t, []float64{0, 1, 0, 0}, p.Channel(0))
	assert.Zero(t, p.Sample(1, 3))

	p.SetLen(3)
	assert.Equal(t, 3, p.Len())

	tests := map[string]struct {
		channels, capacity int
	}{
		"no channels": {0, 4},
		"no capacity": {2, 0},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := graph.NewPort(test.channels, test.capacity)
			assert.ErrorIs(t, err, graph.ErrConfiguration)
			assert.ErrorIs(t, err, graph.ErrCapacity)
			var cfgErr *graph.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "new port", cfgErr.Op)
		})
	}
}

func TestConnect(t *testing.T) {
	var c graph.Connector
	assert.False(t, c.Connected())
	assert.Zero(t, c.Sample(0, 0))

	p := port(t, 2, 4, 1, 2)
	c, err := graph.Connect(p, 2)
	require.NoError(t, err)
	assert.True(t, c.Connected())
	assert.Equal(t, 2, c.Channels())
	assert.Equal(t, 2.0, c.Sample(1, 0))

	_, err = graph.Connect(p, 1)
	assert.ErrorIs(t, err, graph.ErrChannelMismatch)

	var missing *graph.Port
	_, err = graph.Connect(missing, 1)
	assert.ErrorIs(t, err, graph.ErrMissingOutput)
	_, err = graph.Connect(nil, 1)
	assert.ErrorIs(t, err, graph.ErrMissingOutput)
}

func TestConstantAndPicker(t *testing.T) {
	c := graph.Constant{0.25, -1}
	assert.Equal(t, 2, c.Channels())
	assert.Equal(t, -1.0, c.Sample(1, 100))

	p, err := graph.Pick(c, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Channels())
	assert.Equal(t, -1.0, p.Sample(0, 3))

	_, err = graph.Pick(c, 2)
	assert.ErrorIs(t, err, graph.ErrChannelMismatch)
	_, err = graph.Pick(nil, 0)
	assert.ErrorIs(t, err, graph.ErrMissingOutput)
}
