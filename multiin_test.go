package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
)

func TestSum(t *testing.T) {
	orders := [][]float64{
		{1, 2, -0.5},
		{2, -0.5, 1},
		{-0.5, 1, 2},
	}
	for _, order := range orders {
		inputs := make([]graph.Coupler, len(order))
		for i, v := range order {
			inputs[i] = graph.Constant{v, 2 * v}
		}
		s, err := graph.NewSum(inputs...)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Channels())
		assert.Equal(t, 2.5, s.Sample(0, 0))
		assert.Equal(t, 5.0, s.Sample(1, 7))
	}
}

func TestProductAndMaximum(t *testing.T) {
	a, b := port(t, 1, 4, 0.5), port(t, 1, 4, -3)
	p, err := graph.NewProduct(a, b, graph.Constant{2})
	require.NoError(t, err)
	assert.Equal(t, -3.0, p.Sample(0, 1))

	m, err := graph.NewMaximum(b, a)
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Sample(0, 2))

	// combinators nest
	s, err := graph.NewSum(p, m)
	require.NoError(t, err)
	assert.Equal(t, -2.5, s.Sample(0, 3))
}

func TestMultiInErrors(t *testing.T) {
	var missing *graph.Port
	tests := map[string]struct {
		inputs   []graph.Coupler
		expected []error
	}{
		"no inputs": {
			expected: []error{graph.ErrNoInputs},
		},
		"missing": {
			inputs:   []graph.Coupler{graph.Constant{1}, missing},
			expected: []error{graph.ErrMissingOutput},
		},
		"first missing": {
			inputs:   []graph.Coupler{nil, graph.Constant{1}, graph.Constant{1}},
			expected: []error{graph.ErrMissingOutput},
		},
		"all problems": {
			inputs:   []graph.Coupler{graph.Constant{1}, nil, graph.Constant{1, 2}},
			expected: []error{graph.ErrMissingOutput, graph.ErrChannelMismatch},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := graph.NewSum(test.inputs...)
			require.Error(t, err)
			assert.ErrorIs(t, err, graph.ErrConfiguration)
			for _, e := range test.expected {
				assert.ErrorIs(t, err, e)
			}
			_, err = graph.NewSwitch(test.inputs)
			assert.ErrorIs(t, err, graph.ErrConfiguration)
		})
	}
}

func TestSwitch(t *testing.T) {
	a, b := graph.Constant{1}, graph.Constant{2}
	tests := map[string]struct {
		policy   graph.SelectPolicy
		selector []float64
		expected []float64
	}{
		"clamp": {
			policy:   graph.Clamp,
			selector: []float64{0, 1, 2, -1, 0.9},
			expected: []float64{1, 2, 2, 1, 1},
		},
		"wrap": {
			policy:   graph.Wrap,
			selector: []float64{0, 1, 2, -1, 3.5},
			expected: []float64{1, 2, 1, 2, 2},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			sel := port(t, 1, len(test.selector))
			copy(sel.Channel(0), test.selector)
			s, err := graph.NewSwitch([]graph.Coupler{a, b},
				graph.WithSelector(sel),
				graph.WithSelectPolicy(test.policy),
			)
			require.NoError(t, err)
			for i, expected := range test.expected {
				assert.Equal(t, expected, s.Sample(0, i), "selector %v", test.selector[i])
			}
		})
	}

	s, err := graph.NewSwitch([]graph.Coupler{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Sample(0, 0))
	s.Select(5)
	assert.Equal(t, 1, s.Selected())
	assert.Equal(t, 2.0, s.Sample(0, 0))

	_, err = graph.NewSwitch([]graph.Coupler{a, b}, graph.WithSelector(graph.Constant{0, 1}))
	assert.ErrorIs(t, err, graph.ErrChannelMismatch)
}
