package main

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/internal/config"
	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/param"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSynthAllocs(t *testing.T) {
	tests := map[string]string{
		"poly": "synth:\n  voices: 2\necho:\n  time: 5ms\n  feedback: 0.5\n  mix: 0.5\n" +
			"reverb:\n  impulse: %s\n  partition: 32\n  mix: 0.3\n",
		"legato": "synth:\n  voices: 1\n  legato: true\n  bend_range: 12\n" +
			"echo:\n  time: 5ms\n  feedback: 0.25\n  mix: 1\n",
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			if name == "poly" {
				yaml = fmt.Sprintf(yaml, writeWav(t, "ir.wav", 1, 0.5, 0.25, 0.125))
			}
			cfg, err := config.Parse([]byte("block_size: 64\n" + yaml))
			require.NoError(t, err)
			s, err := newSynth(cfg, discardLogger())
			require.NoError(t, err)

			events := []midi.Event{
				{Kind: midi.NoteOn, Key: 60, Value: 1, Offset: 1},
				{Kind: midi.NoteOn, Key: 64, Value: 0.5, Offset: 3},
				{Kind: midi.PitchBend, Value: 0.25, Offset: 4},
				{Kind: midi.ControlChange, Key: midi.CCEffects, Value: 0.5, Offset: 5},
				{Kind: midi.NoteOff, Key: 64, Offset: 9},
				{Kind: midi.NoteOff, Key: 60, Offset: 40},
			}
			var last float64
			allocs := testing.AllocsPerRun(50, func() {
				for _, e := range events {
					s.graph.Send(e)
				}
				_ = s.graph.Process(s.block)
				last = s.output.Sample(0, s.block-1)
			})
			assert.Zero(t, allocs)
			assert.NotZero(t, last)
		})
	}
}

func TestControls(t *testing.T) {
	const block = 8
	r := param.NewRegistry(1, param.WithBlockSize(block))
	id, err := r.Register("echo.mix", 1, param.WithRange(0, 1))
	require.NoError(t, err)
	l, err := r.Listen(id)
	require.NoError(t, err)
	ctl := newControls(r, 2)
	ctl.bind(midi.CCEffects, id)

	ctl.Schedule(midi.Event{Kind: midi.ControlChange, Key: midi.CCVolume, Value: 0, Offset: 1})
	ctl.Schedule(midi.Event{Kind: midi.NoteOn, Key: midi.CCEffects, Value: 0, Offset: 1})
	ctl.Schedule(midi.Event{Kind: midi.ControlChange, Key: midi.CCEffects, Value: 0, Offset: 4})
	values := make([]float64, block)
	for i := range values {
		values[i] = l.Sample(0, i)
	}
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 0.5, 0, 0}, values, "ramp starts at the event offset")

	r.Advance(block)
	v, _ := r.Get(id)
	assert.Zero(t, v)
}
