package main

import (
	"math"

	"pipelined.dev/graph"
	"pipelined.dev/graph/param"
)

const voiceOutput = "out"

// voice is a sine oscillator with linear attack and release. It glides
// between keys in legato mode and follows the pitch wheel.
type voice struct {
	graph.Base
	out        *graph.Port
	env        param.Ramp
	sampleRate float64
	level      float64
	attack     int
	release    int
	phase      float64
	step       float64
	key        uint8
	bend       float64
	active     bool
	releasing  bool
}

func newVoice(maxBlock int, sampleRate, level float64, attack, release int) (*voice, error) {
	out, err := graph.NewPort(1, maxBlock)
	if err != nil {
		return nil, err
	}
	v := voice{
		sampleRate: sampleRate,
		level:      level,
		attack:     attack,
		release:    release,
	}
	v.Init(0)
	v.out = v.AddOutput(voiceOutput, out)
	return &v, nil
}

func frequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func (v *voice) retune() {
	v.step = frequency(v.key) * math.Pow(2, v.bend/12) / v.sampleRate
}

func (v *voice) NoteOn(key uint8, velocity float64) {
	v.key = key
	v.retune()
	v.env.Set(v.level*velocity, v.attack)
	v.active = true
	v.releasing = false
}

func (v *voice) Glide(key uint8) {
	v.key = key
	v.retune()
}

func (v *voice) Bend(semitones float64) {
	v.bend = semitones
	v.retune()
}

func (v *voice) NoteOff() {
	v.env.Set(0, v.release)
	v.releasing = true
}

func (v *voice) Active() bool {
	return v.active
}

func (v *voice) Process(offset, n int) {
	v.Run(v, offset, n)
}

func (v *voice) Step(offset, n int) {
	ch := v.out.Channel(0)
	for i := offset; i < offset+n; i++ {
		if !v.active {
			ch[i] = 0
			continue
		}
		ch[i] = math.Sin(2*math.Pi*v.phase) * v.env.Next()
		v.phase += v.step
		if v.phase >= 1 {
			v.phase--
		}
		if v.releasing && !v.env.Active() {
			v.active = false
		}
	}
}

func (v *voice) Reset() {
	v.env.Jump(0)
	v.phase = 0
	v.active = false
	v.releasing = false
}
