// Package mock provides instrumented components for tests.
package mock

import (
	"pipelined.dev/graph"
	"pipelined.dev/graph/param"
)

// Output port names.
const (
	SourceOutput = "out"
	VoiceOutput  = "out"
)

type (
	// Source generates samples with a function of channel and absolute
	// sample position. The position advances while disabled.
	Source struct {
		graph.Base
		counter
		Hooks
		out *graph.Port
		fn  func(channel, i int) float64
		pos int
	}

	// Recorder appends a record of every call to a shared trace.
	Recorder struct {
		graph.Base
		counter
		Hooks
		Name  string
		trace *Trace
	}

	// Trace is a sequence of calls. It is not thread-safe.
	Trace []Call

	// Call is a single traced call.
	Call struct {
		Name   string
		Offset int
		N      int
		Idle   bool
	}

	// Voice outputs a constant level scaled by velocity while the note is
	// held and fades out linearly after note off.
	Voice struct {
		graph.Base
		counter
		Hooks
		Level    float64
		Release  int
		NoteOns  int
		NoteOffs int
		out      *graph.Port
		gain     param.Ramp
		key      uint8
		active   bool
		released bool
	}

	// Hooks allows to check reset calls.
	Hooks struct {
		Resetted bool
	}
)

// NewSource returns a source with provided shape.
func NewSource(channels, capacity int, fn func(channel, i int) float64) (*Source, error) {
	out, err := graph.NewPort(channels, capacity)
	if err != nil {
		return nil, err
	}
	s := Source{fn: fn}
	s.Init(0)
	s.out = s.AddOutput(SourceOutput, out)
	return &s, nil
}

// Process implements graph.Component.
func (s *Source) Process(offset, n int) {
	s.Run(s, offset, n)
}

// Step generates samples.
func (s *Source) Step(offset, n int) {
	for c := 0; c < s.out.Channels(); c++ {
		ch := s.out.Channel(c)
		for i := 0; i < n; i++ {
			ch[offset+i] = s.fn(c, s.pos+i)
		}
	}
	s.pos += n
	s.advance(n)
}

// Idle advances the position.
func (s *Source) Idle(_, n int) {
	s.pos += n
}

// Position returns the absolute position of the next sample.
func (s *Source) Position() int {
	return s.pos
}

// Reset implements graph.Component.
func (s *Source) Reset() {
	s.Resetted = true
	s.pos = 0
	s.reset()
}

// NewRecorder returns a recorder that writes to the trace.
func NewRecorder(name string, trace *Trace) *Recorder {
	r := Recorder{Name: name, trace: trace}
	r.Init(0)
	return &r
}

// Process implements graph.Component.
func (r *Recorder) Process(offset, n int) {
	r.Run(r, offset, n)
}

// Step records a call.
func (r *Recorder) Step(offset, n int) {
	*r.trace = append(*r.trace, Call{Name: r.Name, Offset: offset, N: n})
	r.advance(n)
}

// Idle records an idle call.
func (r *Recorder) Idle(offset, n int) {
	*r.trace = append(*r.trace, Call{Name: r.Name, Offset: offset, N: n, Idle: true})
}

// Reset implements graph.Component.
func (r *Recorder) Reset() {
	r.Resetted = true
	r.reset()
}

// Names returns the names of traced calls in order.
func (t Trace) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

// NewVoice returns a voice with provided number of channels, output
// capacity, level and release length in samples.
func NewVoice(channels, capacity int, level float64, release int) (*Voice, error) {
	out, err := graph.NewPort(channels, capacity)
	if err != nil {
		return nil, err
	}
	v := Voice{Level: level, Release: release}
	v.Init(0)
	v.out = v.AddOutput(VoiceOutput, out)
	return &v, nil
}

// Process implements graph.Component.
func (v *Voice) Process(offset, n int) {
	v.Run(v, offset, n)
}

// Step writes the gain into all channels.
func (v *Voice) Step(offset, n int) {
	ch := v.out.Channel(0)
	for i := offset; i < offset+n; i++ {
		if !v.active {
			ch[i] = 0
			continue
		}
		ch[i] = v.gain.Next()
		if v.released && !v.gain.Active() {
			v.active = false
		}
	}
	for c := 1; c < v.out.Channels(); c++ {
		copy(v.out.Channel(c)[offset:offset+n], ch[offset:offset+n])
	}
	v.advance(n)
}

// NoteOn starts the note.
func (v *Voice) NoteOn(key uint8, velocity float64) {
	v.NoteOns++
	v.key = key
	v.active = true
	v.released = false
	v.gain.Jump(v.Level * velocity)
}

// NoteOff starts the release.
func (v *Voice) NoteOff() {
	v.NoteOffs++
	if !v.active {
		return
	}
	v.released = true
	if v.Release <= 0 {
		v.active = false
		v.gain.Jump(0)
		return
	}
	v.gain.Set(0, v.Release)
}

// Active returns true until the release is over.
func (v *Voice) Active() bool {
	return v.active
}

// Key returns the last played key.
func (v *Voice) Key() uint8 {
	return v.key
}

// Released returns true after note off.
func (v *Voice) Released() bool {
	return v.released
}

// Reset implements graph.Component.
func (v *Voice) Reset() {
	v.Resetted = true
	v.active = false
	v.released = false
	v.gain.Jump(0)
	v.reset()
}

// counter counts calls and samples.
type counter struct {
	calls   int
	samples int
}

func (c *counter) advance(size int) {
	c.calls++
	c.samples += size
}

func (c *counter) reset() {
	c.calls, c.samples = 0, 0
}

// Count returns calls and samples metrics.
func (c *counter) Count() (int, int) {
	return c.calls, c.samples
}
