package poly

import (
	"pipelined.dev/graph"
	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/param"
)

// Output is the name of the output port of scheduler and poly.
const Output = "out"

const (
	// 5 ms at 44.1 kHz.
	defaultRampLength = 220
	defaultCapacity   = 256
	unmapped          = -1
)

type (
	// Scheduler outputs control values that change at sample offsets of
	// scheduled events. Every change starts a ramp at the event offset.
	Scheduler struct {
		graph.Base
		out        *graph.Port
		ramps      []param.Ramp
		initial    []float64
		rampLength int
		queue      schedule[change]
		controls   [128]int
		end        int
	}

	// SchedulerOption configures the scheduler.
	SchedulerOption func(*Scheduler)

	change struct {
		channel int
		value   float64
	}
)

// WithRampLength sets the ramp length in samples. Zero length jumps to
// the value.
func WithRampLength(samples int) SchedulerOption {
	return func(s *Scheduler) {
		s.rampLength = samples
	}
}

// WithScheduleCapacity sets the number of events the scheduler can hold.
func WithScheduleCapacity(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.queue = newSchedule[change](n)
	}
}

// WithInitial sets initial values of channels.
func WithInitial(values ...float64) SchedulerOption {
	return func(s *Scheduler) {
		copy(s.initial, values)
	}
}

// WithCurve sets the ramp curve of all channels.
func WithCurve(c param.Curve) SchedulerOption {
	return func(s *Scheduler) {
		for i := range s.ramps {
			s.ramps[i].SetCurve(c)
		}
	}
}

// NewScheduler returns a scheduler with provided number of channels and
// block capacity.
func NewScheduler(channels, maxBlock int, options ...SchedulerOption) (*Scheduler, error) {
	out, err := graph.NewPort(channels, maxBlock)
	if err != nil {
		return nil, err
	}
	s := Scheduler{
		ramps:      make([]param.Ramp, channels),
		initial:    make([]float64, channels),
		rampLength: defaultRampLength,
		queue:      newSchedule[change](defaultCapacity),
	}
	for i := range s.controls {
		s.controls[i] = unmapped
	}
	for _, option := range options {
		option(&s)
	}
	for i := range s.ramps {
		s.ramps[i].Jump(s.initial[i])
	}
	s.Init(0)
	s.out = s.AddOutput(Output, out)
	return &s, nil
}

// MapControl binds a controller number to the channel.
func (s *Scheduler) MapControl(cc uint8, channel int) error {
	if cc > 127 {
		return graph.Configurationf("map control", graph.ErrRange, "controller %d", cc)
	}
	if channel < 0 || channel >= len(s.ramps) {
		return graph.Configurationf("map control", graph.ErrChannelMismatch, "channel %d of %d", channel, len(s.ramps))
	}
	s.controls[cc] = channel
	return nil
}

// Add schedules a value change of the channel at the block offset.
// Offsets beyond the current block are carried into next blocks. It
// returns false if the channel is unknown or the scheduler is full.
func (s *Scheduler) Add(channel int, value float64, offset int) bool {
	if channel < 0 || channel >= len(s.ramps) {
		return false
	}
	if offset < 0 {
		offset = 0
	}
	return s.queue.push(change{channel: channel, value: value}, offset)
}

// Schedule implements graph.EventSink. Mapped control changes are added
// with value in [0, 1].
func (s *Scheduler) Schedule(e midi.Event) {
	if e.Kind != midi.ControlChange || e.Key > 127 {
		return
	}
	if ch := s.controls[e.Key]; ch != unmapped {
		s.Add(ch, e.Value, e.Offset)
	}
}

// Value returns the current value of the channel.
func (s *Scheduler) Value(channel int) float64 {
	return s.ramps[channel].Value()
}

// Pending returns number of scheduled events.
func (s *Scheduler) Pending() int {
	return s.queue.len()
}

// Process implements graph.Component.
func (s *Scheduler) Process(offset, n int) {
	s.Run(s, offset, n)
}

// Start sets the trigger at the first event of the range.
func (s *Scheduler) Start(offset, n int) {
	s.end = offset + n
	s.ClearTrigger()
	if _, at, ok := s.queue.peek(); ok && at < s.end {
		s.SetTrigger(max(at-offset, 0))
	}
}

// Trigger applies all events up to the position.
func (s *Scheduler) Trigger(position int) {
	for {
		c, at, ok := s.queue.peek()
		if !ok || at >= s.end {
			return
		}
		if at > position {
			s.SetTrigger(at - position)
			return
		}
		s.ramps[c.channel].Set(c.value, s.rampLength)
		s.queue.pop()
	}
}

// Step writes ramp values of all channels.
func (s *Scheduler) Step(offset, n int) {
	for c := range s.ramps {
		r := &s.ramps[c]
		ch := s.out.Channel(c)[offset : offset+n]
		for i := range ch {
			ch[i] = r.Next()
		}
	}
}

// Idle applies events of the range and advances ramps.
func (s *Scheduler) Idle(offset, n int) {
	for {
		c, at, ok := s.queue.peek()
		if !ok || at >= offset+n {
			break
		}
		s.ramps[c.channel].Set(c.value, s.rampLength)
		s.queue.pop()
	}
	for c := range s.ramps {
		s.ramps[c].Advance(n)
	}
}

// Advance implements graph.Advancer. Events left after the block are
// moved into the next one.
func (s *Scheduler) Advance(n int) {
	s.queue.advance(n)
}

// Reset drops scheduled events and restores initial values.
func (s *Scheduler) Reset() {
	s.queue.clear()
	for i := range s.ramps {
		s.ramps[i].Jump(s.initial[i])
	}
}
