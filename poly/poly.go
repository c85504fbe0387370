// Package poly provides sample accurate event scheduling and polyphonic
// voice allocation.
//
// Poly owns a fixed arena of voices created at build time. Note events
// are applied at their block offsets: the block is split at every event
// and voices are processed in between. When all voices are busy a voice
// is stolen, it never allocates nor fails.
package poly

import (
	"pipelined.dev/graph"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/midi"
)

type (
	// Voice is a component that plays one note at a time.
	Voice interface {
		graph.Component
		graph.Outputter
		NoteOn(key uint8, velocity float64)
		NoteOff()
		// Active returns false when the voice has finished sounding.
		Active() bool
	}

	// Glider is a voice that can change its key without restarting the
	// note. Legato poly glides between held keys when voices implement
	// it and restarts the note otherwise.
	Glider interface {
		Glide(key uint8)
	}

	// Bender is a voice that follows the pitch wheel. Bend is the offset
	// in semitones.
	Bender interface {
		Bend(semitones float64)
	}

	// State is the allocation state of a voice.
	State uint8

	// StealPolicy selects a voice to reuse when all voices are busy.
	StealPolicy int

	// Poly allocates voices to notes and sums their outputs.
	Poly[V Voice] struct {
		graph.Base
		voices  *graph.SummingArray[V]
		slots   []slot
		gen     uint64
		policy  StealPolicy
		channel int
		sustain bool
		legato  bool
		held    noteStack
		bend    float64
		bendMax float64
		queue   schedule[midi.Event]
		end     int
		steals  metric.CountFunc
		dropped metric.CountFunc
	}

	// Option configures poly.
	Option func(*config)

	config struct {
		policy    StealPolicy
		channel   int
		capacity  int
		metrics   string
		legato    bool
		bendRange float64
	}

	slot struct {
		key       uint8
		gen       uint64
		state     State
		sustained bool
	}
)

const (
	// Idle voice is not assigned to a note.
	Idle State = iota
	// Active voice holds a note.
	Active
	// Releasing voice received note off and still sounds.
	Releasing
)

const (
	// StealOldest takes the voice that started its note first.
	StealOldest StealPolicy = iota
	// StealReleasedFirst takes the oldest releasing voice if there is
	// one and the oldest voice otherwise.
	StealReleasedFirst
)

// Omni makes poly respond to all MIDI channels.
const Omni = -1

const defaultBendRange = 2

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	}
	return "unknown"
}

// WithStealPolicy sets the steal policy.
func WithStealPolicy(p StealPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithChannel limits poly to a single MIDI channel.
func WithChannel(ch int) Option {
	return func(c *config) {
		c.channel = ch
	}
}

// WithEventCapacity sets the number of events poly can hold.
func WithEventCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithLegato makes poly monophonic. Only the first voice plays. A new
// key while another is held moves the voice to it, and releasing the
// last pressed key returns the voice to the previous held one.
func WithLegato() Option {
	return func(c *config) {
		c.legato = true
	}
}

// WithBendRange sets the pitch wheel range in semitones. Default range
// is 2 semitones.
func WithBendRange(semitones float64) Option {
	return func(c *config) {
		c.bendRange = semitones
	}
}

// WithMetrics reports steals and dropped events under the graph name.
func WithMetrics(name string) Option {
	return func(c *config) {
		c.metrics = name
	}
}

// New returns poly with provided voices. Every voice must have an output
// with provided name and the same shape.
func New[V Voice](output string, voices []V, options ...Option) (*Poly[V], error) {
	c := config{
		channel:   Omni,
		capacity:  defaultCapacity,
		bendRange: defaultBendRange,
	}
	for _, option := range options {
		option(&c)
	}
	if c.channel < Omni || c.channel > 15 {
		return nil, graph.Configurationf("new poly", graph.ErrRange, "midi channel %d", c.channel)
	}
	if c.bendRange < 0 || c.bendRange > 48 {
		return nil, graph.Configurationf("new poly", graph.ErrRange, "bend range %v", c.bendRange)
	}
	a, err := graph.NewSummingArray(output, voices...)
	if err != nil {
		return nil, err
	}
	p := Poly[V]{
		voices:  a,
		slots:   make([]slot, len(voices)),
		policy:  c.policy,
		channel: c.channel,
		legato:  c.legato,
		bendMax: c.bendRange,
		queue:   newSchedule[midi.Event](c.capacity),
		steals:  func(int64) {},
		dropped: func(int64) {},
	}
	if c.metrics != "" {
		p.steals = metric.Counter(c.metrics, metric.StealCounter)
		p.dropped = metric.Counter(c.metrics, metric.DroppedCounter)
	}
	for _, v := range voices {
		v.SetEnabled(false)
	}
	p.Init(0)
	p.AddOutput(Output, a.Sum())
	return &p, nil
}

// Len returns number of voices.
func (p *Poly[V]) Len() int {
	return len(p.slots)
}

// Voice returns the voice with index i.
func (p *Poly[V]) Voice(i int) V {
	return p.voices.At(i)
}

// State returns the state of the voice with index i.
func (p *Poly[V]) State(i int) State {
	return p.slots[i].state
}

// Key returns the key of the voice with index i.
func (p *Poly[V]) Key(i int) uint8 {
	return p.slots[i].key
}

// Busy returns number of voices that are not idle.
func (p *Poly[V]) Busy() int {
	var n int
	for i := range p.slots {
		if p.slots[i].state != Idle {
			n++
		}
	}
	return n
}

// Sustained returns true while the sustain pedal is down.
func (p *Poly[V]) Sustained() bool {
	return p.sustain
}

// Bend returns the current pitch wheel offset in semitones.
func (p *Poly[V]) Bend() float64 {
	return p.bend
}

// Held returns number of keys held in legato mode.
func (p *Poly[V]) Held() int {
	return p.held.len
}

// Schedule implements graph.EventSink. Events of other channels are
// ignored. Events that do not fit into the schedule are dropped.
func (p *Poly[V]) Schedule(e midi.Event) {
	if p.channel != Omni && int(e.Channel) != p.channel {
		return
	}
	if !p.queue.push(e, max(e.Offset, 0)) {
		p.dropped(1)
	}
}

// Advance implements graph.Advancer.
func (p *Poly[V]) Advance(n int) {
	p.queue.advance(n)
}

// Process implements graph.Component.
func (p *Poly[V]) Process(offset, n int) {
	p.Run(p, offset, n)
}

// Start sets the trigger at the first event of the range.
func (p *Poly[V]) Start(offset, n int) {
	p.end = offset + n
	p.ClearTrigger()
	if _, at, ok := p.queue.peek(); ok && at < p.end {
		p.SetTrigger(max(at-offset, 0))
	}
}

// Trigger applies all events up to the position.
func (p *Poly[V]) Trigger(position int) {
	for {
		e, at, ok := p.queue.peek()
		if !ok || at >= p.end {
			return
		}
		if at > position {
			p.SetTrigger(at - position)
			return
		}
		p.handle(e)
		p.queue.pop()
	}
}

// Step processes the voices.
func (p *Poly[V]) Step(offset, n int) {
	p.voices.Process(offset, n)
}

// Finish returns voices that stopped sounding to the idle pool.
func (p *Poly[V]) Finish() {
	for i := range p.slots {
		s := &p.slots[i]
		if s.state == Idle || p.voices.At(i).Active() {
			continue
		}
		s.state = Idle
		s.sustained = false
		p.voices.At(i).SetEnabled(false)
	}
}

// Idle applies events of the range without processing voices.
func (p *Poly[V]) Idle(offset, n int) {
	for {
		e, at, ok := p.queue.peek()
		if !ok || at >= offset+n {
			break
		}
		p.handle(e)
		p.queue.pop()
	}
	graph.Silence(p.voices, offset, n)
}

// Reset silences all voices and drops scheduled events.
func (p *Poly[V]) Reset() {
	p.queue.clear()
	p.sustain = false
	p.setBend(0)
	p.resetVoices()
}

func (p *Poly[V]) handle(e midi.Event) {
	switch e.Kind {
	case midi.NoteOn:
		if e.Value <= 0 {
			p.noteOff(e.Key)
			return
		}
		p.noteOn(e.Key, e.Value)
	case midi.NoteOff:
		p.noteOff(e.Key)
	case midi.PitchBend:
		p.setBend(e.Value * p.bendMax)
	case midi.ControlChange:
		switch e.Key {
		case midi.CCSustain:
			p.setSustain(e.Value >= 0.5)
		case midi.CCAllNotesOff:
			p.releaseAll()
		case midi.CCAllSoundOff:
			p.resetVoices()
		case midi.CCResetAll:
			p.setSustain(false)
		}
	}
}

func (p *Poly[V]) noteOn(key uint8, velocity float64) {
	if p.legato {
		p.legatoOn(key, velocity)
		return
	}
	i := p.find(key)
	if i < 0 {
		i = p.idle()
	}
	if i < 0 {
		i = p.victim()
		p.steals(1)
		p.voices.At(i).Reset()
	}
	p.gen++
	p.slots[i] = slot{key: key, gen: p.gen, state: Active}
	p.start(i, key, velocity)
}

func (p *Poly[V]) start(i int, key uint8, velocity float64) {
	v := p.voices.At(i)
	v.SetEnabled(true)
	if b, ok := any(v).(Bender); ok {
		b.Bend(p.bend)
	}
	v.NoteOn(key, velocity)
}

// legatoOn plays the key on the first voice. The voice glides if it
// holds another key and is not releasing.
func (p *Poly[V]) legatoOn(key uint8, velocity float64) {
	s := &p.slots[0]
	playing := p.held.len > 0 && s.state == Active
	p.held.push(key, velocity)
	if !playing {
		p.gen++
		*s = slot{key: key, gen: p.gen, state: Active}
		p.start(0, key, velocity)
		return
	}
	s.sustained = false
	p.moveTo(key, velocity)
}

// legatoOff returns to the previous held key if the released key is
// the one playing. The voice is released when no key is held.
func (p *Poly[V]) legatoOff(key uint8) {
	playing, _, _ := p.held.top()
	if !p.held.remove(key) {
		return
	}
	s := &p.slots[0]
	if s.state != Active {
		return
	}
	prev, velocity, ok := p.held.top()
	switch {
	case ok && key == playing:
		p.moveTo(prev, velocity)
	case ok:
	case p.sustain:
		s.sustained = true
	default:
		p.release(0)
	}
}

func (p *Poly[V]) moveTo(key uint8, velocity float64) {
	p.slots[0].key = key
	v := p.voices.At(0)
	if g, ok := any(v).(Glider); ok {
		g.Glide(key)
		return
	}
	v.NoteOn(key, velocity)
}

func (p *Poly[V]) setBend(semitones float64) {
	p.bend = semitones
	for i := range p.slots {
		if p.slots[i].state == Idle {
			continue
		}
		if b, ok := any(p.voices.At(i)).(Bender); ok {
			b.Bend(semitones)
		}
	}
}

func (p *Poly[V]) noteOff(key uint8) {
	if p.legato {
		p.legatoOff(key)
		return
	}
	for i := range p.slots {
		s := &p.slots[i]
		if s.state != Active || s.key != key {
			continue
		}
		if p.sustain {
			s.sustained = true
			continue
		}
		p.release(i)
	}
}

func (p *Poly[V]) release(i int) {
	p.slots[i].state = Releasing
	p.slots[i].sustained = false
	p.voices.At(i).NoteOff()
}

func (p *Poly[V]) setSustain(on bool) {
	p.sustain = on
	if on {
		return
	}
	for i := range p.slots {
		if p.slots[i].sustained {
			p.release(i)
		}
	}
}

func (p *Poly[V]) releaseAll() {
	p.held.clear()
	for i := range p.slots {
		if p.slots[i].state == Active {
			p.release(i)
		}
	}
}

func (p *Poly[V]) resetVoices() {
	p.held.clear()
	for i := range p.slots {
		v := p.voices.At(i)
		v.Reset()
		v.SetEnabled(false)
		p.slots[i].state = Idle
		p.slots[i].sustained = false
	}
}

// find returns the busy voice holding the key.
func (p *Poly[V]) find(key uint8) int {
	for i := range p.slots {
		if p.slots[i].state != Idle && p.slots[i].key == key {
			return i
		}
	}
	return -1
}

func (p *Poly[V]) idle() int {
	for i := range p.slots {
		if p.slots[i].state == Idle {
			return i
		}
	}
	return -1
}

// victim returns the voice to steal. All voices are busy.
func (p *Poly[V]) victim() int {
	oldest, released := 0, -1
	for i := range p.slots {
		s := p.slots[i]
		if s.gen < p.slots[oldest].gen {
			oldest = i
		}
		if s.state == Releasing && (released < 0 || s.gen < p.slots[released].gen) {
			released = i
		}
	}
	if p.policy == StealReleasedFirst && released >= 0 {
		return released
	}
	return oldest
}

// noteStack holds pressed keys in the order they were pressed. Keys are
// unique, so it never overflows.
type noteStack struct {
	keys       [256]uint8
	velocities [256]float64
	len        int
}

// push moves the key to the top.
func (s *noteStack) push(key uint8, velocity float64) {
	s.remove(key)
	s.keys[s.len] = key
	s.velocities[s.len] = velocity
	s.len++
}

func (s *noteStack) remove(key uint8) bool {
	for i := 0; i < s.len; i++ {
		if s.keys[i] != key {
			continue
		}
		copy(s.keys[i:s.len-1], s.keys[i+1:s.len])
		copy(s.velocities[i:s.len-1], s.velocities[i+1:s.len])
		s.len--
		return true
	}
	return false
}

func (s *noteStack) top() (uint8, float64, bool) {
	if s.len == 0 {
		return 0, 0, false
	}
	return s.keys[s.len-1], s.velocities[s.len-1], true
}

func (s *noteStack) clear() {
	s.len = 0
}
