package param

import (
	"errors"
	"math"

	"pipelined.dev/graph"
	"pipelined.dev/graph/mutable"
)

var (
	// ErrDuplicate is returned when a parameter with the same name is
	// already registered.
	ErrDuplicate = errors.New("duplicate parameter")
	// ErrFull is returned when all slots of the registry are taken.
	ErrFull = errors.New("registry is full")
	// ErrStale is returned when the parameter was unregistered.
	ErrStale = errors.New("stale parameter id")
)

const (
	defaultSampleRate = 44100
	// changes of one parameter that can start within a block.
	maxChanges = 8
)

type (
	// ID is a weak reference to a parameter. It becomes stale when the
	// parameter is unregistered. Zero ID is never valid.
	ID struct {
		slot uint32
		gen  uint32
	}

	// Registry owns named parameters. It is owned by the processing
	// goroutine, control goroutines change it with mutations.
	Registry struct {
		mutable.Context
		slots      []slot
		names      map[string]int
		sampleRate float64
		blockSize  int
		transport  Transport
	}

	// Option configures the registry.
	Option func(*Registry)

	// ParameterOption configures a parameter.
	ParameterOption func(*slot)

	slot struct {
		name     string
		gen      uint32
		used     bool
		min, max float64
		// ramp at the start of the block.
		ramp    Ramp
		changes [maxChanges]change
		pending int
	}

	// change is a ramp that starts at sample of the current block.
	change struct {
		at   int
		ramp Ramp
	}
)

// WithSampleRate sets the sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(r *Registry) {
		r.sampleRate = sampleRate
	}
}

// WithBlockSize sets the maximum block size.
func WithBlockSize(n int) Option {
	return func(r *Registry) {
		r.blockSize = n
	}
}

// WithTransport sets the initial transport state.
func WithTransport(t Transport) Option {
	return func(r *Registry) {
		r.transport = t
	}
}

// WithCurve sets the ramp curve of the parameter.
func WithCurve(c Curve) ParameterOption {
	return func(s *slot) {
		s.ramp.SetCurve(c)
	}
}

// WithRange limits the values of the parameter.
func WithRange(min, max float64) ParameterOption {
	return func(s *slot) {
		s.min, s.max = min, max
	}
}

// NewRegistry returns a registry with fixed number of slots.
func NewRegistry(capacity int, options ...Option) *Registry {
	r := Registry{
		Context:    mutable.Mutable(),
		slots:      make([]slot, capacity),
		names:      make(map[string]int, capacity),
		sampleRate: defaultSampleRate,
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Register adds a parameter with initial value.
func (r *Registry) Register(name string, initial float64, options ...ParameterOption) (ID, error) {
	if _, ok := r.names[name]; ok {
		return ID{}, graph.Configurationf("register parameter", ErrDuplicate, "%q", name)
	}
	for i := range r.slots {
		s := &r.slots[i]
		if s.used {
			continue
		}
		*s = slot{
			name: name,
			gen:  s.gen + 1,
			used: true,
			min:  math.Inf(-1),
			max:  math.Inf(1),
		}
		for _, option := range options {
			option(s)
		}
		s.ramp.Jump(s.limit(initial))
		r.names[name] = i
		return ID{slot: uint32(i), gen: s.gen}, nil
	}
	return ID{}, graph.Configurationf("register parameter", ErrFull, "%q: capacity %d", name, len(r.slots))
}

// Unregister removes the parameter. All its IDs and listeners become
// stale.
func (r *Registry) Unregister(id ID) {
	s := r.slot(id)
	if s == nil {
		return
	}
	delete(r.names, s.name)
	s.used = false
	s.gen++
}

// Close makes all IDs and listeners stale.
func (r *Registry) Close() {
	for i := range r.slots {
		if r.slots[i].used {
			r.Unregister(ID{slot: uint32(i), gen: r.slots[i].gen})
		}
	}
}

// Lookup returns the ID of the named parameter.
func (r *Registry) Lookup(name string) (ID, bool) {
	i, ok := r.names[name]
	if !ok {
		return ID{}, false
	}
	return ID{slot: uint32(i), gen: r.slots[i].gen}, true
}

// Name returns the name of the parameter.
func (r *Registry) Name(id ID) (string, bool) {
	if s := r.slot(id); s != nil {
		return s.name, true
	}
	return "", false
}

// Get returns the current value of the parameter.
func (r *Registry) Get(id ID) (float64, bool) {
	if s := r.slot(id); s != nil {
		return s.ramp.Value(), true
	}
	return 0, false
}

// SetImmediate jumps to the value without ramp.
func (r *Registry) SetImmediate(id ID, v float64) bool {
	s := r.slot(id)
	if s == nil {
		return false
	}
	s.pending = 0
	s.ramp.Jump(s.limit(v))
	return true
}

// SetRamped starts a ramp to the value. The value is reached exactly
// after samples and held afterwards.
func (r *Registry) SetRamped(id ID, v float64, samples int) bool {
	s := r.slot(id)
	if s == nil {
		return false
	}
	s.pending = 0
	s.ramp.Set(s.limit(v), samples)
	return true
}

// SetRampedAt starts a ramp to the value at the sample of the current
// block. Changes of one block are applied in order of offsets. An offset
// before the last change of the block starts at that change. When the
// block is out of change slots the last change is retargeted.
func (r *Registry) SetRampedAt(id ID, v float64, samples, offset int) bool {
	s := r.slot(id)
	if s == nil {
		return false
	}
	v = s.limit(v)
	if offset <= 0 && s.pending == 0 {
		s.ramp.Set(v, samples)
		return true
	}
	prev, at := s.ramp, 0
	if s.pending > 0 {
		last := &s.changes[s.pending-1]
		if offset <= last.at || s.pending == maxChanges {
			// ramp has not advanced, so it restarts from the same value
			last.ramp.Set(v, samples)
			return true
		}
		prev, at = last.ramp, last.at
	}
	prev.Advance(offset - at)
	prev.Set(v, samples)
	s.changes[s.pending] = change{at: offset, ramp: prev}
	s.pending++
	return true
}

// Immediate returns a mutation that calls SetImmediate between blocks.
func (r *Registry) Immediate(id ID, v float64) mutable.Mutation {
	return r.Mutate(func() {
		r.SetImmediate(id, v)
	})
}

// Ramped returns a mutation that calls SetRamped between blocks.
func (r *Registry) Ramped(id ID, v float64, samples int) mutable.Mutation {
	return r.Mutate(func() {
		r.SetRamped(id, v, samples)
	})
}

// Advance moves all ramps and the transport by n samples.
func (r *Registry) Advance(n int) {
	for i := range r.slots {
		if r.slots[i].used {
			r.slots[i].advance(n)
		}
	}
	r.transport.advance(n, r.sampleRate)
}

// Len returns number of registered parameters.
func (r *Registry) Len() int {
	return len(r.names)
}

// SampleRate returns the sample rate.
func (r *Registry) SampleRate() float64 {
	return r.sampleRate
}

// SampleInterval returns the duration of one sample in seconds.
func (r *Registry) SampleInterval() float64 {
	return 1 / r.sampleRate
}

// BlockSize returns the maximum block size.
func (r *Registry) BlockSize() int {
	return r.blockSize
}

// MsToSamples converts milliseconds to samples.
func (r *Registry) MsToSamples(ms float64) float64 {
	return ms * r.sampleRate / 1000
}

// SamplesToMs converts samples to milliseconds.
func (r *Registry) SamplesToMs(samples float64) float64 {
	return samples * 1000 / r.sampleRate
}

func (r *Registry) slot(id ID) *slot {
	if int(id.slot) >= len(r.slots) {
		return nil
	}
	s := &r.slots[id.slot]
	if !s.used || s.gen != id.gen {
		return nil
	}
	return s
}

// at returns the value at block sample i.
func (s *slot) at(i int) float64 {
	for j := s.pending - 1; j >= 0; j-- {
		if c := &s.changes[j]; i >= c.at {
			return c.ramp.At(i - c.at)
		}
	}
	return s.ramp.At(i)
}

func (s *slot) advance(n int) {
	if s.pending == 0 {
		s.ramp.Advance(n)
		return
	}
	last := s.changes[s.pending-1]
	s.ramp = last.ramp
	s.ramp.Advance(n - last.at)
	s.pending = 0
}

func (s *slot) limit(v float64) float64 {
	return math.Max(s.min, math.Min(s.max, v))
}
