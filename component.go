package graph

import (
	"pipelined.dev/graph/mutable"
)

type (
	// Component is a unit of processing. Process handles samples
	// [offset, offset+n) of the current block and must not allocate.
	Component interface {
		Process(offset, n int)
		Reset()
		SetEnabled(bool)
		Enabled() bool
	}

	// Outputter provides access to owned ports by name. Output returns
	// nil if there is no port with such name.
	Outputter interface {
		Output(name string) *Port
	}

	// Stepper processes one step of at most StepSize samples.
	Stepper interface {
		Step(offset, n int)
	}

	// Starter is called once per processing call before the first step.
	Starter interface {
		Start(offset, n int)
	}

	// Triggerer is called when the countdown set with SetTrigger
	// elapses. Position is the block sample of the trigger.
	Triggerer interface {
		Trigger(position int)
	}

	// Finisher is called once per processing call after the last step.
	Finisher interface {
		Finish()
	}

	// Idler advances the state of a disabled component.
	Idler interface {
		Idle(offset, n int)
	}
)

// Base implements the batching part of the Component contract. Zero
// value is enabled, has no step limit and is immutable.
type Base struct {
	mutable.Context
	disabled   bool
	stepSize   int
	trigger    int
	triggerSet bool
	outputs    []namedPort
}

type namedPort struct {
	name string
	port *Port
}

// Init makes the base mutable and sets the maximum number of samples
// per step. Zero step size means no limit.
func (b *Base) Init(stepSize int) {
	b.Context = mutable.Mutable()
	b.stepSize = stepSize
}

// AddOutput registers an owned port. Registered ports are silenced when
// the component is disabled.
func (b *Base) AddOutput(name string, p *Port) *Port {
	b.outputs = append(b.outputs, namedPort{name: name, port: p})
	return p
}

// Output returns an owned port by name.
func (b *Base) Output(name string) *Port {
	for _, o := range b.outputs {
		if o.name == name {
			return o.port
		}
	}
	return nil
}

// ClearOutputs silences all owned ports in the range [offset, offset+n).
func (b *Base) ClearOutputs(offset, n int) {
	for _, o := range b.outputs {
		o.port.Clear(offset, n)
		o.port.SetLen(offset + n)
	}
}

// StepSize returns the maximum number of samples per step.
func (b *Base) StepSize() int {
	return b.stepSize
}

// Enabled returns true if component is enabled.
func (b *Base) Enabled() bool {
	return !b.disabled
}

// SetEnabled enables or disables the component. It takes effect on the
// next processing call.
func (b *Base) SetEnabled(enabled bool) {
	b.disabled = !enabled
}

// Enable returns a mutation that enables or disables the component
// between blocks.
func (b *Base) Enable(enabled bool) mutable.Mutation {
	return b.Mutate(func() {
		b.SetEnabled(enabled)
	})
}

// SetTrigger fires Trigger after provided number of samples. Zero means
// before the next sample. Trigger must not set a zero countdown again.
func (b *Base) SetTrigger(samples int) {
	b.trigger = samples
	b.triggerSet = true
}

// ClearTrigger cancels pending trigger.
func (b *Base) ClearTrigger() {
	b.triggerSet = false
}

// Run drives s through [offset, offset+n). Steps never exceed the step
// size and are split at trigger points. Disabled component outputs
// silence for the range and only its Idle hook is called.
func (b *Base) Run(s Stepper, offset, n int) {
	end := offset + n
	if b.disabled {
		b.ClearOutputs(offset, n)
		if i, ok := s.(Idler); ok {
			i.Idle(offset, n)
		}
		return
	}
	if st, ok := s.(Starter); ok {
		st.Start(offset, n)
	}
	step := n
	if b.stepSize > 0 && b.stepSize < step {
		step = b.stepSize
	}
	t, _ := s.(Triggerer)
	for pos := offset; pos < end; {
		if b.triggerSet && b.trigger == 0 {
			b.triggerSet = false
			if t != nil {
				t.Trigger(pos)
			}
			continue
		}
		count := step
		if rest := end - pos; rest < count {
			count = rest
		}
		if b.triggerSet && b.trigger < count {
			count = b.trigger
		}
		s.Step(pos, count)
		pos += count
		if b.triggerSet {
			b.trigger -= count
		}
	}
	for _, o := range b.outputs {
		o.port.SetLen(end)
	}
	if f, ok := s.(Finisher); ok {
		f.Finish()
	}
}

// Silence clears the outputs of c in the range and lets it advance its
// state. Containers use it to skip their parts.
func Silence(c Component, offset, n int) {
	if i, ok := c.(Idler); ok {
		i.Idle(offset, n)
	}
	if o, ok := c.(interface{ ClearOutputs(offset, n int) }); ok {
		o.ClearOutputs(offset, n)
	}
}
