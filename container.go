package graph

type (
	// Container processes its parts in declared order.
	Container struct {
		Base
		parts []Component
	}

	// SummingArray processes its parts in declared order and sums the
	// named output of every part into its own "sum" port.
	SummingArray[C SummingComponent] struct {
		Base
		parts  []C
		inputs []*Port
		sum    *Port
	}

	// SummingComponent is a component with named outputs.
	SummingComponent interface {
		Component
		Outputter
	}
)

// SumOutput is the name of the summing array output.
const SumOutput = "sum"

// NewContainer returns a container of parts.
func NewContainer(parts ...Component) *Container {
	c := Container{
		parts: append([]Component(nil), parts...),
	}
	c.Init(0)
	return &c
}

// Process all parts in declared order.
func (c *Container) Process(offset, n int) {
	c.Run(c, offset, n)
}

// Step processes all parts in declared order.
func (c *Container) Step(offset, n int) {
	for _, p := range c.parts {
		p.Process(offset, n)
	}
}

// Idle silences the parts.
func (c *Container) Idle(offset, n int) {
	for _, p := range c.parts {
		Silence(p, offset, n)
	}
}

// Reset all parts.
func (c *Container) Reset() {
	for _, p := range c.parts {
		p.Reset()
	}
}

// Len returns number of parts.
func (c *Container) Len() int {
	return len(c.parts)
}

// NewSummingArray returns a summing array of parts. All parts must have
// an output with provided name and the same shape.
func NewSummingArray[C SummingComponent](output string, parts ...C) (*SummingArray[C], error) {
	if len(parts) == 0 {
		return nil, NewConfigurationError("summing array", ErrNoInputs)
	}
	var errs configErrors
	inputs := make([]*Port, len(parts))
	for i, p := range parts {
		in := p.Output(output)
		if in == nil {
			errs = append(errs, Configurationf("summing array", ErrMissingOutput, "part %d: %q", i, output))
			continue
		}
		inputs[i] = in
	}
	if err := errs.ret(); err != nil {
		return nil, err
	}
	for i, in := range inputs {
		if in.Channels() != inputs[0].Channels() {
			errs = append(errs, Configurationf("summing array", ErrChannelMismatch, "part %d: expected %d got %d", i, inputs[0].Channels(), in.Channels()))
		}
		if in.Capacity() != inputs[0].Capacity() {
			errs = append(errs, Configurationf("summing array", ErrCapacity, "part %d: expected %d got %d", i, inputs[0].Capacity(), in.Capacity()))
		}
	}
	if err := errs.ret(); err != nil {
		return nil, err
	}
	sum, err := NewPort(inputs[0].Channels(), inputs[0].Capacity())
	if err != nil {
		return nil, err
	}
	a := SummingArray[C]{
		parts:  append([]C(nil), parts...),
		inputs: inputs,
	}
	a.Init(0)
	a.sum = a.AddOutput(SumOutput, sum)
	return &a, nil
}

// Process all parts in declared order and sum their outputs.
func (a *SummingArray[C]) Process(offset, n int) {
	a.Run(a, offset, n)
}

// Step processes all parts and sums their outputs.
func (a *SummingArray[C]) Step(offset, n int) {
	for _, p := range a.parts {
		p.Process(offset, n)
	}
	for c := 0; c < a.sum.Channels(); c++ {
		out := a.sum.Channel(c)[offset : offset+n]
		copy(out, a.inputs[0].Channel(c)[offset:offset+n])
		for _, in := range a.inputs[1:] {
			for i, v := range in.Channel(c)[offset : offset+n] {
				out[i] += v
			}
		}
	}
}

// Idle silences the parts.
func (a *SummingArray[C]) Idle(offset, n int) {
	for _, p := range a.parts {
		Silence(p, offset, n)
	}
}

// Reset all parts.
func (a *SummingArray[C]) Reset() {
	for _, p := range a.parts {
		p.Reset()
	}
}

// Len returns number of parts.
func (a *SummingArray[C]) Len() int {
	return len(a.parts)
}

// At returns the part with index i.
func (a *SummingArray[C]) At(i int) C {
	return a.parts[i]
}

// Sum returns the owned output port.
func (a *SummingArray[C]) Sum() *Port {
	return a.sum
}
