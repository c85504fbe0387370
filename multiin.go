package graph

import "math"

type (
	// Sum is a coupler that adds its inputs.
	Sum struct {
		multiIn
	}

	// Product is a coupler that multiplies its inputs.
	Product struct {
		multiIn
	}

	// Maximum is a coupler that returns per-channel maximum of its
	// inputs.
	Maximum struct {
		multiIn
	}

	// Switch is a coupler that passes one of its inputs. The input is
	// chosen per sample by the selector or fixed with Select.
	Switch struct {
		multiIn
		selector Coupler
		selected int
		policy   SelectPolicy
	}

	// SwitchOption configures the switch.
	SwitchOption func(*Switch)

	// SelectPolicy resolves selector values that are out of range.
	SelectPolicy int

	multiIn struct {
		inputs   []Coupler
		channels int
	}
)

const (
	// Clamp limits the selector to [0, N-1].
	Clamp SelectPolicy = iota
	// Wrap takes the selector modulo N.
	Wrap
)

func newMultiIn(op string, inputs []Coupler) (multiIn, error) {
	if len(inputs) == 0 {
		return multiIn{}, NewConfigurationError(op, ErrNoInputs)
	}
	var errs configErrors
	channels := 0
	for i, in := range inputs {
		if missing(in) {
			errs = append(errs, Configurationf(op, ErrMissingOutput, "input %d", i))
			continue
		}
		if channels == 0 {
			channels = in.Channels()
			continue
		}
		if in.Channels() != channels {
			errs = append(errs, Configurationf(op, ErrChannelMismatch, "input %d: expected %d got %d", i, channels, in.Channels()))
		}
	}
	if err := errs.ret(); err != nil {
		return multiIn{}, err
	}
	return multiIn{
		inputs:   append([]Coupler(nil), inputs...),
		channels: channels,
	}, nil
}

// Channels returns number of channels.
func (m multiIn) Channels() int {
	return m.channels
}

// NewSum returns the sum of inputs.
func NewSum(inputs ...Coupler) (*Sum, error) {
	m, err := newMultiIn("sum", inputs)
	if err != nil {
		return nil, err
	}
	return &Sum{multiIn: m}, nil
}

// Sample returns sum of input samples.
func (s *Sum) Sample(channel, index int) float64 {
	var v float64
	for _, in := range s.inputs {
		v += in.Sample(channel, index)
	}
	return v
}

// NewProduct returns the product of inputs.
func NewProduct(inputs ...Coupler) (*Product, error) {
	m, err := newMultiIn("product", inputs)
	if err != nil {
		return nil, err
	}
	return &Product{multiIn: m}, nil
}

// Sample returns product of input samples.
func (p *Product) Sample(channel, index int) float64 {
	v := 1.0
	for _, in := range p.inputs {
		v *= in.Sample(channel, index)
	}
	return v
}

// NewMaximum returns the maximum of inputs.
func NewMaximum(inputs ...Coupler) (*Maximum, error) {
	m, err := newMultiIn("maximum", inputs)
	if err != nil {
		return nil, err
	}
	return &Maximum{multiIn: m}, nil
}

// Sample returns the greatest input sample.
func (m *Maximum) Sample(channel, index int) float64 {
	v := m.inputs[0].Sample(channel, index)
	for _, in := range m.inputs[1:] {
		v = math.Max(v, in.Sample(channel, index))
	}
	return v
}

// WithSelector reads the input index from the first channel of the
// coupler on every sample.
func WithSelector(c Coupler) SwitchOption {
	return func(s *Switch) {
		s.selector = c
	}
}

// WithSelectPolicy sets how out of range selectors are resolved.
func WithSelectPolicy(p SelectPolicy) SwitchOption {
	return func(s *Switch) {
		s.policy = p
	}
}

// NewSwitch returns a switch between inputs. Without selector the first
// input is passed until Select is called.
func NewSwitch(inputs []Coupler, options ...SwitchOption) (*Switch, error) {
	m, err := newMultiIn("switch", inputs)
	if err != nil {
		return nil, err
	}
	s := &Switch{multiIn: m}
	for _, option := range options {
		option(s)
	}
	if s.selector != nil {
		if missing(s.selector) {
			return nil, Configurationf("switch", ErrMissingOutput, "selector")
		}
		if s.selector.Channels() != 1 {
			return nil, Configurationf("switch", ErrChannelMismatch, "selector: expected 1 got %d", s.selector.Channels())
		}
	}
	return s, nil
}

// Select fixes the input index used when there is no selector.
func (s *Switch) Select(i int) {
	s.selected = s.resolve(i)
}

// Selected returns the fixed input index.
func (s *Switch) Selected() int {
	return s.selected
}

// Sample returns the sample of selected input.
func (s *Switch) Sample(channel, index int) float64 {
	i := s.selected
	if s.selector != nil {
		i = s.resolve(int(math.Floor(s.selector.Sample(0, index))))
	}
	return s.inputs[i].Sample(channel, index)
}

func (s *Switch) resolve(i int) int {
	n := len(s.inputs)
	if s.policy == Wrap {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	switch {
	case i < 0:
		return 0
	case i >= n:
		return n - 1
	}
	return i
}
