package graph

import "pipelined.dev/graph/signal"

type (
	// Coupler is a read-only view of a signal. Sample must not be
	// called with index beyond the capacity of the underlying ports.
	Coupler interface {
		Channels() int
		Sample(channel, index int) float64
	}

	// Port is an output of a component: a fixed grid of channels by
	// samples allocated once. Only the owning component writes into it.
	Port struct {
		samples  []float64
		view     signal.Float64
		channels int
		capacity int
		length   int
	}

	// Connector binds a coupler as an input with expected number of
	// channels. Zero value is not connected and reads silence.
	Connector struct {
		src      Coupler
		channels int
	}
)

// NewPort allocates a port for provided number of channels and block
// capacity.
func NewPort(channels, capacity int) (*Port, error) {
	if channels < 1 {
		return nil, Configurationf("new port", ErrCapacity, "channels: %d", channels)
	}
	if capacity < 1 {
		return nil, Configurationf("new port", ErrCapacity, "capacity: %d", capacity)
	}
	p := Port{
		samples:  make([]float64, channels*capacity),
		view:     make(signal.Float64, channels),
		channels: channels,
		capacity: capacity,
	}
	for c := range p.view {
		p.view[c] = p.Channel(c)
	}
	return &p, nil
}

// Channels returns number of channels.
func (p *Port) Channels() int {
	return p.channels
}

// Capacity returns the maximum number of samples per channel.
func (p *Port) Capacity() int {
	return p.capacity
}

// Len returns number of samples written during the current block.
func (p *Port) Len() int {
	return p.length
}

// SetLen sets number of valid samples.
func (p *Port) SetLen(n int) {
	p.length = n
}

// Sample returns a sample of the channel.
func (p *Port) Sample(channel, index int) float64 {
	return p.samples[channel*p.capacity+index]
}

// Set writes a sample of the channel.
func (p *Port) Set(channel, index int, v float64) {
	p.samples[channel*p.capacity+index] = v
}

// Channel returns the storage of a single channel.
func (p *Port) Channel(channel int) []float64 {
	return p.samples[channel*p.capacity : (channel+1)*p.capacity]
}

// Signal returns the channels of the port as a non-interleaved buffer
// of capacity samples. It shares the storage of the port.
func (p *Port) Signal() signal.Float64 {
	return p.view
}

// Clear zeroes all channels in the range [offset, offset+n).
func (p *Port) Clear(offset, n int) {
	for c := 0; c < p.channels; c++ {
		s := p.Channel(c)[offset : offset+n]
		for i := range s {
			s[i] = 0
		}
	}
}

// Connect binds src as an input that expects provided number of
// channels.
func Connect(src Coupler, channels int) (Connector, error) {
	if missing(src) {
		return Connector{}, Configurationf("connect", ErrMissingOutput, "nil coupler")
	}
	if src.Channels() != channels {
		return Connector{}, Configurationf("connect", ErrChannelMismatch, "expected %d got %d", channels, src.Channels())
	}
	return Connector{src: src, channels: channels}, nil
}

// Channels returns number of channels expected by the connector.
func (c Connector) Channels() int {
	return c.channels
}

// Connected returns true if connector is bound.
func (c Connector) Connected() bool {
	return c.src != nil
}

// Sample reads a sample of the bound coupler.
func (c Connector) Sample(channel, index int) float64 {
	if c.src == nil {
		return 0
	}
	return c.src.Sample(channel, index)
}

// Constant is a coupler that returns the same value for every sample
// of a channel.
type Constant []float64

// Channels returns number of channels.
func (c Constant) Channels() int {
	return len(c)
}

// Sample returns the value of the channel.
func (c Constant) Sample(channel, _ int) float64 {
	return c[channel]
}

// Picker exposes one channel of a coupler as a single-channel coupler.
type Picker struct {
	src     Coupler
	channel int
}

// Pick returns a picker for the channel of src.
func Pick(src Coupler, channel int) (Picker, error) {
	if missing(src) {
		return Picker{}, Configurationf("pick", ErrMissingOutput, "nil coupler")
	}
	if channel < 0 || channel >= src.Channels() {
		return Picker{}, Configurationf("pick", ErrChannelMismatch, "channel %d of %d", channel, src.Channels())
	}
	return Picker{src: src, channel: channel}, nil
}

// Channels always returns 1.
func (p Picker) Channels() int {
	return 1
}

// Sample returns the sample of the picked channel.
func (p Picker) Sample(_, index int) float64 {
	return p.src.Sample(p.channel, index)
}

// missing returns true for nil couplers, including nil ports returned by
// Output when the name is unknown.
func missing(c Coupler) bool {
	if c == nil {
		return true
	}
	if p, ok := c.(*Port); ok && p == nil {
		return true
	}
	return false
}
