package param

// Transport is the playback position of the host.
type Transport struct {
	Playing bool
	// Tempo in beats per minute.
	Tempo float64
	// PPQ is the position in quarter notes.
	PPQ float64
	// Seconds is the position in seconds.
	Seconds float64
}

func (t *Transport) advance(n int, sampleRate float64) {
	if !t.Playing || sampleRate <= 0 {
		return
	}
	d := float64(n) / sampleRate
	t.Seconds += d
	t.PPQ += d * t.Tempo / 60
}

// SetTransport replaces the transport state, usually at block start.
func (r *Registry) SetTransport(t Transport) {
	r.transport = t
}

// Transport returns the transport state at the start of the block.
func (r *Registry) Transport() Transport {
	return r.transport
}
