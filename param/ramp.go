// Package param provides ramped control values and the registry that
// owns them.
//
// A ramp moves from its current value to a target over a number of
// samples, reaching the target exactly and holding it afterwards.
// Components pull ramp values for the current block, nothing is pushed
// to them.
package param

import "math"

// Curve shapes the transition of a ramp.
type Curve int

const (
	// Linear moves by equal steps.
	Linear Curve = iota
	// Exponential moves by equal ratios. It is used only when both ends
	// of the ramp are positive, otherwise the ramp is linear.
	Exponential
)

// Ramp is a transition from start to target over length samples. Zero
// value holds zero.
type Ramp struct {
	start  float64
	target float64
	length int
	pos    int
	curve  Curve
}

// NewRamp returns a ramp that holds v.
func NewRamp(v float64, curve Curve) Ramp {
	return Ramp{start: v, target: v, curve: curve}
}

// Set starts a transition from the current value to target over length
// samples. Non-positive length jumps immediately.
func (r *Ramp) Set(target float64, length int) {
	if length <= 0 {
		r.Jump(target)
		return
	}
	r.start = r.Value()
	r.target = target
	r.length = length
	r.pos = 0
}

// Jump sets the value without transition.
func (r *Ramp) Jump(v float64) {
	r.start = v
	r.target = v
	r.length = 0
	r.pos = 0
}

// SetCurve changes the curve of next transitions.
func (r *Ramp) SetCurve(c Curve) {
	r.curve = c
}

// Value returns the current value.
func (r *Ramp) Value() float64 {
	return r.At(0)
}

// Target returns the value the ramp is moving to.
func (r *Ramp) Target() float64 {
	return r.target
}

// Remaining returns number of samples until the target is reached.
func (r *Ramp) Remaining() int {
	if r.pos >= r.length {
		return 0
	}
	return r.length - r.pos
}

// Active returns true while the target is not reached.
func (r *Ramp) Active() bool {
	return r.pos < r.length
}

// At returns the value k samples after the current one.
func (r *Ramp) At(k int) float64 {
	p := r.pos + k
	if p >= r.length {
		return r.target
	}
	frac := float64(p) / float64(r.length)
	if r.curve == Exponential && r.start > 0 && r.target > 0 {
		return r.start * math.Pow(r.target/r.start, frac)
	}
	return r.start + (r.target-r.start)*frac
}

// Advance moves the ramp by n samples.
func (r *Ramp) Advance(n int) {
	if r.pos < r.length {
		r.pos += n
	}
}

// Next returns the current value and advances by one sample.
func (r *Ramp) Next() float64 {
	v := r.At(0)
	r.Advance(1)
	return v
}
