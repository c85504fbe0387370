package buffer

import (
	"math"

	"pipelined.dev/graph"
)

// Float is a sample type that supports fractional taps.
type Float interface {
	~float32 | ~float64
}

// Kernel interpolates between x0 and x1 at frac in [0, 1). xm1 is the
// tap before x0 and x2 is the tap after x1.
type Kernel func(xm1, x0, x1, x2, frac float64) float64

// Linear interpolates between the two nearest taps.
func Linear(_, x0, x1, _, frac float64) float64 {
	return x0 + (x1-x0)*frac
}

// Hermite is a 4-point 3rd order Hermite (Catmull-Rom) kernel.
func Hermite(xm1, x0, x1, x2, frac float64) float64 {
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*frac+c2)*frac+c1)*frac + x0
}

// Cubic is a 4-point 3rd order Lagrange kernel.
func Cubic(xm1, x0, x1, x2, frac float64) float64 {
	fm1 := frac + 1
	f1 := frac - 1
	f2 := frac - 2
	return -xm1*frac*f1*f2/6 +
		x0*fm1*f1*f2/2 -
		x1*fm1*frac*f2/2 +
		x2*fm1*frac*f1/6
}

// Fractional returns the sample at non-integer delay. Taps outside of
// the window are clamped to its edges. Delay must be in
// [0, Capacity-1].
func Fractional[T Float](b Buffer[T], delay float64, k Kernel) (T, error) {
	if delay < 0 || delay > float64(b.Capacity()-1) || math.IsNaN(delay) {
		return 0, graph.ErrRange
	}
	i := int(delay)
	frac := delay - float64(i)
	x0 := float64(b.TapOutClamped(i))
	if frac == 0 {
		return T(x0), nil
	}
	return T(k(
		float64(b.TapOutClamped(i-1)),
		x0,
		float64(b.TapOutClamped(i+1)),
		float64(b.TapOutClamped(i+2)),
		frac,
	)), nil
}
