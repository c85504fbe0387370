// Package buffer provides ring storage for delay lines and convolution
// history. Every buffer has one write cursor and any number of read taps.
//
// TapIn writes a sample and advances the cursor, so TapOut(0) returns the
// most recent sample and TapOut(d) returns the sample written d taps ago.
// Delays outside of [0, Capacity) and taps not written since the buffer
// was created or resized are rejected with graph.ErrRange. Reset fills
// the whole window, so all taps are valid after it.
package buffer

import (
	"pipelined.dev/graph"
)

// MaxBits limits the size of power-of-two buffers.
const MaxBits = 24

// Buffer is a ring of samples.
type Buffer[T any] interface {
	TapIn(T) T
	TapOut(delay int) (T, error)
	TapOutClamped(delay int) T
	Capacity() int
	Reset(fill T)
}

// Circular is a ring of power-of-two size.
type Circular[T any] struct {
	data    []T
	mask    int
	cursor  int
	written int
}

// NewCircular returns a ring of 1<<bits samples.
func NewCircular[T any](bits int) (*Circular[T], error) {
	if bits < 1 || bits > MaxBits {
		return nil, graph.Configurationf("circular buffer", graph.ErrCapacity, "bits: %d", bits)
	}
	size := 1 << bits
	return &Circular[T]{
		data: make([]T, size),
		mask: size - 1,
	}, nil
}

// TapIn writes the sample and returns it.
func (b *Circular[T]) TapIn(x T) T {
	b.cursor = (b.cursor + 1) & b.mask
	b.data[b.cursor] = x
	if b.written < len(b.data) {
		b.written++
	}
	return x
}

// TapOut returns the sample written delay taps ago.
func (b *Circular[T]) TapOut(delay int) (T, error) {
	if delay < 0 || delay >= b.written {
		var zero T
		return zero, graph.ErrRange
	}
	return b.data[(b.cursor-delay)&b.mask], nil
}

// TapOutClamped returns the sample written delay taps ago. Delay is
// clamped to the buffer window.
func (b *Circular[T]) TapOutClamped(delay int) T {
	return b.data[(b.cursor-clamp(delay, b.mask))&b.mask]
}

// Capacity returns number of samples the buffer holds.
func (b *Circular[T]) Capacity() int {
	return len(b.data)
}

// Reset fills the buffer.
func (b *Circular[T]) Reset(fill T) {
	for i := range b.data {
		b.data[i] = fill
	}
	b.cursor = 0
	b.written = len(b.data)
}

// Dynamic is a ring of power-of-two size that can be resized up to a
// ceiling without allocation.
type Dynamic[T any] struct {
	storage []T
	data    []T
	mask    int
	cursor  int
	written int
}

// NewDynamic returns a ring of at least length samples that can grow to
// ceiling samples.
func NewDynamic[T any](length, ceiling int) (*Dynamic[T], error) {
	if ceiling < 1 || ceiling > 1<<MaxBits {
		return nil, graph.Configurationf("dynamic buffer", graph.ErrCapacity, "ceiling: %d", ceiling)
	}
	b := Dynamic[T]{
		storage: make([]T, nextPowerOfTwo(ceiling)),
	}
	if err := b.SetLength(length); err != nil {
		return nil, err
	}
	return &b, nil
}

// SetLength resizes the ring to hold at least n samples and clears it.
func (b *Dynamic[T]) SetLength(n int) error {
	size := nextPowerOfTwo(n)
	if n < 1 || size > len(b.storage) {
		return graph.Configurationf("dynamic buffer", graph.ErrCapacity, "length %d, ceiling %d", n, len(b.storage))
	}
	b.data = b.storage[:size]
	b.mask = size - 1
	var zero T
	b.Reset(zero)
	b.written = 0
	return nil
}

// Ceiling returns the maximum capacity.
func (b *Dynamic[T]) Ceiling() int {
	return len(b.storage)
}

// TapIn writes the sample and returns it.
func (b *Dynamic[T]) TapIn(x T) T {
	b.cursor = (b.cursor + 1) & b.mask
	b.data[b.cursor] = x
	if b.written < len(b.data) {
		b.written++
	}
	return x
}

// TapOut returns the sample written delay taps ago.
func (b *Dynamic[T]) TapOut(delay int) (T, error) {
	if delay < 0 || delay >= b.written {
		var zero T
		return zero, graph.ErrRange
	}
	return b.data[(b.cursor-delay)&b.mask], nil
}

// TapOutClamped returns the sample written delay taps ago. Delay is
// clamped to the buffer window.
func (b *Dynamic[T]) TapOutClamped(delay int) T {
	return b.data[(b.cursor-clamp(delay, b.mask))&b.mask]
}

// Capacity returns number of samples the buffer holds.
func (b *Dynamic[T]) Capacity() int {
	return len(b.data)
}

// Reset fills the buffer.
func (b *Dynamic[T]) Reset(fill T) {
	for i := range b.data {
		b.data[i] = fill
	}
	b.cursor = 0
	b.written = len(b.data)
}

// Modulus is a ring of any size.
type Modulus[T any] struct {
	data    []T
	cursor  int
	written int
}

// NewModulus returns a ring of size samples.
func NewModulus[T any](size int) (*Modulus[T], error) {
	if size < 1 || size > 1<<MaxBits {
		return nil, graph.Configurationf("modulus buffer", graph.ErrCapacity, "size: %d", size)
	}
	return &Modulus[T]{
		data: make([]T, size),
	}, nil
}

// TapIn writes the sample and returns it.
func (b *Modulus[T]) TapIn(x T) T {
	b.cursor++
	if b.cursor == len(b.data) {
		b.cursor = 0
	}
	b.data[b.cursor] = x
	if b.written < len(b.data) {
		b.written++
	}
	return x
}

// TapOut returns the sample written delay taps ago.
func (b *Modulus[T]) TapOut(delay int) (T, error) {
	if delay < 0 || delay >= b.written {
		var zero T
		return zero, graph.ErrRange
	}
	return b.data[b.index(delay)], nil
}

// TapOutClamped returns the sample written delay taps ago. Delay is
// clamped to the buffer window.
func (b *Modulus[T]) TapOutClamped(delay int) T {
	return b.data[b.index(clamp(delay, len(b.data)-1))]
}

// OneTap writes the sample and returns the one written Capacity taps
// before it, a fixed delay of the buffer size.
func (b *Modulus[T]) OneTap(x T) T {
	b.cursor++
	if b.cursor == len(b.data) {
		b.cursor = 0
	}
	out := b.data[b.cursor]
	b.data[b.cursor] = x
	if b.written < len(b.data) {
		b.written++
	}
	return out
}

// OneTapRun delays a block by the buffer size. Input and output may be
// the same slice.
func (b *Modulus[T]) OneTapRun(in, out []T) {
	for i, x := range in {
		out[i] = b.OneTap(x)
	}
}

// Capacity returns number of samples the buffer holds.
func (b *Modulus[T]) Capacity() int {
	return len(b.data)
}

// Reset fills the buffer.
func (b *Modulus[T]) Reset(fill T) {
	for i := range b.data {
		b.data[i] = fill
	}
	b.cursor = 0
	b.written = len(b.data)
}

func (b *Modulus[T]) index(delay int) int {
	i := b.cursor - delay
	if i < 0 {
		i += len(b.data)
	}
	return i
}

func clamp(delay, max int) int {
	switch {
	case delay < 0:
		return 0
	case delay > max:
		return max
	}
	return delay
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
