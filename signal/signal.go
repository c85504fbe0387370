// Package signal provides host buffer formats and conversions between
// them. It allows to:
//   - convert interleaved data to non-interleaved and back
//   - convert bit depth for int signals
//   - compute signal duration
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

const maxInt24 = 1<<23 - 1

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return maxInt24
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth24:
		return maxInt24 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// Float converts an int sample of this bit depth to float.
func (bitDepth BitDepth) Float(v int) float64 {
	return float64(v) / float64(bitDepth.devider())
}

// Int converts a float sample to int of this bit depth. Values outside
// of [-1, 1] are clipped.
func (bitDepth BitDepth) Int(v float64) int {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int(v * float64(bitDepth.multiplier()))
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// AsFloat64 converts interleaved int signal to float64.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float64, ints.NumChannels)
	bufSize := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))

	for i := range floats {
		floats[i] = make([]float64, bufSize)
		pos := 0
		for j := i; j < len(ints.Data); j = j + ints.NumChannels {
			floats[i][pos] = ints.BitDepth.Float(ints.Data[j])
			pos++
		}
	}
	return floats
}

// NumChannels returns number of channels in this sample slice
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single block in this sample slice
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Deinterleave copies interleaved samples into existing non-interleaved
// buffer. It returns number of samples per channel copied.
func Deinterleave(dst Float64, src []float32) int {
	numChannels := dst.NumChannels()
	if numChannels == 0 {
		return 0
	}
	n := len(src) / numChannels
	if size := dst.Size(); n > size {
		n = size
	}
	for c := range dst {
		for i := 0; i < n; i++ {
			dst[c][i] = float64(src[i*numChannels+c])
		}
	}
	return n
}

// Interleave copies first n samples of non-interleaved buffer into
// interleaved slice. It returns number of samples per channel copied.
func Interleave(dst []float32, src Float64, n int) int {
	numChannels := src.NumChannels()
	if numChannels == 0 {
		return 0
	}
	if max := len(dst) / numChannels; n > max {
		n = max
	}
	for c := range src {
		for i := 0; i < n; i++ {
			dst[i*numChannels+c] = float32(src[c][i])
		}
	}
	return n
}
