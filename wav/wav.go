// Package wav reads and writes wav files for offline hosts.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/graph"
	"pipelined.dev/graph/signal"
)

const pcmFormat = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when the stream is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

// Sink writes graph outputs into wav stream.
type Sink struct {
	closer   io.Closer
	encoder  *wav.Encoder
	bitDepth signal.BitDepth
	channels int
	buffer   audio.IntBuffer
	frames   int
}

// Decode reads a whole wav stream. It returns samples, sample rate and
// bit depth.
func Decode(r io.ReadSeeker) (signal.Float64, int, signal.BitDepth, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, 0, ErrInvalidFile
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode wav: %w", err)
	}
	bitDepth := signal.BitDepth(ib.SourceBitDepth)
	if !Supported(bitDepth) {
		return nil, 0, 0, ErrUnsupportedBitDepth
	}
	data := signal.InterInt{
		Data:        ib.Data,
		NumChannels: ib.Format.NumChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	return data, ib.Format.SampleRate, bitDepth, nil
}

// Open decodes a wav file.
func Open(path string) (signal.Float64, int, signal.BitDepth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	return Decode(f)
}

// NewSink returns a sink that encodes into w.
func NewSink(w io.WriteSeeker, sampleRate, channels int, bitDepth signal.BitDepth) (*Sink, error) {
	if !Supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	if channels < 1 {
		return nil, graph.Configurationf("wav sink", graph.ErrChannelMismatch, "channels: %d", channels)
	}
	return &Sink{
		encoder:  wav.NewEncoder(w, sampleRate, int(bitDepth), channels, pcmFormat),
		bitDepth: bitDepth,
		channels: channels,
		buffer: audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Create returns a sink that writes into a new file. Close closes the
// file.
func Create(path string, sampleRate, channels int, bitDepth signal.BitDepth) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSink(f, sampleRate, channels, bitDepth)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	s.closer = f
	return s, nil
}

// Write encodes first n samples of the coupler.
func (s *Sink) Write(p graph.Coupler, n int) error {
	if p.Channels() != s.channels {
		return graph.Configurationf("wav sink", graph.ErrChannelMismatch, "expected %d got %d", s.channels, p.Channels())
	}
	if size := n * s.channels; cap(s.buffer.Data) < size {
		s.buffer.Data = make([]int, size)
	} else {
		s.buffer.Data = s.buffer.Data[:size]
	}
	for c := 0; c < s.channels; c++ {
		for i := 0; i < n; i++ {
			s.buffer.Data[i*s.channels+c] = s.bitDepth.Int(p.Sample(c, i))
		}
	}
	if err := s.encoder.Write(&s.buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	s.frames += n
	return nil
}

// Frames returns number of written samples per channel.
func (s *Sink) Frames() int {
	return s.frames
}

// Close finalizes the stream.
func (s *Sink) Close() error {
	err := s.encoder.Close()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// Supported returns true if samples of the bit depth can be decoded and
// encoded.
func Supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}
