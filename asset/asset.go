// Package asset loads audio files into memory and plays them into a
// graph.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"

	"pipelined.dev/graph"
	"pipelined.dev/graph/signal"
	"pipelined.dev/graph/wav"
)

// Output is the name of the player output.
const Output = "out"

// ErrFormat is returned for files of unknown format.
var ErrFormat = errors.New("unsupported audio format")

type (
	// Asset is a decoded audio file. It is read-only once loaded and can
	// be shared between players.
	Asset struct {
		Data       signal.Float64
		SampleRate int
		BitDepth   signal.BitDepth
	}

	// Player outputs an asset from the start. It outputs silence after
	// the end unless it loops.
	Player struct {
		graph.Base
		asset *Asset
		out   *graph.Port
		pos   int
		loop  bool
	}
)

// Load decodes a wav or aiff file.
func Load(path string) (*Asset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		data, sampleRate, bitDepth, err := wav.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return &Asset{Data: data, SampleRate: sampleRate, BitDepth: bitDepth}, nil
	case ".aif", ".aiff":
		return loadAiff(path)
	}
	return nil, fmt.Errorf("load %s: %w", path, ErrFormat)
}

func loadAiff(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("load %s: %w", path, ErrFormat)
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	bitDepth := signal.BitDepth(ib.SourceBitDepth)
	if !wav.Supported(bitDepth) {
		return nil, fmt.Errorf("load %s: %w", path, wav.ErrUnsupportedBitDepth)
	}
	return &Asset{
		Data: signal.InterInt{
			Data:        ib.Data,
			NumChannels: ib.Format.NumChannels,
			BitDepth:    bitDepth,
		}.AsFloat64(),
		SampleRate: ib.Format.SampleRate,
		BitDepth:   bitDepth,
	}, nil
}

// Channels returns number of channels.
func (a *Asset) Channels() int {
	return a.Data.NumChannels()
}

// Len returns number of samples per channel.
func (a *Asset) Len() int {
	return a.Data.Size()
}

// Channel returns samples of the channel as impulse response for
// convolution.
func (a *Asset) Channel(c int) []float64 {
	return a.Data[c]
}

// NewPlayer returns a player of the asset.
func NewPlayer(a *Asset, maxBlock int, loop bool) (*Player, error) {
	if a == nil || a.Len() == 0 {
		return nil, graph.Configurationf("new player", graph.ErrCapacity, "empty asset")
	}
	out, err := graph.NewPort(a.Channels(), maxBlock)
	if err != nil {
		return nil, err
	}
	p := Player{asset: a, loop: loop}
	p.Init(0)
	p.out = p.AddOutput(Output, out)
	return &p, nil
}

// Done returns true when a non looping player reached the end.
func (p *Player) Done() bool {
	return !p.loop && p.pos >= p.asset.Len()
}

// Process implements graph.Component.
func (p *Player) Process(offset, n int) {
	p.Run(p, offset, n)
}

// Step copies the asset into the output.
func (p *Player) Step(offset, n int) {
	size := p.asset.Len()
	for written := 0; written < n; {
		if p.pos >= size {
			if !p.loop {
				p.out.Clear(offset+written, n-written)
				return
			}
			p.pos = 0
		}
		count := min(n-written, size-p.pos)
		for c, data := range p.asset.Data {
			copy(p.out.Channel(c)[offset+written:offset+written+count], data[p.pos:p.pos+count])
		}
		p.pos += count
		written += count
	}
}

// Idle advances the position.
func (p *Player) Idle(_, n int) {
	p.pos += n
	if p.loop {
		p.pos %= p.asset.Len()
	}
}

// Reset rewinds the player.
func (p *Player) Reset() {
	p.pos = 0
}
