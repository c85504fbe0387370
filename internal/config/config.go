// Package config loads render configuration of the graph command.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/poly"
)

// Steal policy names.
const (
	StealOldest        = "oldest"
	StealReleasedFirst = "released_first"
)

type (
	// Config describes a render of the demo synth.
	Config struct {
		SampleRate int           `yaml:"sample_rate"`
		BlockSize  int           `yaml:"block_size"`
		BitDepth   int           `yaml:"bit_depth"`
		Duration   time.Duration `yaml:"duration"`
		Synth      Synth         `yaml:"synth"`
		Reverb     *Reverb       `yaml:"reverb,omitempty"`
		Echo       *Echo         `yaml:"echo,omitempty"`
		Notes      []Note        `yaml:"notes"`
		Controls   []Control     `yaml:"controls"`
		Bends      []Bend        `yaml:"bends"`
	}

	// Synth configures voices.
	Synth struct {
		Voices  int           `yaml:"voices"`
		Steal   string        `yaml:"steal"`
		Level   float64       `yaml:"level"`
		Attack  time.Duration `yaml:"attack"`
		Release time.Duration `yaml:"release"`
		// Legato plays one voice that moves between held keys.
		Legato bool `yaml:"legato"`
		// BendRange is the pitch wheel range in semitones.
		BendRange float64 `yaml:"bend_range"`
	}

	// Reverb configures convolution with an impulse file.
	Reverb struct {
		Impulse       string  `yaml:"impulse"`
		Partition     int     `yaml:"partition"`
		MaxPartitions int     `yaml:"max_partitions"`
		Mix           float64 `yaml:"mix"`
	}

	// Echo configures a feedback delay. Send level is controlled with
	// CC 91.
	Echo struct {
		Time     time.Duration `yaml:"time"`
		Feedback float64       `yaml:"feedback"`
		Mix      float64       `yaml:"mix"`
	}

	// Note is a note played at time for length.
	Note struct {
		At       time.Duration `yaml:"at"`
		Length   time.Duration `yaml:"length"`
		Key      uint8         `yaml:"key"`
		Velocity uint8         `yaml:"velocity"`
	}

	// Control is a controller change at time.
	Control struct {
		At    time.Duration `yaml:"at"`
		CC    uint8         `yaml:"cc"`
		Value uint8         `yaml:"value"`
	}

	// Bend moves the pitch wheel to value in [-1, 1] at time.
	Bend struct {
		At    time.Duration `yaml:"at"`
		Value float64       `yaml:"value"`
	}

	// Timed is an event at absolute sample position.
	Timed struct {
		Position int64
		Event    midi.Event
	}
)

// Defaults returns a configuration with default values.
func Defaults() Config {
	return Config{
		SampleRate: 44100,
		BlockSize:  256,
		BitDepth:   16,
		Duration:   2 * time.Second,
		Synth: Synth{
			Voices:  8,
			Steal:   StealOldest,
			Level:   0.2,
			Attack:    5 * time.Millisecond,
			Release:   200 * time.Millisecond,
			BendRange: 2,
		},
	}
}

// Load reads and validates a YAML configuration file. Missing values
// are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Reverb != nil {
		if cfg.Reverb.Partition == 0 {
			cfg.Reverb.Partition = cfg.BlockSize
		}
		if cfg.Reverb.MaxPartitions == 0 {
			cfg.Reverb.MaxPartitions = 1024
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate returns all configuration problems joined.
func (c *Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive: %d", c.SampleRate))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block_size must be positive: %d", c.BlockSize))
	}
	switch c.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("bit_depth must be 16, 24 or 32: %d", c.BitDepth))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive: %v", c.Duration))
	}
	if c.Synth.Voices <= 0 {
		errs = append(errs, fmt.Errorf("synth.voices must be positive: %d", c.Synth.Voices))
	}
	if _, err := c.Synth.StealPolicy(); err != nil {
		errs = append(errs, err)
	}
	if c.Synth.BendRange < 0 || c.Synth.BendRange > 48 {
		errs = append(errs, fmt.Errorf("synth.bend_range must be in [0, 48]: %v", c.Synth.BendRange))
	}
	if r := c.Reverb; r != nil {
		if r.Impulse == "" {
			errs = append(errs, errors.New("reverb.impulse is required"))
		}
		if r.Partition <= 0 || r.Partition&(r.Partition-1) != 0 {
			errs = append(errs, fmt.Errorf("reverb.partition must be a power of two: %d", r.Partition))
		}
		if r.Mix < 0 || r.Mix > 1 {
			errs = append(errs, fmt.Errorf("reverb.mix must be in [0, 1]: %v", r.Mix))
		}
	}
	if e := c.Echo; e != nil {
		if e.Time <= 0 {
			errs = append(errs, fmt.Errorf("echo.time must be positive: %v", e.Time))
		}
		if e.Feedback < 0 || e.Feedback >= 1 {
			errs = append(errs, fmt.Errorf("echo.feedback must be in [0, 1): %v", e.Feedback))
		}
		if e.Mix < 0 || e.Mix > 1 {
			errs = append(errs, fmt.Errorf("echo.mix must be in [0, 1]: %v", e.Mix))
		}
	}
	for i, n := range c.Notes {
		if n.Key > 127 || n.Velocity > 127 {
			errs = append(errs, fmt.Errorf("notes[%d]: key and velocity must be in [0, 127]", i))
		}
		if n.At < 0 || n.Length <= 0 {
			errs = append(errs, fmt.Errorf("notes[%d]: invalid timing at %v length %v", i, n.At, n.Length))
		}
	}
	for i, cc := range c.Controls {
		if cc.CC > 127 || cc.Value > 127 {
			errs = append(errs, fmt.Errorf("controls[%d]: cc and value must be in [0, 127]", i))
		}
		if cc.At < 0 {
			errs = append(errs, fmt.Errorf("controls[%d]: negative time %v", i, cc.At))
		}
	}
	for i, b := range c.Bends {
		if b.Value < -1 || b.Value > 1 {
			errs = append(errs, fmt.Errorf("bends[%d]: value must be in [-1, 1]: %v", i, b.Value))
		}
		if b.At < 0 {
			errs = append(errs, fmt.Errorf("bends[%d]: negative time %v", i, b.At))
		}
	}
	return errors.Join(errs...)
}

// Options returns poly options of the synth.
func (s Synth) Options() ([]poly.Option, error) {
	policy, err := s.StealPolicy()
	if err != nil {
		return nil, err
	}
	options := []poly.Option{
		poly.WithStealPolicy(policy),
		poly.WithBendRange(s.BendRange),
	}
	if s.Legato {
		options = append(options, poly.WithLegato())
	}
	return options, nil
}

// StealPolicy returns the poly steal policy.
func (s Synth) StealPolicy() (poly.StealPolicy, error) {
	switch s.Steal {
	case StealOldest, "":
		return poly.StealOldest, nil
	case StealReleasedFirst:
		return poly.StealReleasedFirst, nil
	}
	return 0, fmt.Errorf("synth.steal must be %q or %q: %q", StealOldest, StealReleasedFirst, s.Steal)
}

// Samples converts duration to number of samples.
func (c *Config) Samples(d time.Duration) int64 {
	return int64(d.Seconds() * float64(c.SampleRate))
}

// Timeline returns note, control and pitch wheel events ordered by
// position.
func (c *Config) Timeline() []Timed {
	events := make([]Timed, 0, 2*len(c.Notes)+len(c.Controls)+len(c.Bends))
	for _, n := range c.Notes {
		events = append(events,
			Timed{
				Position: c.Samples(n.At),
				Event:    midi.Event{Kind: midi.NoteOn, Key: n.Key, Value: float64(n.Velocity) / 127},
			},
			Timed{
				Position: c.Samples(n.At + n.Length),
				Event:    midi.Event{Kind: midi.NoteOff, Key: n.Key},
			},
		)
	}
	for _, cc := range c.Controls {
		events = append(events, Timed{
			Position: c.Samples(cc.At),
			Event:    midi.Event{Kind: midi.ControlChange, Key: cc.CC, Value: float64(cc.Value) / 127},
		})
	}
	for _, b := range c.Bends {
		events = append(events, Timed{
			Position: c.Samples(b.At),
			Event:    midi.Event{Kind: midi.PitchBend, Value: b.Value},
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Position < events[j].Position
	})
	return events
}
