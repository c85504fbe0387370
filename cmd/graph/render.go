package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/graph"
	"pipelined.dev/graph/asset"
	"pipelined.dev/graph/buffer"
	"pipelined.dev/graph/convolve"
	"pipelined.dev/graph/delay"
	"pipelined.dev/graph/internal/config"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/midi"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/poly"
	"pipelined.dev/graph/signal"
	"pipelined.dev/graph/wav"
)

const progressInterval = time.Second

type renderCommand struct {
	config string
	out    string
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render configured notes with the demo synth into wav file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "render configuration yaml file (required)")
	fs.StringVar(&cmd.out, "out", "", "output wav file (required)")
}

func (cmd *renderCommand) Validate() error {
	var errs []error
	if cmd.config == "" {
		errs = append(errs, errors.New("missing -config required flag"))
	}
	if cmd.out == "" {
		errs = append(errs, errors.New("missing -out required flag"))
	}
	return errors.Join(errs...)
}

func (cmd *renderCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	cfg, err := config.Load(cmd.config)
	if err != nil {
		return err
	}
	logger := log.GetLogger()
	s, err := newSynth(cfg, logger)
	if err != nil {
		return err
	}
	sink, err := wav.Create(cmd.out, cfg.SampleRate, 1, signal.BitDepth(cfg.BitDepth))
	if err != nil {
		return err
	}
	return render(context.Background(), logger, s, cfg.Samples(cfg.Duration), sink)
}

// job is a graph with the output to render.
type job struct {
	graph    *graph.Graph
	output   graph.Coupler
	timeline []config.Timed
	block    int
}

// newSynth builds poly voices with optional reverb and echo. Volume is
// controlled by CC 7 and echo send by CC 91.
func newSynth(cfg *config.Config, logger *logrus.Logger) (*job, error) {
	options, err := cfg.Synth.Options()
	if err != nil {
		return nil, err
	}
	name := "render"
	voices := make([]*voice, cfg.Synth.Voices)
	for i := range voices {
		voices[i], err = newVoice(
			cfg.BlockSize,
			float64(cfg.SampleRate),
			cfg.Synth.Level,
			int(cfg.Samples(cfg.Synth.Attack)),
			int(cfg.Samples(cfg.Synth.Release)),
		)
		if err != nil {
			return nil, err
		}
	}
	p, err := poly.New(voiceOutput, voices, append(options, poly.WithMetrics(name))...)
	if err != nil {
		return nil, err
	}
	ramp := int(cfg.Samples(5 * time.Millisecond))
	volume, err := poly.NewScheduler(1, cfg.BlockSize,
		poly.WithInitial(1),
		poly.WithRampLength(ramp),
	)
	if err != nil {
		return nil, err
	}
	if err := volume.MapControl(midi.CCVolume, 0); err != nil {
		return nil, err
	}

	registry := param.NewRegistry(1,
		param.WithSampleRate(float64(cfg.SampleRate)),
		param.WithBlockSize(cfg.BlockSize),
	)
	ctl := newControls(registry, ramp)

	parts := []graph.Component{volume, p}
	var mix graph.Coupler = p.Output(poly.Output)
	if r := cfg.Reverb; r != nil {
		ir, err := asset.Load(r.Impulse)
		if err != nil {
			return nil, err
		}
		if ir.SampleRate != cfg.SampleRate {
			logger.Warnf("impulse %s: sample rate %d differs from %d", r.Impulse, ir.SampleRate, cfg.SampleRate)
		}
		conv, err := convolve.NewConvolver(p.Output(poly.Output), 1, cfg.BlockSize, r.Partition, r.MaxPartitions)
		if err != nil {
			return nil, err
		}
		k, err := conv.NewKernel(ir.Channel(0))
		if err != nil {
			return nil, err
		}
		if err := conv.Load(k); err != nil {
			return nil, err
		}
		parts = append(parts, conv)
		if mix, err = dryWet(p.Output(poly.Output), conv.Output(convolve.Output), r.Mix); err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"impulse": r.Impulse,
			"length":  ir.Len(),
			"latency": conv.Latency(),
		}).Info("reverb loaded")
	}
	if e := cfg.Echo; e != nil {
		d, err := echo(p.Output(poly.Output), registry, ctl, cfg.BlockSize, e)
		if err != nil {
			return nil, err
		}
		parts = append(parts, d)
		if mix, err = graph.NewSum(mix, d.Output(delay.Output)); err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"delay":    d.Delay(),
			"feedback": e.Feedback,
		}).Info("echo enabled")
	}
	output, err := graph.NewProduct(mix, volume.Output(poly.Output))
	if err != nil {
		return nil, err
	}
	g, err := graph.New(graph.NewContainer(parts...), cfg.BlockSize,
		graph.WithName(name),
		graph.WithSampleRate(cfg.SampleRate),
		graph.WithEventSinks(volume, p, ctl),
		graph.WithAdvancers(volume, p, registry),
		graph.WithLogger(log.WithFields(logger, map[string]interface{}{"command": "render"})),
	)
	if err != nil {
		return nil, err
	}
	return &job{
		graph:    g,
		output:   output,
		timeline: cfg.Timeline(),
		block:    cfg.BlockSize,
	}, nil
}

func dryWet(dry, wet graph.Coupler, mix float64) (graph.Coupler, error) {
	d, err := graph.NewProduct(dry, graph.Constant{1 - mix})
	if err != nil {
		return nil, err
	}
	w, err := graph.NewProduct(wet, graph.Constant{mix})
	if err != nil {
		return nil, err
	}
	return graph.NewSum(d, w)
}

// echo returns a feedback delay of in. The send level is a registry
// parameter bound to CC 91.
func echo(in graph.Coupler, r *param.Registry, ctl *controls, maxBlock int, e *config.Echo) (*delay.Delay, error) {
	id, err := r.Register("echo.mix", e.Mix, param.WithRange(0, 1))
	if err != nil {
		return nil, err
	}
	level, err := r.Listen(id)
	if err != nil {
		return nil, err
	}
	ctl.bind(midi.CCEffects, id)
	send, err := graph.NewProduct(in, level)
	if err != nil {
		return nil, err
	}
	samples := r.MsToSamples(float64(e.Time) / float64(time.Millisecond))
	return delay.New(send, 1, maxBlock, int(samples)+2, samples,
		delay.WithFeedback(e.Feedback),
		delay.WithKernel(buffer.Hermite),
	)
}

// writer receives rendered blocks.
type writer interface {
	Write(graph.Coupler, int) error
	Close() error
}

// render processes total samples of the job into w while a second
// goroutine reports progress.
func render(ctx context.Context, logger *logrus.Logger, s *job, total int64, w writer) error {
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		err := s.run(ctx, total, w)
		return errors.Join(err, w.Close())
	})
	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				logger.WithFields(fields(metric.Get(s.graph.Name()))).Info("render done")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				logger.WithFields(fields(metric.Get(s.graph.Name()))).Info("rendering")
			}
		}
	})
	return g.Wait()
}

func (s *job) run(ctx context.Context, total int64, w writer) error {
	next := 0
	for pos := int64(0); pos < total; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int(min(int64(s.block), total-pos))
		for ; next < len(s.timeline) && s.timeline[next].Position < pos+int64(n); next++ {
			e := s.timeline[next].Event
			e.Offset = int(s.timeline[next].Position - pos)
			if !s.graph.Send(e) {
				return fmt.Errorf("event queue is full at sample %d", pos)
			}
		}
		if err := s.graph.Process(n); err != nil {
			return err
		}
		if err := w.Write(s.output, n); err != nil {
			return err
		}
		pos += int64(n)
	}
	return nil
}

func fields(m map[string]string) logrus.Fields {
	f := make(logrus.Fields, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}
