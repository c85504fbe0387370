package main

import (
	"context"
	"errors"
	"flag"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph"
	"pipelined.dev/graph/asset"
	"pipelined.dev/graph/convolve"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/wav"
)

type convolveCommand struct {
	in        string
	ir        string
	out       string
	partition int
}

func (cmd *convolveCommand) Name() string {
	return "convolve"
}

func (cmd *convolveCommand) Help() string {
	return "Convolve audio file with impulse response"
}

func (cmd *convolveCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.in, "in", "", "input audio file (required)")
	fs.StringVar(&cmd.ir, "ir", "", "impulse response file (required)")
	fs.StringVar(&cmd.out, "out", "", "output wav file (required)")
	fs.IntVar(&cmd.partition, "partition", 512, "partition size, power of two")
}

func (cmd *convolveCommand) Validate() error {
	var errs []error
	if cmd.in == "" {
		errs = append(errs, errors.New("missing -in required flag"))
	}
	if cmd.ir == "" {
		errs = append(errs, errors.New("missing -ir required flag"))
	}
	if cmd.out == "" {
		errs = append(errs, errors.New("missing -out required flag"))
	}
	if cmd.partition <= 0 || cmd.partition&(cmd.partition-1) != 0 {
		errs = append(errs, errors.New("-partition must be a power of two"))
	}
	return errors.Join(errs...)
}

func (cmd *convolveCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	logger := log.GetLogger()
	in, err := asset.Load(cmd.in)
	if err != nil {
		return err
	}
	ir, err := asset.Load(cmd.ir)
	if err != nil {
		return err
	}
	s, err := newConvolution(in, ir, cmd.partition, logger)
	if err != nil {
		return err
	}
	sink, err := wav.Create(cmd.out, in.SampleRate, in.Channels(), in.BitDepth)
	if err != nil {
		return err
	}
	total := int64(in.Len() + ir.Len() + cmd.partition - 1)
	return render(context.Background(), logger, s, total, sink)
}

// newConvolution plays the input through a convolver with the first
// channel of the impulse.
func newConvolution(in, ir *asset.Asset, partition int, logger *logrus.Logger) (*job, error) {
	if ir.SampleRate != in.SampleRate {
		logger.Warnf("impulse sample rate %d differs from %d", ir.SampleRate, in.SampleRate)
	}
	player, err := asset.NewPlayer(in, partition, false)
	if err != nil {
		return nil, err
	}
	partitions := (ir.Len() + partition - 1) / partition
	conv, err := convolve.NewConvolver(player.Output(asset.Output), in.Channels(), partition, partition, partitions)
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
	g, err := graph.New(graph.NewContainer(player, conv), partition,
		graph.WithName("convolve"),
		graph.WithSampleRate(in.SampleRate),
		graph.WithLogger(log.WithFields(logger, map[string]interface{}{"command": "convolve"})),
	)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"input":      in.Len(),
		"impulse":    ir.Len(),
		"partitions": partitions,
		"latency":    conv.Latency(),
	}).Info("convolution ready")
	return &job{
		graph:  g,
		output: conv.Output(convolve.Output),
		block:  partition,
	}, nil
}
