package trainer

import (
	"context"
	"log"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/neurlang/ffsnn/config"
	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/datasets/mnist"
	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/net/feedforward"
	"github.com/neurlang/ffsnn/overlay"
)

// Report summarises a run.
type Report struct {
	Run     uuid.UUID
	Device  string
	Resumed bool
	Losses  [][]float64
	Train   Evaluation
	Test    Evaluation
}

// Run trains a network described by cfg on one batch of positive and
// negative samples, then evaluates it on the training batch and the test
// split. The loss history is written even when training fails part way.
func Run(ctx context.Context, cfg *config.Config, obs feedforward.Observer) (Report, error) {
	var report Report
	if err := cfg.Validate(); err != nil {
		return report, err
	}

	dev := device.CPU().WithThreads(cfg.Threads)
	report.Device = dev.String()
	if err := dev.CUDAError(); err != nil {
		log.Printf("cuda=unavailable reason=%q", err)
	}
	log.Printf("device %s", report.Device)

	train, test, err := loadData(cfg)
	if err != nil {
		return report, err
	}
	log.Printf("train=%d test=%d", train.Len(), test.Len())

	rng := rand.New(rand.NewSource(cfg.Seed))
	train.Shuffle(rng)
	batch, err := train.Batch(0, cfg.BatchSize)
	if err != nil {
		return report, err
	}
	pos, neg, err := overlay.Pairs(batch, cfg.Classes, rng)
	if err != nil {
		return report, err
	}

	net, err := feedforward.FromDims(cfg.Dims, cfg.Options(), dev)
	if err != nil {
		return report, err
	}
	if report.Resumed, err = Resume(net, cfg.Resume, cfg.ModelPath); err != nil {
		return report, err
	}
	net.SetObserver(obs)

	report.Losses, err = net.Train(ctx, pos, neg)
	report.Run = net.RunID()
	if cfg.LossCSV != "" {
		if werr := WriteLossCSVFile(cfg.LossCSV, report.Losses); werr != nil {
			log.Printf("loss_csv=%s err=%v", cfg.LossCSV, werr)
		}
	}
	if err != nil {
		return report, err
	}

	if report.Train, err = Evaluate(ctx, net, train, batch.Len()); err != nil {
		return report, err
	}
	log.Printf("run=%s split=train accuracy=%.4f samples=%d", report.Run, report.Train.Accuracy(), report.Train.Samples)
	if test.Len() > 0 {
		n := cfg.TestSize
		if n == 0 {
			n = sampleSize(test.Len(), 95)
		}
		if report.Test, err = Evaluate(ctx, net, test, n); err != nil {
			return report, err
		}
		log.Printf("run=%s split=test accuracy=%.4f samples=%d", report.Run, report.Test.Accuracy(), report.Test.Samples)
	}

	if cfg.ModelPath != "" {
		if err := net.WriteCompressedWeightsToFile(cfg.ModelPath); err != nil {
			return report, errors.Wrapf(err, "save %s", cfg.ModelPath)
		}
	}
	return report, nil
}

func loadData(cfg *config.Config) (train, test datasets.Set, err error) {
	if !cfg.Synthetic {
		return mnist.Load(cfg.DataDir)
	}
	nTest := cfg.TestSize
	if nTest == 0 {
		nTest = cfg.BatchSize
	}
	all, err := datasets.Synthetic(cfg.BatchSize+nTest, cfg.Dims[0], cfg.Classes, cfg.Seed)
	if err != nil {
		return train, test, err
	}
	train = datasets.Set{Images: all.Images[:cfg.BatchSize], Labels: all.Labels[:cfg.BatchSize]}
	test = datasets.Set{Images: all.Images[cfg.BatchSize:], Labels: all.Labels[cfg.BatchSize:]}
	return train, test, nil
}
