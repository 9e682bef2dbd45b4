package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurlang/ffsnn/config"
	"github.com/neurlang/ffsnn/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults to the MNIST reference run)")
	dims := flag.String("dims", "", "Comma separated layer widths, input first (e.g. 784,500,500)")
	activation := flag.String("activation", "", "Neuron unit: lif or relu")
	threshold := flag.Float64("threshold", 0, "Goodness threshold")
	epochs := flag.Int("epochs", 0, "Epochs per layer")
	lr := flag.Float64("lr", 0, "Adam learning rate")
	beta := flag.Float64("beta", 0, "Membrane decay of lif units")
	spikeThreshold := flag.Float64("spike-threshold", 0, "Firing threshold of lif units")
	batchSize := flag.Int("batch-size", 0, "Training batch size")
	seed := flag.Int64("seed", 0, "PRNG seed")
	threads := flag.Int("threads", 0, "Worker threads (0 uses every core)")
	dataDir := flag.String("data-dir", "", "Directory holding the MNIST gzip files")
	synthetic := flag.Bool("synthetic", false, "Train on generated MNIST-like data")
	dstmodel := flag.String("dstmodel", "", "model destination .json.lzw file")
	resume := flag.Bool("resume", false, "resume training")
	lossCSV := flag.String("loss-csv", "", "Write the loss history to this CSV file")
	logEvery := flag.Int("log-every", 0, "Log every N epochs")
	pgo := flag.Bool("pgo", false, "collect a CPU profile into default.pgo")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	widths, err := config.ParseDims(*dims)
	if err != nil {
		log.Fatalf("invalid -dims: %v", err)
	}
	cfg.ApplyOverrides(config.Overrides{
		Dims:           widths,
		Activation:     *activation,
		Threshold:      *threshold,
		Epochs:         *epochs,
		LearningRate:   *lr,
		Beta:           *beta,
		SpikeThreshold: *spikeThreshold,
		BatchSize:      *batchSize,
		Seed:           *seed,
		Threads:        *threads,
		DataDir:        *dataDir,
		Synthetic:      *synthetic,
		ModelPath:      *dstmodel,
		Resume:         *resume,
		LossCSV:        *lossCSV,
		LogEvery:       *logEvery,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	stopProfile := func() {}
	if *pgo {
		if stopProfile, err = startCPUProfile("default.pgo"); err != nil {
			log.Fatalf("cpu profile: %v", err)
		}
	}
	defer stopProfile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("dims=%v activation=%s threshold=%v epochs=%d lr=%v batch_size=%d",
		cfg.Dims, cfg.Activation, cfg.Threshold, cfg.Epochs, cfg.LearningRate, cfg.BatchSize)

	report, err := trainer.Run(ctx, cfg, trainer.NewLogObserver(cfg.LogEvery))
	if err != nil {
		log.Printf("training failed: %v", err)
		stop()
		stopProfile()
		os.Exit(1)
	}
	log.Printf("run=%s train_accuracy=%.4f test_accuracy=%.4f", report.Run, report.Train.Accuracy(), report.Test.Accuracy())
}
