package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/datasets/mnist"
	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/net/feedforward"
	"github.com/neurlang/ffsnn/trainer"
)

func main() {
	dstmodel := flag.String("dstmodel", "", "model .json.lzw file")
	dataDir := flag.String("data-dir", mnist.DefaultDirectory, "Directory holding the MNIST gzip files")
	synthetic := flag.Bool("synthetic", false, "Score generated MNIST-like data instead")
	seed := flag.Int64("seed", 0, "Seed of the generated data")
	limit := flag.Int("n", 0, "Score only the first n samples of each split (0 scores all)")
	threads := flag.Int("threads", 0, "Worker threads (0 uses every core)")
	significance := flag.Uint("significance", 0, "Score a sample sufficient at this significance in percent instead of -n samples")
	flag.Parse()

	if *dstmodel == "" {
		log.Fatalf("-dstmodel is required")
	}
	if *significance >= 100 {
		log.Fatalf("-significance must be below 100")
	}

	dev := device.CPU().WithThreads(*threads)
	net, err := feedforward.ReadCompressedNetworkFromFile(*dstmodel, dev)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	log.Printf("run=%s dims=%v classes=%d device %s", net.RunID(), net.Dims(), net.Classes(), dev)

	var train, test datasets.Set
	if *synthetic {
		test, err = datasets.Synthetic(10000, net.Dims()[0], net.Classes(), *seed)
	} else {
		train, test, err = mnist.Load(*dataDir)
	}
	if err != nil {
		log.Fatalf("load data: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, split := range []struct {
		name string
		set  datasets.Set
	}{{"infer", test}, {"train", train}} {
		if split.set.Len() == 0 {
			continue
		}
		if *significance > 0 {
			percent, hash, err := trainer.NewEvaluateFunc(ctx, net, split.set, byte(*significance))()
			if err != nil {
				log.Printf("evaluate %s: %v", split.name, err)
				stop()
				os.Exit(1)
			}
			log.Printf("split=%s accuracy=%d%% significance=%d predictions=%x", split.name, percent, *significance, hash[:8])
			continue
		}
		ev, err := trainer.Evaluate(ctx, net, split.set, *limit)
		if err != nil {
			log.Printf("evaluate %s: %v", split.name, err)
			stop()
			os.Exit(1)
		}
		log.Printf("split=%s accuracy=%.4f samples=%d predictions=%x", split.name, ev.Accuracy(), ev.Samples, ev.Hash[:8])
	}
}
