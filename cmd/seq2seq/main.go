// Package main trains the character-level seq2seq model on its word pairs
// and prints the translation of each test word.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FlavioCFOliveira/seq2seq/seq2seq"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults built in)")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	hidden := flag.Int("hidden", 0, "Hidden state size")
	lr := flag.Float64("lr", 0, "Learning rate")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Print the loss every N epochs")
	dropout := flag.Float64("dropout", 0, "Dropout probability (0 disables dropout)")
	csvLog := flag.String("csv", "", "Write per-epoch loss to this CSV file")
	savePath := flag.String("save", "", "Save parameters here after training")
	loadPath := flag.String("load", "", "Load parameters from this file before training")
	checkpoint := flag.String("checkpoint", "", "Save best-loss checkpoints here")
	pairsCSV := flag.String("pairs", "", "Read training pairs from a source,target CSV file")
	strict := flag.Bool("strict", false, "Fail when a translation has no end marker")
	verbose := flag.Bool("v", false, "Log batch diagnostics")

	flag.Parse()

	// -dropout 0 disables dropout, so only pass it on when the flag was set
	var dropoutOverride *float64
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dropout" {
			dropoutOverride = dropout
		}
	})

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := seq2seq.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = seq2seq.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(seq2seq.Overrides{
		Epochs:       *epochs,
		Hidden:       *hidden,
		LearningRate: *lr,
		Dropout:      dropoutOverride,
		Seed:         *seed,
		LogEvery:     *logEvery,
		CSVLog:       *csvLog,
		SavePath:     *savePath,
		LoadPath:     *loadPath,
		Checkpoint:   *checkpoint,
		PairsCSV:     *pairsCSV,
		Strict:       *strict,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	pipeline, err := seq2seq.NewPipeline(cfg, logger, os.Stdout)
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := pipeline.Train(ctx); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if err := pipeline.PrintTranslations(cfg.TestWords); err != nil {
		log.Fatalf("inference failed: %v", err)
	}
}
