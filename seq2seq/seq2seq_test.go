package seq2seq

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func smallConfig() *Config {
	cfg := DefaultConfig()
	cfg.Epochs = 50
	cfg.Hidden = 8
	cfg.LogEvery = 25
	return cfg
}

func TestPipelineTrain(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPipeline(smallConfig(), nil, &out)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	res, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Epochs != 50 {
		t.Errorf("Epochs = %d, expected 50", res.Epochs)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d progress lines, expected 2: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "Epoch: 0025 cost = ") || !strings.HasPrefix(lines[1], "Epoch: 0050 cost = ") {
		t.Errorf("unexpected progress output %q", out.String())
	}
}

func TestPipelineLogsModelShape(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	if _, err := NewPipeline(smallConfig(), logger, nil); err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	got := logs.String()
	for _, want := range []string{"model built", "vocab=29", "hidden=8", "n_step=5"} {
		if !strings.Contains(got, want) {
			t.Errorf("log %q missing %q", got, want)
		}
	}
}

func TestPipelinePrintTranslations(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPipeline(smallConfig(), nil, &out)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	words := DefaultConfig().TestWords
	if err := p.PrintTranslations(words); err != nil {
		t.Fatalf("PrintTranslations: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2*len(words) {
		t.Fatalf("got %d lines, expected %d", len(lines), 2*len(words))
	}
	for i, w := range words {
		if lines[2*i] != "(TESTING)" {
			t.Errorf("line %d = %q, expected (TESTING)", 2*i, lines[2*i])
		}
		if !strings.HasPrefix(lines[2*i+1], w+" -> ") {
			t.Errorf("line %d = %q, expected prefix %q", 2*i+1, lines[2*i+1], w+" -> ")
		}
	}
}

func TestPipelineSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")

	cfg := smallConfig()
	cfg.SavePath = path
	trained, err := NewPipeline(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := trained.Train(context.Background()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	cfg2 := smallConfig()
	cfg2.Seed = 99
	cfg2.LoadPath = path
	loaded, err := NewPipeline(cfg2, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline with LoadPath: %v", err)
	}

	for _, w := range []string{"man", "king", "upp"} {
		a, errA := trained.Translate(w)
		b, errB := loaded.Translate(w)
		if errA != nil || errB != nil {
			t.Fatalf("Translate(%q): %v, %v", w, errA, errB)
		}
		if a != b {
			t.Errorf("Translate(%q) = %q after load, expected %q", w, b, a)
		}
	}
}

func TestPipelineErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.Hidden = 0
	if _, err := NewPipeline(cfg, nil, nil); err == nil {
		t.Error("expected error for invalid config")
	}

	cfg = smallConfig()
	cfg.Pairs = append(cfg.Pairs, Pair{Source: "toolong", Target: "x"})
	p, err := NewPipeline(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := p.Train(context.Background()); !errors.Is(err, ErrInvalidInputLength) {
		t.Errorf("Train error = %v, expected ErrInvalidInputLength", err)
	}
	if _, err := p.Translate("abcdef"); !errors.Is(err, ErrInvalidInputLength) {
		t.Errorf("Translate error = %v, expected ErrInvalidInputLength", err)
	}

	cfg = smallConfig()
	cfg.LoadPath = filepath.Join(t.TempDir(), "missing.gob")
	if _, err := NewPipeline(cfg, nil, nil); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestPipelineCancelled(t *testing.T) {
	p, err := NewPipeline(smallConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Train(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Train error = %v, expected context.Canceled", err)
	}
}
