// Package batch turns raw word pairs into padded one-hot tensors.
package batch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/seq2seq/internal/vocab"
)

// ErrInvalidInputLength is returned for words longer than the step count.
var ErrInvalidInputLength = errors.New("invalid input length")

// ErrEmptyBatch is returned when Build is called without pairs.
var ErrEmptyBatch = errors.New("empty batch")

// Pair is a (source, target) word pair.
type Pair struct {
	Source string
	Target string
}

// Batch holds the three tensors of one training or inference step.
// Row i of every field corresponds to the i-th input pair.
type Batch struct {
	// Encoder holds one nStep x V one-hot matrix per pair.
	Encoder []*mat.Dense
	// Decoder holds one (nStep+1) x V one-hot matrix per pair: S + padded target.
	Decoder []*mat.Dense
	// Target holds nStep+1 class indices per pair: padded target + E.
	Target [][]int
	// Pairs keeps the padded strings.
	Pairs []Pair

	vocabSize int
}

// Size returns the number of pairs.
func (b *Batch) Size() int {
	return len(b.Encoder)
}

// EncoderSteps returns the encoder sequence length.
func (b *Batch) EncoderSteps() int {
	if len(b.Encoder) == 0 {
		return 0
	}
	r, _ := b.Encoder[0].Dims()
	return r
}

// DecoderSteps returns the decoder sequence length.
func (b *Batch) DecoderSteps() int {
	if len(b.Decoder) == 0 {
		return 0
	}
	r, _ := b.Decoder[0].Dims()
	return r
}

// EncoderStep returns the batch x V input of encoder time step t.
func (b *Batch) EncoderStep(t int) *mat.Dense {
	return b.timeSlice(b.Encoder, t)
}

// DecoderStep returns the batch x V input of decoder time step t.
func (b *Batch) DecoderStep(t int) *mat.Dense {
	return b.timeSlice(b.Decoder, t)
}

// EncoderSequence returns every encoder step in time order.
func (b *Batch) EncoderSequence() []*mat.Dense {
	return b.sequence(b.Encoder, b.EncoderSteps())
}

// DecoderSequence returns every decoder step in time order.
func (b *Batch) DecoderSequence() []*mat.Dense {
	return b.sequence(b.Decoder, b.DecoderSteps())
}

// Targets returns the labels flattened time-major: index t*Size()+i holds
// step t of pair i, matching the row layout of the projected logits.
func (b *Batch) Targets() []int {
	steps := b.DecoderSteps()
	n := b.Size()
	out := make([]int, steps*n)
	for t := 0; t < steps; t++ {
		for i := 0; i < n; i++ {
			out[t*n+i] = b.Target[i][t]
		}
	}
	return out
}

func (b *Batch) sequence(src []*mat.Dense, steps int) []*mat.Dense {
	out := make([]*mat.Dense, steps)
	for t := range out {
		out[t] = b.timeSlice(src, t)
	}
	return out
}

func (b *Batch) timeSlice(src []*mat.Dense, t int) *mat.Dense {
	m := mat.NewDense(len(src), b.vocabSize, nil)
	for i, seq := range src {
		m.SetRow(i, seq.RawRowView(t))
	}
	return m
}

// Builder builds batches for a fixed step count.
type Builder struct {
	vocab  *vocab.Vocabulary
	nStep  int
	logger *slog.Logger
}

// NewBuilder creates a builder. A nil logger discards diagnostics.
func NewBuilder(v *vocab.Vocabulary, nStep int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{vocab: v, nStep: nStep, logger: logger}
}

// NStep returns the fixed step count.
func (b *Builder) NStep() int {
	return b.nStep
}

// Pad right-pads word with the pad symbol to exactly NStep characters.
func (b *Builder) Pad(word string) (string, error) {
	n := utf8.RuneCountInString(word)
	if n > b.nStep {
		return "", fmt.Errorf("%w: %q has %d characters, max %d", ErrInvalidInputLength, word, n, b.nStep)
	}
	return word + strings.Repeat(string(vocab.Pad), b.nStep-n), nil
}

// Build pads and encodes every pair. The input slice is not modified.
func (b *Builder) Build(pairs []Pair) (*Batch, error) {
	if len(pairs) == 0 {
		return nil, ErrEmptyBatch
	}
	out := &Batch{
		Encoder:   make([]*mat.Dense, 0, len(pairs)),
		Decoder:   make([]*mat.Dense, 0, len(pairs)),
		Target:    make([][]int, 0, len(pairs)),
		Pairs:     make([]Pair, 0, len(pairs)),
		vocabSize: b.vocab.Size(),
	}

	for _, p := range pairs {
		src, err := b.Pad(p.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := b.Pad(p.Target)
		if err != nil {
			return nil, err
		}

		input, err := b.vocab.Encode(src)
		if err != nil {
			return nil, err
		}
		decoderInput, err := b.vocab.Encode(string(vocab.Start) + tgt)
		if err != nil {
			return nil, err
		}
		target, err := b.vocab.Encode(tgt + string(vocab.End))
		if err != nil {
			return nil, err
		}

		b.logger.Debug("batch pair",
			"input", input,
			"decoder_input", decoderInput,
			"target", target,
			"input_str", src,
			"decoder_input_str", string(vocab.Start)+tgt,
			"target_str", tgt+string(vocab.End),
		)

		out.Encoder = append(out.Encoder, b.vocab.OneHotIndices(input))
		out.Decoder = append(out.Decoder, b.vocab.OneHotIndices(decoderInput))
		out.Target = append(out.Target, target)
		out.Pairs = append(out.Pairs, Pair{Source: src, Target: tgt})
	}

	return out, nil
}
