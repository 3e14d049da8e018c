// Package model composes the encoder, decoder and output projection of the
// character-level sequence-to-sequence network.
package model

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/seq2seq/internal/activations"
	"github.com/FlavioCFOliveira/seq2seq/internal/batch"
	"github.com/FlavioCFOliveira/seq2seq/internal/config"
	"github.com/FlavioCFOliveira/seq2seq/internal/layer"
)

// PCG stream ids, one per randomised component.
const (
	streamEncoder uint64 = iota + 1
	streamDecoder
	streamProjection
	streamEncoderDropout
	streamDecoderDropout
)

// Seq2Seq is an RNN encoder whose final state seeds an RNN decoder; every
// decoder step is projected to logits over the vocabulary.
type Seq2Seq struct {
	enc     *layer.RNN
	dec     *layer.RNN
	fc      *layer.Dense
	encDrop *layer.Dropout
	decDrop *layer.Dropout

	// shape of the last forward pass, needed to unstack gradients
	batchSize int
	decSteps  int
}

// New builds a model for cfg. All weights and dropout masks derive from cfg.Seed.
func New(cfg *config.Config, vocabSize int) *Seq2Seq {
	src := func(stream uint64) rand.Source { return rand.NewPCG(cfg.Seed, stream) }

	return &Seq2Seq{
		enc:     layer.NewRNN(vocabSize, cfg.Hidden, src(streamEncoder)),
		dec:     layer.NewRNN(vocabSize, cfg.Hidden, src(streamDecoder)),
		fc:      layer.NewDense(cfg.Hidden, vocabSize, activations.Linear{}, src(streamProjection)),
		encDrop: layer.NewDropout(cfg.Dropout, src(streamEncoderDropout)),
		decDrop: layer.NewDropout(cfg.Dropout, src(streamDecoderDropout)),
	}
}

// ZeroHidden returns a batchSize x hidden zero state.
func (m *Seq2Seq) ZeroHidden(batchSize int) *mat.Dense {
	return mat.NewDense(batchSize, m.Hidden(), nil)
}

// Encode runs the encoder over the padded sources and returns its final
// state after dropout.
func (m *Seq2Seq) Encode(b *batch.Batch, h0 *mat.Dense) *mat.Dense {
	_, hT := m.enc.Forward(b.EncoderSequence(), h0)
	return m.encDrop.Forward(hT)
}

// Decode runs the decoder over the full decoder input, seeded with the
// encoder state, and returns the hidden state of every step.
func (m *Seq2Seq) Decode(b *batch.Batch, seed *mat.Dense) []*mat.Dense {
	outs, _ := m.dec.Forward(b.DecoderSequence(), seed)
	return outs
}

// Project applies dropout to the decoder states and maps them to logits.
// The result has one row per (step, pair), time-major.
func (m *Seq2Seq) Project(hs []*mat.Dense) *mat.Dense {
	stacked := stack(hs)
	m.decSteps = len(hs)
	m.batchSize, _ = hs[0].Dims()
	return m.fc.Forward(m.decDrop.Forward(stacked))
}

// Forward encodes, decodes and projects b.
func (m *Seq2Seq) Forward(b *batch.Batch, h0 *mat.Dense) *mat.Dense {
	seed := m.Encode(b, h0)
	return m.Project(m.Decode(b, seed))
}

// Backward propagates dLogits through the last Forward and accumulates
// parameter gradients.
func (m *Seq2Seq) Backward(dLogits *mat.Dense) {
	dStacked := m.decDrop.Backward(m.fc.Backward(dLogits))

	hidden := m.Hidden()
	dOuts := make([]*mat.Dense, m.decSteps)
	for t := range dOuts {
		dOuts[t] = dStacked.Slice(t*m.batchSize, (t+1)*m.batchSize, 0, hidden).(*mat.Dense)
	}

	dSeed := m.dec.Backward(dOuts, nil)
	m.enc.Backward(nil, m.encDrop.Backward(dSeed))
}

// SetTraining switches dropout on or off.
func (m *Seq2Seq) SetTraining(training bool) {
	m.encDrop.SetTraining(training)
	m.decDrop.SetTraining(training)
}

// Params returns every trainable matrix: encoder, decoder, projection.
func (m *Seq2Seq) Params() []*mat.Dense {
	var params []*mat.Dense
	for _, l := range m.layers() {
		params = append(params, l.Params()...)
	}
	return params
}

// Gradients returns the accumulated gradients in Params order.
func (m *Seq2Seq) Gradients() []*mat.Dense {
	var grads []*mat.Dense
	for _, l := range m.layers() {
		grads = append(grads, l.Gradients()...)
	}
	return grads
}

// ClearGradients zeroes every accumulated gradient.
func (m *Seq2Seq) ClearGradients() {
	for _, l := range m.layers() {
		l.ClearGradients()
	}
}

// VocabSize returns the number of output classes.
func (m *Seq2Seq) VocabSize() int {
	return m.fc.OutSize()
}

// Hidden returns the recurrent state size.
func (m *Seq2Seq) Hidden() int {
	return m.enc.OutSize()
}

func (m *Seq2Seq) layers() []layer.Layer {
	return []layer.Layer{m.enc, m.dec, m.fc}
}

func stack(hs []*mat.Dense) *mat.Dense {
	rows, cols := hs[0].Dims()
	out := mat.NewDense(len(hs)*rows, cols, nil)
	for t, h := range hs {
		for i := 0; i < rows; i++ {
			out.SetRow(t*rows+i, h.RawRowView(i))
		}
	}
	return out
}
