// Package translate decodes words with a trained seq2seq model.
package translate

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/seq2seq/internal/batch"
	"github.com/FlavioCFOliveira/seq2seq/internal/model"
	"github.com/FlavioCFOliveira/seq2seq/internal/vocab"
)

// ErrNoEndMarker is returned in strict mode when the decoded sequence has no
// end symbol.
var ErrNoEndMarker = errors.New("no end marker in decoded sequence")

// Translator runs greedy decoding of single words.
type Translator struct {
	model   *model.Seq2Seq
	builder *batch.Builder
	vocab   *vocab.Vocabulary
	strict  bool
}

// New creates a Translator. With strict set, outputs lacking the end symbol
// are an error instead of being returned whole.
func New(m *model.Seq2Seq, b *batch.Builder, v *vocab.Vocabulary, strict bool) *Translator {
	return &Translator{model: m, builder: b, vocab: v, strict: strict}
}

// Translate feeds word with an all-pad decoder input and returns the arg-max
// symbols up to the first end symbol, with pad symbols removed.
// The model is left in inference mode.
func (t *Translator) Translate(word string) (string, error) {
	decoded, err := t.Decode(word)
	if err != nil {
		return "", err
	}

	end := strings.IndexRune(decoded, vocab.End)
	if end < 0 {
		if t.strict {
			return "", fmt.Errorf("%w: %q -> %q", ErrNoEndMarker, word, decoded)
		}
		end = len(decoded)
	}
	return strings.ReplaceAll(decoded[:end], string(vocab.Pad), ""), nil
}

// Decode returns the raw arg-max symbol of every decoder step.
func (t *Translator) Decode(word string) (string, error) {
	placeholder := strings.Repeat(string(vocab.Pad), len([]rune(word)))
	b, err := t.builder.Build([]batch.Pair{{Source: word, Target: placeholder}})
	if err != nil {
		return "", err
	}

	t.model.SetTraining(false)
	logits := t.model.Forward(b, t.model.ZeroHidden(1))

	// One pair, so row t is decoder step t
	rows, _ := logits.Dims()
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = floats.MaxIdx(logits.RawRowView(i))
	}
	return t.vocab.Decode(idx), nil
}
