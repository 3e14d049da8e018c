// Package vocab provides the fixed character alphabet of the seq2seq model.
package vocab

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reserved symbols.
const (
	Start = 'S' // first decoder input step
	End   = 'E' // last decoder target step
	Pad   = 'P' // fills words shorter than the step count
)

// ErrUnknownSymbol is returned when a character is not part of the alphabet.
var ErrUnknownSymbol = errors.New("unknown symbol")

const alphabet = "SEPabcdefghijklmnopqrstuvwxyz"

// Vocabulary maps each symbol to a stable index and back.
// The zero value is not usable; call New.
type Vocabulary struct {
	symbols []rune
	index   map[rune]int
}

// New returns the 29 symbol vocabulary: S, E, P, then a to z.
func New() *Vocabulary {
	v := &Vocabulary{
		symbols: []rune(alphabet),
		index:   make(map[rune]int, len(alphabet)),
	}
	for i, r := range v.symbols {
		v.index[r] = i
	}
	return v
}

// Size returns the number of symbols.
func (v *Vocabulary) Size() int {
	return len(v.symbols)
}

// Index returns the index of r.
func (v *Vocabulary) Index(r rune) (int, bool) {
	i, ok := v.index[r]
	return i, ok
}

// Symbol returns the symbol at index i. It panics if i is out of range.
func (v *Vocabulary) Symbol(i int) rune {
	return v.symbols[i]
}

// Encode converts s into symbol indices.
func (v *Vocabulary) Encode(s string) ([]int, error) {
	out := make([]int, 0, len(s))
	for _, r := range s {
		i, ok := v.index[r]
		if !ok {
			return nil, fmt.Errorf("encode %q: %w: %q", s, ErrUnknownSymbol, r)
		}
		out = append(out, i)
	}
	return out, nil
}

// Decode converts indices back into a string.
func (v *Vocabulary) Decode(idx []int) string {
	out := make([]rune, len(idx))
	for i, n := range idx {
		out[i] = v.symbols[n]
	}
	return string(out)
}

// OneHot encodes s as a len(s) x Size() matrix with a single 1 per row.
func (v *Vocabulary) OneHot(s string) (*mat.Dense, error) {
	idx, err := v.Encode(s)
	if err != nil {
		return nil, err
	}
	return v.OneHotIndices(idx), nil
}

// OneHotIndices encodes already mapped indices.
func (v *Vocabulary) OneHotIndices(idx []int) *mat.Dense {
	m := mat.NewDense(len(idx), v.Size(), nil)
	for row, n := range idx {
		m.Set(row, n, 1)
	}
	return m
}
