package model

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrShapeMismatch is returned when stored parameters do not fit the model.
var ErrShapeMismatch = errors.New("parameter shape mismatch")

// header describes the stored parameters so Load can reject a file written
// for a different vocabulary or hidden size.
type header struct {
	VocabSize int
	Hidden    int
	Shapes    [][2]int
}

// Save writes the model parameters to w using gob encoding.
// Optimizer state is not saved.
func (m *Seq2Seq) Save(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	params := m.Params()
	h := header{VocabSize: m.VocabSize(), Hidden: m.Hidden(), Shapes: make([][2]int, len(params))}
	for i, p := range params {
		r, c := p.Dims()
		h.Shapes[i] = [2]int{r, c}
	}
	if err := encoder.Encode(h); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	for i, p := range params {
		if err := encoder.Encode(p.RawMatrix().Data); err != nil {
			return fmt.Errorf("failed to encode param %d: %w", i, err)
		}
	}
	return nil
}

// Load replaces the model parameters with those read from r. Every
// parameter is decoded and checked before any is written, so a failed Load
// leaves the model unchanged.
func (m *Seq2Seq) Load(r io.Reader) error {
	decoder := gob.NewDecoder(r)

	var h header
	if err := decoder.Decode(&h); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if h.VocabSize != m.VocabSize() || h.Hidden != m.Hidden() {
		return fmt.Errorf("%w: stored V=%d H=%d, model V=%d H=%d",
			ErrShapeMismatch, h.VocabSize, h.Hidden, m.VocabSize(), m.Hidden())
	}

	params := m.Params()
	if len(h.Shapes) != len(params) {
		return fmt.Errorf("%w: stored %d params, model has %d", ErrShapeMismatch, len(h.Shapes), len(params))
	}

	staged := make([][]float64, len(params))
	for i, p := range params {
		r, c := p.Dims()
		if h.Shapes[i] != [2]int{r, c} {
			return fmt.Errorf("%w: param %d stored as %dx%d, model has %dx%d",
				ErrShapeMismatch, i, h.Shapes[i][0], h.Shapes[i][1], r, c)
		}
		if err := decoder.Decode(&staged[i]); err != nil {
			return fmt.Errorf("failed to read param %d: %w", i, err)
		}
		if len(staged[i]) != r*c {
			return fmt.Errorf("%w: param %d has %d values, expected %d", ErrShapeMismatch, i, len(staged[i]), r*c)
		}
	}

	for i, p := range params {
		copy(p.RawMatrix().Data, staged[i])
	}
	return nil
}

// SaveFile writes the parameters to filename.
func (m *Seq2Seq) SaveFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := m.Save(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadFile reads the parameters from filename.
func (m *Seq2Seq) LoadFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return m.Load(file)
}
