package model

import (
	"context"
	"fmt"

	"github.com/23skdu/layerlens/internal/tokenizer"
)

// Mock is an in-process Model for tests. VectorFn decides the hidden state
// per (text, layer, token position); Err, when set, is returned by
// HiddenStates to exercise the fatal-failure path.
type Mock struct {
	Tok       *tokenizer.Tokenizer
	Width     int
	Blocks    int
	VectorFn  func(text string, layer, pos int) []float32
	Err       error
	CallCount int
}

func (m *Mock) Dim() int       { return m.Width }
func (m *Mock) NumLayers() int { return m.Blocks }

func (m *Mock) Tokenize(text string) []tokenizer.Token {
	return m.Tok.Encode(text)
}

func (m *Mock) HiddenStates(ctx context.Context, texts []string, layers []int) ([]Activations, error) {
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Activations, len(texts))
	for i, text := range texts {
		toks := m.Tok.Encode(text)
		acts := Activations{Layers: make(map[int][][]float32, len(layers))}
		for _, l := range layers {
			if l < 0 || l >= m.Blocks {
				return nil, fmt.Errorf("mock model: layer %d out of range", l)
			}
			rows := make([][]float32, len(toks))
			for p := range toks {
				rows[p] = m.VectorFn(text, l, p)
			}
			acts.Layers[l] = rows
		}
		out[i] = acts
	}
	return out, nil
}
