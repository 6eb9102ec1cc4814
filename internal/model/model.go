package model

import (
	"context"

	"github.com/23skdu/layerlens/internal/tokenizer"
)

// Activations holds the hidden states for one input text.
// Layers[l][p] is the width-Dim vector the model produced at layer l for
// token position p.
type Activations struct {
	Layers map[int][][]float32
}

// Model is the external pretrained model this pipeline queries. It must expose
// the tokenizer it consumed the text with, so character-to-token offsets stay
// consistent between alignment and extraction.
//
// Implementations are collaborators, not part of the measurement core: the
// pipeline treats HiddenStates as an opaque, possibly slow call.
type Model interface {
	// Dim is the hidden-state width (768 for GPT-2 small).
	Dim() int

	// NumLayers is the count of transformer blocks. Probing addresses
	// layers 1..NumLayers-1; layer 0 is the raw input embedding.
	NumLayers() int

	// Tokenize splits text exactly the way the model consumes it.
	Tokenize(text string) []tokenizer.Token

	// HiddenStates returns per-layer, per-token vectors for a batch of
	// texts, in input order. A failure here is fatal for the run: there is
	// nothing to substitute for missing activations.
	HiddenStates(ctx context.Context, texts []string, layers []int) ([]Activations, error)
}
