package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/layerlens/internal/tokenizer"
)

// DefaultPort is the Flight port of the activation service.
const DefaultPort = 3000

// FlightModel talks to a remote activation service over Arrow Flight. The
// service hosts the pretrained model; this client fetches its vocabulary once
// at connect time and streams hidden states per batch.
type FlightModel struct {
	client    flight.Client
	tok       *tokenizer.Tokenizer
	dim       int
	numLayers int
	timeout   time.Duration
}

type describeResponse struct {
	Dim       int `json:"dim"`
	NumLayers int `json:"num_layers"`
}

type vocabResponse struct {
	Tokens []string `json:"tokens"`
}

type statesRequest struct {
	Texts  []string `json:"texts"`
	Layers []int    `json:"layers"`
}

// NewFlightModel dials the activation service and loads its model description
// and tokenizer vocabulary.
func NewFlightModel(ctx context.Context, addr string) (*FlightModel, error) {
	client, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("activation service dial %s: %w", addr, err)
	}

	fm := &FlightModel{client: client, timeout: 120 * time.Second}

	var desc describeResponse
	if err := fm.action(ctx, "describe", nil, &desc); err != nil {
		client.Close()
		return nil, err
	}
	if desc.Dim <= 0 || desc.NumLayers <= 0 {
		client.Close()
		return nil, fmt.Errorf("activation service: bad model description dim=%d layers=%d", desc.Dim, desc.NumLayers)
	}

	var vocab vocabResponse
	if err := fm.action(ctx, "vocab", nil, &vocab); err != nil {
		client.Close()
		return nil, err
	}
	if len(vocab.Tokens) == 0 {
		client.Close()
		return nil, fmt.Errorf("activation service: empty vocabulary")
	}

	fm.dim = desc.Dim
	fm.numLayers = desc.NumLayers
	fm.tok = tokenizer.New(vocab.Tokens)
	return fm, nil
}

func (fm *FlightModel) Close() error {
	if fm.client != nil {
		return fm.client.Close()
	}
	return nil
}

func (fm *FlightModel) Dim() int       { return fm.dim }
func (fm *FlightModel) NumLayers() int { return fm.numLayers }

func (fm *FlightModel) Tokenize(text string) []tokenizer.Token {
	return fm.tok.Encode(text)
}

// action runs a unary Flight action and decodes its single JSON result.
func (fm *FlightModel) action(ctx context.Context, name string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, fm.timeout)
	defer cancel()

	stream, err := fm.client.DoAction(ctx, &flight.Action{Type: name, Body: body})
	if err != nil {
		return fmt.Errorf("activation service %s: %w", name, err)
	}
	res, err := stream.Recv()
	if err != nil {
		return fmt.Errorf("activation service %s: %w", name, err)
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("activation service %s: decode: %w", name, err)
	}
	return nil
}

// HiddenStates requests per-layer activations for a batch of texts. The
// service answers with a record stream of (item, layer, vector) rows; rows
// arrive in token-position order within each (item, layer).
func (fm *FlightModel) HiddenStates(ctx context.Context, texts []string, layers []int) ([]Activations, error) {
	req, err := json.Marshal(statesRequest{Texts: texts, Layers: layers})
	if err != nil {
		return nil, fmt.Errorf("activation service: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, fm.timeout)
	defer cancel()

	stream, err := fm.client.DoGet(ctx, &flight.Ticket{Ticket: req})
	if err != nil {
		return nil, fmt.Errorf("activation service: DoGet: %w", err)
	}
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("activation service: open record stream: %w", err)
	}
	defer rdr.Release()

	out := make([]Activations, len(texts))
	for i := range out {
		out[i] = Activations{Layers: make(map[int][][]float32, len(layers))}
	}

	for rdr.Next() {
		rec := rdr.Record()
		items := rec.Column(0).(*array.Int32)
		layerCol := rec.Column(1).(*array.Int32)
		vectors := rec.Column(2).(*array.FixedSizeList)
		values := vectors.ListValues().(*array.Float32)

		for row := 0; row < int(rec.NumRows()); row++ {
			item := int(items.Value(row))
			layer := int(layerCol.Value(row))
			if item < 0 || item >= len(texts) {
				return nil, fmt.Errorf("activation service: item index %d out of range", item)
			}
			out[item].Layers[layer] = append(out[item].Layers[layer], vectorAt(vectors, values, row, fm.dim))
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("activation service: record stream: %w", err)
	}

	// Every requested layer must be present for every item.
	for i := range out {
		for _, l := range layers {
			if len(out[i].Layers[l]) == 0 {
				return nil, fmt.Errorf("activation service: no activations for item %d layer %d", i, l)
			}
		}
	}
	return out, nil
}

// vectorAt copies one fixed-size-list row out of the child values array. The
// list may be a slice of a larger array, so its data offset shifts where each
// row's values start.
func vectorAt(vectors *array.FixedSizeList, values *array.Float32, row, dim int) []float32 {
	vec := make([]float32, dim)
	base := (vectors.Data().Offset() + row) * dim
	for j := 0; j < dim; j++ {
		vec[j] = values.Value(base + j)
	}
	return vec
}
