package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/23skdu/layerlens/internal/dataset"
	"github.com/23skdu/layerlens/internal/model"
	"github.com/23skdu/layerlens/internal/tokenizer"
)

func testModel() *model.Mock {
	tok := tokenizer.New([]string{
		"The", "Ġcat", "Ġcats", "Ġsleeps", "Ġsleep", "Ġwindow", "sill", ".",
	})
	return &model.Mock{
		Tok:    tok,
		Width:  4,
		Blocks: 12,
		VectorFn: func(text string, layer, pos int) []float32 {
			// Encode (layer, pos) so tests can check site selection.
			return []float32{float32(layer), float32(pos), 1, 0}
		},
	}
}

func testTask() *dataset.Task {
	return &dataset.Task{
		Name:   "toy",
		Labels: []string{"singular", "plural"},
		Examples: []dataset.Example{
			{ID: 0, Text: "The cat sleeps.", TargetWord: "cat", TargetPosition: 1, Label: "singular"},
			{ID: 1, Text: "The cats sleep.", TargetWord: "cats", TargetPosition: 1, Label: "plural"},
			{ID: 2, Text: "The windowsill sleeps.", TargetWord: "windowsill", TargetPosition: 1, Label: "singular"},
		},
	}
}

func TestRunRowSetConsistency(t *testing.T) {
	layers := []int{1, 2, 3}
	res, err := Run(context.Background(), testModel(), testTask(), layers, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.ExampleIDs) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(res.ExampleIDs))
	}
	for _, l := range layers {
		rows, cols := res.Matrices[l].Dims()
		if rows != len(res.ExampleIDs) {
			t.Errorf("layer %d: %d rows, want %d", l, rows, len(res.ExampleIDs))
		}
		if cols != 4 {
			t.Errorf("layer %d: %d cols, want 4", l, cols)
		}
	}
	// Dataset order preserved.
	for i, id := range res.ExampleIDs {
		if id != i {
			t.Errorf("row %d: example id %d, want %d", i, id, i)
		}
	}
}

func TestRunSelectsLastSubwordSite(t *testing.T) {
	res, err := Run(context.Background(), testModel(), testTask(), []int{5}, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := res.Matrices[5]
	// Row 0: "cat" is token 1. Row 2: "windowsill" splits into
	// " window"+"sill", last piece is token 2.
	if got := m.At(0, 0); got != 5 {
		t.Errorf("row 0: layer channel = %v, want 5", got)
	}
	if got := m.At(0, 1); got != 1 {
		t.Errorf("row 0: site = %v, want 1", got)
	}
	if got := m.At(2, 1); got != 2 {
		t.Errorf("row 2 (split word): site = %v, want 2", got)
	}
}

func TestRunDropsUnalignableExample(t *testing.T) {
	task := testTask()
	task.Examples = append(task.Examples, dataset.Example{
		ID: 3, Text: "The cat sleeps.", TargetWord: "dog", TargetPosition: 1, Label: "singular",
	})

	res, err := Run(context.Background(), testModel(), task, []int{1, 2}, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Dropped) != 1 {
		t.Fatalf("expected exactly 1 drop, got %d", len(res.Dropped))
	}
	if res.Dropped[0].ExampleID != 3 {
		t.Errorf("dropped id = %d, want 3", res.Dropped[0].ExampleID)
	}
	// Remaining rows identical across layers.
	for _, l := range []int{1, 2} {
		rows, _ := res.Matrices[l].Dims()
		if rows != 3 {
			t.Errorf("layer %d: %d rows after drop, want 3", l, rows)
		}
	}
}

func TestRunAllExamplesUnalignable(t *testing.T) {
	task := &dataset.Task{
		Name:   "toy",
		Labels: []string{"a", "b"},
		Examples: []dataset.Example{
			{ID: 0, Text: "The cat sleeps.", TargetWord: "dog", TargetPosition: 1, Label: "a"},
		},
	}
	if _, err := Run(context.Background(), testModel(), task, []int{1}, 2); err == nil {
		t.Error("expected error when no example survives alignment")
	}
}

func TestRunModelFailureIsFatal(t *testing.T) {
	m := testModel()
	m.Err = errors.New("resource exhausted")
	_, err := Run(context.Background(), m, testTask(), []int{1}, 2)
	if err == nil {
		t.Fatal("expected model failure to propagate")
	}
	if !errors.Is(err, m.Err) {
		t.Errorf("expected wrapped model error, got %v", err)
	}
}

func TestRunBatching(t *testing.T) {
	m := testModel()
	if _, err := Run(context.Background(), m, testTask(), []int{1}, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.CallCount != 3 {
		t.Errorf("expected 3 batches of size 1, got %d calls", m.CallCount)
	}
}

func TestDiagnose(t *testing.T) {
	res, err := Run(context.Background(), testModel(), testTask(), []int{1}, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := res.Diagnose(1)
	// Channels 0 and 2 are constant across rows, channel 3 is constant zero;
	// only the site channel varies.
	if s.ZeroVarDims != 3 {
		t.Errorf("ZeroVarDims = %d, want 3", s.ZeroVarDims)
	}
	if s.Max != 2 {
		t.Errorf("Max = %v, want 2", s.Max)
	}
	if s.Min != 0 {
		t.Errorf("Min = %v, want 0", s.Min)
	}
}
