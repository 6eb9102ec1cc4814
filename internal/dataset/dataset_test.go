package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinPlurality(t *testing.T) {
	task, err := Builtin("plurality")
	if err != nil {
		t.Fatalf("Builtin(plurality): %v", err)
	}
	if len(task.Labels) != 2 {
		t.Errorf("expected 2 labels, got %d", len(task.Labels))
	}
	var singular, plural int
	for _, ex := range task.Examples {
		switch ex.Label {
		case "singular":
			singular++
		case "plural":
			plural++
		default:
			t.Errorf("unexpected label %q", ex.Label)
		}
	}
	if singular == 0 || plural == 0 {
		t.Errorf("expected both classes populated, got singular=%d plural=%d", singular, plural)
	}
	if singular != plural {
		t.Errorf("expected balanced classes, got singular=%d plural=%d", singular, plural)
	}
}

func TestBuiltinPOS(t *testing.T) {
	task, err := Builtin("pos")
	if err != nil {
		t.Fatalf("Builtin(pos): %v", err)
	}
	if len(task.Labels) != 4 {
		t.Errorf("expected 4 labels, got %d", len(task.Labels))
	}
	got := task.DistinctLabels()
	if len(got) != 4 {
		t.Errorf("expected 4 distinct observed labels, got %v", got)
	}
}

func TestBuiltinUnknown(t *testing.T) {
	if _, err := Builtin("sentiment"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestValidateStructural(t *testing.T) {
	task := &Task{
		Name:   "t",
		Labels: []string{"a", "b"},
		Examples: []Example{
			{ID: 0, Text: "The cat sleeps.", TargetWord: "cat", TargetPosition: 1, Label: "a"},
		},
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got %v", err)
	}

	task.Examples[0].TargetPosition = -1
	if err := task.Validate(); err == nil {
		t.Error("expected error for negative position")
	}
	task.Examples[0].TargetPosition = 1

	task.Examples[0].TargetWord = ""
	if err := task.Validate(); err == nil {
		t.Error("expected error for empty target word")
	}
	task.Examples[0].TargetWord = "cat"

	task.Examples[0].Text = "  "
	if err := task.Validate(); err == nil {
		t.Error("expected error for empty text")
	}
}

// A target word that does not occur at its stated position is an alignment
// concern, resolved per example downstream; loading must not reject the task.
func TestValidateDefersWordMismatchToAlignment(t *testing.T) {
	task := &Task{
		Name:   "t",
		Labels: []string{"a", "b"},
		Examples: []Example{
			{ID: 0, Text: "The cat sleeps.", TargetWord: "wolf", TargetPosition: 1, Label: "a"},
			{ID: 1, Text: "The cat sleeps.", TargetWord: "cat", TargetPosition: 7, Label: "b"},
		},
	}
	if err := task.Validate(); err != nil {
		t.Errorf("expected mismatch and out-of-range position to pass validation, got %v", err)
	}
}

func TestValidateRejectsUnknownLabel(t *testing.T) {
	task := &Task{
		Name:   "t",
		Labels: []string{"a", "b"},
		Examples: []Example{
			{ID: 0, Text: "The cat sleeps.", TargetWord: "cat", TargetPosition: 1, Label: "c"},
		},
	}
	if err := task.Validate(); err == nil {
		t.Error("expected error for label outside label set")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toy.json")
	body := []byte(`{
		"name": "toy",
		"labels": ["x", "y"],
		"examples": [
			{"text": "The cat sleeps.", "target_word": "cat", "target_position": 1, "label": "x"},
			{"text": "The dogs sleep.", "target_word": "dogs", "target_position": 1, "label": "y"}
		]
	}`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	task, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if task.Name != "toy" || len(task.Examples) != 2 {
		t.Errorf("unexpected task: %+v", task)
	}
	// IDs assigned from slice order when absent.
	if task.Examples[1].ID != 1 {
		t.Errorf("expected assigned ID 1, got %d", task.Examples[1].ID)
	}
}

func TestLoadFallsBackToBuiltin(t *testing.T) {
	task, err := Load("pos", t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if task.Name != "pos" {
		t.Errorf("expected builtin pos task, got %s", task.Name)
	}
}
