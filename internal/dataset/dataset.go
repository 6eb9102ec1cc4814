package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Example is one labeled probing input. TargetPosition is the word index of
// TargetWord under whitespace tokenization of Text. Examples are immutable
// once constructed.
type Example struct {
	ID             int    `json:"id"`
	Text           string `json:"text"`
	TargetWord     string `json:"target_word"`
	TargetPosition int    `json:"target_position"`
	Label          string `json:"label"`
}

// Task is a named dataset with a fixed finite label set.
type Task struct {
	Name     string
	Labels   []string
	Examples []Example
}

// Validate checks the task's structural invariants: a usable label set,
// non-empty text and target word, a non-negative position, and every label
// inside the set. Whether the target word actually resolves at its stated
// position is a per-example question answered during alignment, where a
// mismatch drops that example instead of aborting the task.
func (t *Task) Validate() error {
	if len(t.Labels) < 2 {
		return fmt.Errorf("task %s: needs at least 2 labels, has %d", t.Name, len(t.Labels))
	}
	labelSet := make(map[string]bool, len(t.Labels))
	for _, l := range t.Labels {
		labelSet[l] = true
	}

	for _, ex := range t.Examples {
		if strings.TrimSpace(ex.Text) == "" {
			return fmt.Errorf("task %s example %d: empty text", t.Name, ex.ID)
		}
		if ex.TargetWord == "" {
			return fmt.Errorf("task %s example %d: empty target word", t.Name, ex.ID)
		}
		if ex.TargetPosition < 0 {
			return fmt.Errorf("task %s example %d: negative target position %d",
				t.Name, ex.ID, ex.TargetPosition)
		}
		if !labelSet[ex.Label] {
			return fmt.Errorf("task %s example %d: label %q not in label set %v",
				t.Name, ex.ID, ex.Label, t.Labels)
		}
	}
	return nil
}

// DistinctLabels returns the labels actually observed in the examples.
func (t *Task) DistinctLabels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ex := range t.Examples {
		if !seen[ex.Label] {
			seen[ex.Label] = true
			out = append(out, ex.Label)
		}
	}
	return out
}

// stripPunct removes trailing sentence punctuation so "cat." matches target
// word "cat".
func stripPunct(w string) string {
	return strings.TrimRight(w, ".,;:!?")
}

// LoadFile reads one task from a JSON file of the shape
// {"name": ..., "labels": [...], "examples": [...]}.
func LoadFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var raw struct {
		Name     string    `json:"name"`
		Labels   []string  `json:"labels"`
		Examples []Example `json:"examples"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}

	task := &Task{Name: raw.Name, Labels: raw.Labels, Examples: raw.Examples}
	for i := range task.Examples {
		if task.Examples[i].ID == 0 {
			task.Examples[i].ID = i
		}
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Load resolves a task by name: if dir is non-empty and contains <name>.json,
// that file wins, otherwise the built-in corpus is used.
func Load(name, dir string) (*Task, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".json")
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Builtin(name)
}
