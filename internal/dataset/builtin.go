package dataset

import (
	"fmt"
	"strings"
)

// Built-in probing corpora. Trimmed versions of the plurality and
// part-of-speech datasets used by the original GPT-2 probing experiments;
// larger corpora can be supplied as JSON files via --datasets.

type seedExample struct {
	text  string
	word  string
	label string
}

var pluralitySeed = []seedExample{
	{"The cat sits on the windowsill.", "cat", "singular"},
	{"A dog barks at strangers.", "dog", "singular"},
	{"The bird sings in the morning.", "bird", "singular"},
	{"A horse gallops across the field.", "horse", "singular"},
	{"The rabbit hops through the garden.", "rabbit", "singular"},
	{"The elephant walks slowly.", "elephant", "singular"},
	{"A tiger hunts at night.", "tiger", "singular"},
	{"The monkey swings from trees.", "monkey", "singular"},
	{"A dolphin swims gracefully.", "dolphin", "singular"},
	{"The penguin waddles on ice.", "penguin", "singular"},
	{"The student studies diligently.", "student", "singular"},
	{"A teacher explains concepts clearly.", "teacher", "singular"},
	{"The doctor examines patients carefully.", "doctor", "singular"},
	{"The engineer designs systems.", "engineer", "singular"},
	{"A programmer writes code.", "programmer", "singular"},
	{"The book contains valuable information.", "book", "singular"},
	{"A chair supports people comfortably.", "chair", "singular"},
	{"The lamp illuminates the room.", "lamp", "singular"},
	{"The bridge spans the river.", "bridge", "singular"},
	{"A train arrives punctually.", "train", "singular"},

	{"The cats sit on the windowsill.", "cats", "plural"},
	{"Dogs bark at strangers.", "Dogs", "plural"},
	{"The birds sing in the morning.", "birds", "plural"},
	{"Horses gallop across the field.", "Horses", "plural"},
	{"The rabbits hop through the garden.", "rabbits", "plural"},
	{"The elephants walk slowly.", "elephants", "plural"},
	{"Tigers hunt at night.", "Tigers", "plural"},
	{"The monkeys swing from trees.", "monkeys", "plural"},
	{"Dolphins swim gracefully.", "Dolphins", "plural"},
	{"The penguins waddle on ice.", "penguins", "plural"},
	{"The students study diligently.", "students", "plural"},
	{"Teachers explain concepts clearly.", "Teachers", "plural"},
	{"The doctors examine patients carefully.", "doctors", "plural"},
	{"The engineers design systems.", "engineers", "plural"},
	{"Programmers write code.", "Programmers", "plural"},
	{"The books contain valuable information.", "books", "plural"},
	{"Chairs support people comfortably.", "Chairs", "plural"},
	{"The lamps illuminate the room.", "lamps", "plural"},
	{"The bridges span the river.", "bridges", "plural"},
	{"Trains arrive punctually.", "Trains", "plural"},
}

var posSeed = []seedExample{
	{"The mountain rises above the valley.", "mountain", "noun"},
	{"A scientist measured the sample twice.", "scientist", "noun"},
	{"The kitchen smelled of fresh bread.", "kitchen", "noun"},
	{"Her garden attracts many visitors.", "garden", "noun"},
	{"The engine stalled near the bridge.", "engine", "noun"},
	{"A letter arrived this morning.", "letter", "noun"},
	{"The harbor shelters small boats.", "harbor", "noun"},
	{"His violin needs new strings.", "violin", "noun"},

	{"The children run across the yard.", "run", "verb"},
	{"She writes long letters every week.", "writes", "verb"},
	{"They build houses near the coast.", "build", "verb"},
	{"The water boils in the kettle.", "boils", "verb"},
	{"He repairs old clocks for fun.", "repairs", "verb"},
	{"The committee debates the proposal.", "debates", "verb"},
	{"We plant tomatoes each spring.", "plant", "verb"},
	{"The crowd cheers after the goal.", "cheers", "verb"},

	{"The tall tower dominates the skyline.", "tall", "adjective"},
	{"A gentle breeze cooled the room.", "gentle", "adjective"},
	{"The ancient manuscript survived the fire.", "ancient", "adjective"},
	{"Her bright scarf stood out.", "bright", "adjective"},
	{"The narrow street was empty.", "narrow", "adjective"},
	{"A curious child asked questions.", "curious", "adjective"},
	{"The fragile vase broke easily.", "fragile", "adjective"},
	{"His quiet voice calmed the dog.", "quiet", "adjective"},

	{"She spoke softly to the baby.", "softly", "adverb"},
	{"The train moved slowly uphill.", "slowly", "adverb"},
	{"He answered quickly and left.", "quickly", "adverb"},
	{"They argued loudly next door.", "loudly", "adverb"},
	{"The dancer turned gracefully onstage.", "gracefully", "adverb"},
	{"She rarely misses a deadline.", "rarely", "adverb"},
	{"The guests arrived early today.", "early", "adverb"},
	{"He carefully folded the map.", "carefully", "adverb"},
}

// Builtin returns one of the compiled-in task corpora by name.
func Builtin(name string) (*Task, error) {
	switch name {
	case "plurality":
		return buildTask("plurality", []string{"singular", "plural"}, pluralitySeed)
	case "pos":
		return buildTask("pos", []string{"noun", "verb", "adjective", "adverb"}, posSeed)
	default:
		return nil, fmt.Errorf("unknown builtin task %q", name)
	}
}

func buildTask(name string, labels []string, seeds []seedExample) (*Task, error) {
	task := &Task{Name: name, Labels: labels}
	for i, s := range seeds {
		pos := wordIndex(s.text, s.word)
		if pos < 0 {
			return nil, fmt.Errorf("builtin task %s: word %q not found in %q", name, s.word, s.text)
		}
		task.Examples = append(task.Examples, Example{
			ID:             i,
			Text:           s.text,
			TargetWord:     s.word,
			TargetPosition: pos,
			Label:          s.label,
		})
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

func wordIndex(text, word string) int {
	for i, w := range strings.Fields(text) {
		if stripPunct(w) == word {
			return i
		}
	}
	return -1
}
