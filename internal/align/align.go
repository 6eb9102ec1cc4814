package align

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/23skdu/layerlens/internal/tokenizer"
)

// Alignment is the contiguous sub-word token span covering the target word.
// The probe reads activations at TokenEnd-1: when a word splits into several
// pieces, the last piece has attended to the whole word and is the
// conventional probing site.
type Alignment struct {
	TokenStart int
	TokenEnd   int // exclusive
}

// Site is the token index the probe extracts at.
func (a Alignment) Site() int { return a.TokenEnd - 1 }

// AlignmentError marks a single example whose target word could not be
// resolved to a token span. It is recoverable: the caller drops the example
// and continues.
type AlignmentError struct {
	Word   string
	Pos    int
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("align %q at word %d: %s", e.Word, e.Pos, e.Reason)
}

// Resolve maps the word at whitespace index wordPos to its sub-word token
// span. Disambiguation is positional: a word occurring several times in the
// text resolves through its word index, never through the first textual match.
func Resolve(text, targetWord string, wordPos int, tokens []tokenizer.Token) (Alignment, error) {
	fields, offsets := fieldsWithOffsets(text)
	if wordPos < 0 || wordPos >= len(fields) {
		return Alignment{}, &AlignmentError{Word: targetWord, Pos: wordPos,
			Reason: fmt.Sprintf("position out of range (%d words)", len(fields))}
	}

	field := fields[wordPos]
	idx := strings.Index(field, targetWord)
	if idx < 0 {
		// Tolerate case drift between the dataset and the raw text.
		idx = strings.Index(strings.ToLower(field), strings.ToLower(targetWord))
	}
	if idx < 0 {
		return Alignment{}, &AlignmentError{Word: targetWord, Pos: wordPos,
			Reason: fmt.Sprintf("word at position is %q", field)}
	}

	wordStart := offsets[wordPos] + idx
	wordEnd := wordStart + len(targetWord)

	start, end := -1, -1
	for i, tk := range tokens {
		if tk.End <= wordStart || tk.Start >= wordEnd {
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
	}
	if start < 0 {
		return Alignment{}, &AlignmentError{Word: targetWord, Pos: wordPos,
			Reason: "no token overlaps the word span"}
	}
	return Alignment{TokenStart: start, TokenEnd: end}, nil
}

// fieldsWithOffsets is strings.Fields plus the byte offset of each field. It
// must agree with strings.Fields on what separates words, so tabs and newlines
// split here too.
func fieldsWithOffsets(text string) ([]string, []int) {
	var fields []string
	var offsets []int

	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				fields = append(fields, text[start:i])
				offsets = append(offsets, start)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, text[start:])
		offsets = append(offsets, start)
	}
	return fields, offsets
}
