package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SpaceMarker is the byte-level BPE convention for a leading space inside a
// vocabulary piece (GPT-2 style).
const SpaceMarker = "Ġ"

// Unknown is the ID emitted for characters with no vocabulary entry.
const Unknown = -1

// Token is one sub-word piece with its byte span in the original text.
// A piece that absorbs the preceding space starts at the space byte.
type Token struct {
	ID    int
	Text  string // surface text as it appears in the input, space included
	Start int    // byte offset, inclusive
	End   int    // byte offset, exclusive
}

// Tokenizer is a vocabulary-driven sub-word encoder. It greedily matches the
// longest known piece, which is enough to reproduce the splitting behavior the
// alignment code has to survive: frequent words stay whole, rare words break
// into several pieces.
type Tokenizer struct {
	Tokens []string
	Vocab  map[string]int
}

func New(tokens []string) *Tokenizer {
	vocab := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		vocab[tok] = i
	}
	return &Tokenizer{Tokens: tokens, Vocab: vocab}
}

// NewFromFile loads a vocabulary from a JSON file of the shape
// {"tokens": ["the", "Ġcat", ...]}.
func NewFromFile(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	var raw struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}
	if len(raw.Tokens) == 0 {
		return nil, fmt.Errorf("vocab %s: no tokens", path)
	}
	return New(raw.Tokens), nil
}

// Encode splits text into sub-word tokens with byte offsets. Words keep their
// preceding space attached to the first piece, matching the byte-level BPE
// convention the offsets downstream rely on.
func (t *Tokenizer) Encode(text string) []Token {
	var out []Token

	i := 0
	for i < len(text) {
		if text[i] == ' ' {
			// Space belongs to the next word's first piece. A trailing
			// space with no word after it becomes its own token.
			if i+1 >= len(text) {
				out = append(out, t.emit(" ", SpaceMarker, i, i+1))
				break
			}
			j := i + 1
			for j < len(text) && text[j] != ' ' {
				j++
			}
			out = append(out, t.encodeWord(text[i+1:j], i, true)...)
			i = j
			continue
		}

		j := i
		for j < len(text) && text[j] != ' ' {
			j++
		}
		out = append(out, t.encodeWord(text[i:j], i, false)...)
		i = j
	}
	return out
}

// encodeWord greedily matches vocabulary pieces against one whitespace-free
// word. wordStart is the byte offset of the word itself; when hasSpace is set
// the preceding space at wordStart-1... is folded into the first piece.
func (t *Tokenizer) encodeWord(word string, spanStart int, hasSpace bool) []Token {
	var out []Token

	rest := word
	offset := spanStart
	if hasSpace {
		offset = spanStart + 1
	}
	first := true

	for len(rest) > 0 {
		matched := 0
		matchedID := Unknown
		for l := len(rest); l >= 1; l-- {
			key := rest[:l]
			if first && hasSpace {
				key = SpaceMarker + key
			}
			if id, ok := t.Vocab[key]; ok {
				matched = l
				matchedID = id
				break
			}
			// A sentence-initial word often exists in a byte-level BPE vocab
			// only as its space-marked variant.
			if first && !hasSpace {
				if id, ok := t.Vocab[SpaceMarker+key]; ok {
					matched = l
					matchedID = id
					break
				}
			}
		}
		if matched == 0 {
			// Unknown character, consume one rune's worth of bytes.
			matched = runeLen(rest)
			matchedID = Unknown
		}

		start := offset
		surface := rest[:matched]
		if first && hasSpace {
			start = spanStart // include the space byte
			surface = " " + surface
		}
		out = append(out, Token{ID: matchedID, Text: surface, Start: start, End: offset + matched})

		offset += matched
		rest = rest[matched:]
		first = false
	}
	return out
}

func (t *Tokenizer) emit(surface, piece string, start, end int) Token {
	id := Unknown
	if v, ok := t.Vocab[piece]; ok {
		id = v
	}
	return Token{ID: id, Text: surface, Start: start, End: end}
}

// Decode reassembles the surface text of a sequence of IDs.
func (t *Tokenizer) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if id < 0 || id >= len(t.Tokens) {
			continue
		}
		sb.WriteString(strings.ReplaceAll(t.Tokens[id], SpaceMarker, " "))
	}
	return sb.String()
}

// Piece returns the decoded surface form of a single ID.
func (t *Tokenizer) Piece(id int) string {
	if id < 0 || id >= len(t.Tokens) {
		return ""
	}
	return strings.ReplaceAll(t.Tokens[id], SpaceMarker, " ")
}

func runeLen(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i]&0xC0 != 0x80 {
			return i
		}
	}
	return len(s)
}
