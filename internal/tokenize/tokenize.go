// Package tokenize turns bucketed sessions into chunked token sequences.
package tokenize

import (
	"fmt"

	"github.com/giannimassi/ehrtok/pkg/model"
)

// SpecialField is the vocabulary namespace holding the end-of-sequence token.
const SpecialField = "special"

// Vocabulary resolves (field, value) pairs to tokens.
type Vocabulary interface {
	FieldToToken(field, value string) (int, error)
	EOSToken() string
}

// Tokenizer flattens sessions in a fixed column order.
type Tokenizer struct {
	vocab     Vocabulary
	columns   []string
	maxLength int
}

// New returns a Tokenizer for columns (user, time bucket, event types...).
// maxLength 0 disables chunking; otherwise it must allow at least one token
// per chunk.
func New(vocab Vocabulary, columns []string, maxLength int) (*Tokenizer, error) {
	if len(columns) < 2 {
		return nil, fmt.Errorf("need user and time columns, got %d columns", len(columns))
	}
	if maxLength < 0 {
		return nil, fmt.Errorf("max length must not be negative, got %d", maxLength)
	}
	if maxLength > 0 && ChunkSize(maxLength, len(columns)) < 1 {
		return nil, fmt.Errorf("max length %d is smaller than the %d tokenized columns", maxLength, len(columns))
	}
	return &Tokenizer{vocab: vocab, columns: columns, maxLength: maxLength}, nil
}

// Columns returns the tokenized column order.
func (t *Tokenizer) Columns() []string {
	return t.columns
}

// Tokenize returns one token per (event, column) in row-major order followed
// by a single end-of-sequence token.
func (t *Tokenizer) Tokenize(s model.Session) ([]int, error) {
	tokens := make([]int, 0, len(s)*len(t.columns)+1)
	for i, e := range s {
		values := e.Values()
		if len(values) != len(t.columns) {
			return nil, fmt.Errorf("event %d has %d values for %d columns", i, len(values), len(t.columns))
		}
		for c, col := range t.columns {
			tok, err := t.vocab.FieldToToken(col, values[c])
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			tokens = append(tokens, tok)
		}
	}
	eos, err := t.vocab.FieldToToken(SpecialField, t.vocab.EOSToken())
	if err != nil {
		return nil, fmt.Errorf("end of sequence: %w", err)
	}
	return append(tokens, eos), nil
}

// Sequence tokenizes s and splits the result into chunks.
func (t *Tokenizer) Sequence(s model.Session) (model.Sequence, error) {
	tokens, err := t.Tokenize(s)
	if err != nil {
		return nil, err
	}
	return Chunk(tokens, t.maxLength, len(t.columns)), nil
}

// ChunkSize is the window size for maxLength: maxLength / numColumns.
func ChunkSize(maxLength, numColumns int) int {
	if numColumns <= 0 {
		return 0
	}
	return maxLength / numColumns
}

// Chunk splits tokens into consecutive windows of ChunkSize(maxLength,
// numColumns); the last window may be shorter. With maxLength <= 0, or a
// window smaller than one token, the whole list is a single chunk.
func Chunk(tokens []int, maxLength, numColumns int) model.Sequence {
	size := ChunkSize(maxLength, numColumns)
	if maxLength <= 0 || size < 1 || len(tokens) <= size {
		return model.Sequence{tokens}
	}
	out := make(model.Sequence, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		out = append(out, tokens[start:end:end])
	}
	return out
}
