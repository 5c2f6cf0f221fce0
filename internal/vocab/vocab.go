// Package vocab maps (field, value) pairs to integer tokens and back.
package vocab

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Special namespace and reserved tokens. Specials are always assigned first,
// so EOS is token 0.
const (
	SpecialField = "special"
	EOS          = "[EOS]"
	PAD          = "[PAD]"
	UNK          = "[UNK]"
)

var specials = []string{EOS, PAD, UNK}

// UnknownTokenError reports a value with no vocabulary entry for its field.
type UnknownTokenError struct {
	Field string
	Value string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("no token for %s=%q", e.Field, e.Value)
}

// Entry is the (field, value) pair behind a token.
type Entry struct {
	Field string
	Value string
}

// Vocab is an ordered vocabulary grouped by field.
// It is safe for concurrent reads once built.
type Vocab struct {
	fields  []string
	byField map[string]map[string]int
	entries []Entry
}

// New returns a vocabulary holding only the special tokens.
func New() *Vocab {
	v := &Vocab{byField: make(map[string]map[string]int)}
	for _, s := range specials {
		v.Add(SpecialField, s)
	}
	return v
}

// Add registers value under field and returns its token. Adding an existing
// pair returns the existing token.
func (v *Vocab) Add(field, value string) int {
	values, ok := v.byField[field]
	if !ok {
		values = make(map[string]int)
		v.byField[field] = values
		v.fields = append(v.fields, field)
	}
	if tok, ok := values[value]; ok {
		return tok
	}
	tok := len(v.entries)
	values[value] = tok
	v.entries = append(v.entries, Entry{Field: field, Value: value})
	return tok
}

// FieldToToken returns the token for value under field.
func (v *Vocab) FieldToToken(field, value string) (int, error) {
	if tok, ok := v.byField[field][value]; ok {
		return tok, nil
	}
	return 0, &UnknownTokenError{Field: field, Value: value}
}

// TokenToField returns the (field, value) pair behind tok.
func (v *Vocab) TokenToField(tok int) (Entry, error) {
	if tok < 0 || tok >= len(v.entries) {
		return Entry{}, fmt.Errorf("token %d out of range [0, %d)", tok, len(v.entries))
	}
	return v.entries[tok], nil
}

// EOSToken returns the reserved end-of-sequence value in the special namespace.
func (v *Vocab) EOSToken() string {
	return EOS
}

// Len returns the number of tokens.
func (v *Vocab) Len() int {
	return len(v.entries)
}

// Fields returns field names in the order they were first added.
func (v *Vocab) Fields() []string {
	return append([]string(nil), v.fields...)
}

// Values returns the values of field in token order.
func (v *Vocab) Values(field string) []string {
	var out []string
	for _, e := range v.entries {
		if e.Field == field {
			out = append(out, e.Value)
		}
	}
	return out
}

// file is the on-disk YAML layout.
type file struct {
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// Load reads a vocabulary file. Tokens are assigned in file order after the
// special tokens.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}
	v := New()
	for _, field := range f.Fields {
		for _, value := range field.Values {
			v.Add(field.Name, value)
		}
	}
	return v, nil
}

// Save writes the vocabulary so that Load reproduces the same token ids.
// Fields added in interleaved order are written as consecutive runs.
func (v *Vocab) Save(path string) error {
	var f file
	for _, e := range v.entries[len(specials):] {
		if n := len(f.Fields); n > 0 && f.Fields[n-1].Name == e.Field {
			f.Fields[n-1].Values = append(f.Fields[n-1].Values, e.Value)
			continue
		}
		f.Fields = append(f.Fields, fileField{Name: e.Field, Values: []string{e.Value}})
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
