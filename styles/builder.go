package styles

import (
	"errors"
	"strings"
	"unicode"
)

// Request is a resolved generation request.
type Request struct {
	Topic  string
	Style  Key
	Prompt string
}

// Builder turns (topic, style) pairs into prompts using a shared Table.
type Builder struct {
	table  *Table
	suffix string
}

// NewBuilder returns a Builder over table. suffix is appended to every prompt;
// pass QualitySuffix for the standard boosters or "" for none.
func NewBuilder(table *Table, suffix string) (*Builder, error) {
	if table == nil {
		return nil, errors.New("styles: table cannot be nil")
	}
	return &Builder{table: table, suffix: suffix}, nil
}

// Table returns the table the builder reads from.
func (b *Builder) Table() *Table {
	return b.table
}

// Validate returns an UnknownStyleError if key is not registered.
func (b *Builder) Validate(key Key) error {
	if !b.table.Has(key) {
		return &UnknownStyleError{Key: key, Known: b.table.Keys()}
	}
	return nil
}

// Build resolves the prompt for topic in style key. The topic is substituted
// verbatim; see ContainsControlChars for callers that need stricter input.
func (b *Builder) Build(topic string, key Key) (Request, error) {
	p, ok := b.table.Lookup(key)
	if !ok {
		return Request{}, &UnknownStyleError{Key: key, Known: b.table.Keys()}
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Request{}, ErrEmptyTopic
	}
	if strings.Contains(topic, Placeholder) {
		return Request{}, ErrPlaceholderInTopic
	}
	prompt := strings.Replace(p.Template, Placeholder, topic, 1) + b.suffix
	return Request{Topic: topic, Style: key, Prompt: prompt}, nil
}

// ContainsControlChars reports whether s contains any Unicode control character.
func ContainsControlChars(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
