package styles

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table is an immutable preset table. The zero value is empty; use TableBuilder.
type Table struct {
	presets map[Key]Preset
	order   []Key
}

// Lookup returns the preset registered under key.
func (t *Table) Lookup(key Key) (Preset, bool) {
	if t == nil {
		return Preset{}, false
	}
	p, ok := t.presets[key]
	return p, ok
}

// Has reports whether key is registered.
func (t *Table) Has(key Key) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Len returns the number of presets.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.presets)
}

// Keys returns the registered keys sorted alphabetically.
func (t *Table) Keys() []Key {
	if t == nil {
		return nil
	}
	keys := make([]Key, 0, len(t.presets))
	for k := range t.presets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Presets returns the presets in registration order.
func (t *Table) Presets() []Preset {
	if t == nil {
		return nil
	}
	out := make([]Preset, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.presets[k])
	}
	return out
}

// Preview renders the template for key with sample in place of the topic,
// truncated to maxLen runes (0 means no limit).
func (t *Table) Preview(key Key, sample string, maxLen int) (string, error) {
	p, ok := t.Lookup(key)
	if !ok {
		return "", &UnknownStyleError{Key: key, Known: t.Keys()}
	}
	text := strings.Replace(p.Template, Placeholder, sample, 1)
	if maxLen > 0 {
		if runes := []rune(text); len(runes) > maxLen {
			text = string(runes[:maxLen]) + "..."
		}
	}
	return text, nil
}

// TableBuilder assembles a Table. It is not safe for concurrent use and must
// finish before any Builder is constructed.
type TableBuilder struct {
	presets map[Key]Preset
	order   []Key
	errs    []error
}

// NewTableBuilder returns an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{presets: make(map[Key]Preset)}
}

// WithDefaults registers the built-in presets.
func (b *TableBuilder) WithDefaults() *TableBuilder {
	for _, p := range DefaultPresets() {
		b.Register(p)
	}
	return b
}

// Register adds or replaces a preset.
func (b *TableBuilder) Register(p Preset) *TableBuilder {
	p.Key = Key(strings.TrimSpace(string(p.Key)))
	if p.Key == "" {
		b.errs = append(b.errs, errors.New("styles: preset key cannot be empty"))
		return b
	}
	if _, exists := b.presets[p.Key]; !exists {
		b.order = append(b.order, p.Key)
	}
	b.presets[p.Key] = p
	return b
}

// presetFile is the on-disk layout of a custom presets file.
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadYAML registers the presets found in the YAML file at path.
// An empty path is a no-op.
func (b *TableBuilder) LoadYAML(path string) *TableBuilder {
	if path == "" {
		return b
	}
	data, err := os.ReadFile(path)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("styles: read presets file: %w", err))
		return b
	}
	return b.LoadYAMLBytes(data)
}

// LoadYAMLBytes registers the presets in data.
func (b *TableBuilder) LoadYAMLBytes(data []byte) *TableBuilder {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		b.errs = append(b.errs, fmt.Errorf("styles: parse presets file: %w", err))
		return b
	}
	for _, p := range file.Presets {
		b.Register(p)
	}
	return b
}

// Build validates every template and returns the frozen table.
func (b *TableBuilder) Build() (*Table, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.presets) == 0 {
		return nil, errors.New("styles: table has no presets")
	}

	t := &Table{
		presets: make(map[Key]Preset, len(b.presets)),
		order:   make([]Key, len(b.order)),
	}
	copy(t.order, b.order)
	for _, k := range b.order {
		p := b.presets[k]
		if err := validateTemplate(p.Template); err != nil {
			return nil, fmt.Errorf("%w: style %q: %v", ErrInvalidTemplate, k, err)
		}
		t.presets[k] = p
	}
	return t, nil
}

func validateTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return errors.New("template is empty")
	}
	if n := strings.Count(tmpl, Placeholder); n != 1 {
		return fmt.Errorf("template must contain %s exactly once, found %d", Placeholder, n)
	}
	return nil
}
