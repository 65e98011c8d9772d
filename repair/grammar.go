package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Grammar decides whether text is well-formed structured data.
type Grammar interface {
	// Name identifies the grammar in errors and metrics.
	Name() string
	// Validate returns nil when text parses, or the parse failure.
	Validate(text string) error
}

// ErrEmpty is returned for blank text by every grammar.
var ErrEmpty = errors.New("repair: empty document")

// JSON accepts a single JSON value.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Validate parses text as exactly one JSON value.
func (JSON) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	offset := dec.InputOffset()
	switch _, err := dec.Token(); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return fmt.Errorf("repair: trailing data after JSON value at offset %d: %w", offset, err)
	default:
		return fmt.Errorf("repair: trailing data after JSON value at offset %d", offset)
	}
}

// YAML accepts a YAML document whose root is a mapping or a sequence. Plain
// scalars are rejected since any prose is a valid YAML string.
type YAML struct{}

// Name returns "yaml".
func (YAML) Name() string { return "yaml" }

// Validate parses text as YAML.
func (YAML) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return ErrEmpty
	}
	switch root := doc.Content[0]; root.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return nil
	default:
		return fmt.Errorf("repair: yaml root is a scalar at line %d, want a mapping or sequence", root.Line)
	}
}

// TOML accepts a TOML document.
type TOML struct{}

// Name returns "toml".
func (TOML) Name() string { return "toml" }

// Validate parses text as TOML.
func (TOML) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	var v map[string]any
	_, err := toml.NewDecoder(strings.NewReader(text)).Decode(&v)
	return err
}

var grammars = map[string]Grammar{
	"json": JSON{},
	"yaml": YAML{},
	"yml":  YAML{},
	"toml": TOML{},
}

// GrammarByName returns the grammar registered under name, case-insensitively.
func GrammarByName(name string) (Grammar, error) {
	g, ok := grammars[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("repair: unknown grammar %q (known: %s)", name, strings.Join(GrammarNames(), ", "))
	}
	return g, nil
}

// GrammarNames lists the accepted grammar names.
func GrammarNames() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
