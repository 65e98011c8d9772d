package repair

import (
	"errors"
	"testing"
)

func TestGrammars(t *testing.T) {
	tests := []struct {
		grammar Grammar
		text    string
		valid   bool
	}{
		{JSON{}, `{"a":1}`, true},
		{JSON{}, `[1, 2, 3]`, true},
		{JSON{}, `"just a string"`, true},
		{JSON{}, `{a: 1, b: [42,43,],}`, false},
		{JSON{}, `{"a":1} {"b":2}`, false},
		{JSON{}, `{"a":`, false},
		{JSON{}, `{"a":1}}`, false},
		{JSON{}, `[1,2]]`, false},
		{JSON{}, `{"a":1}]`, false},
		{JSON{}, "{\"a\":1}\n\t ", true},
		{JSON{}, "   ", false},
		{YAML{}, "a: 1\nb:\n  - 42\n  - 43\n", true},
		{YAML{}, "- x\n- y\n", true},
		{YAML{}, "just some prose", false},
		{YAML{}, "a: [1, 2\nb: 3", false},
		{YAML{}, "", false},
		{TOML{}, "title = \"x\"\n[owner]\nname = \"y\"\n", true},
		{TOML{}, "title = ", false},
		{TOML{}, "a = 1\na = 2\n", false},
		{TOML{}, "\n", false},
	}
	for _, tc := range tests {
		t.Run(tc.grammar.Name()+"/"+tc.text, func(t *testing.T) {
			err := tc.grammar.Validate(tc.text)
			if (err == nil) != tc.valid {
				t.Errorf("Validate(%q) = %v, want valid=%v", tc.text, err, tc.valid)
			}
		})
	}
}

func TestEmptyDocument(t *testing.T) {
	for _, g := range []Grammar{JSON{}, YAML{}, TOML{}} {
		if err := g.Validate(""); !errors.Is(err, ErrEmpty) {
			t.Errorf("%s: Validate(\"\") = %v, want ErrEmpty", g.Name(), err)
		}
	}
}

func TestGrammarByName(t *testing.T) {
	tests := map[string]string{
		"json":   "json",
		"JSON":   "json",
		" yaml ": "yaml",
		"yml":    "yaml",
		"toml":   "toml",
	}
	for in, want := range tests {
		g, err := GrammarByName(in)
		if err != nil {
			t.Errorf("GrammarByName(%q): %v", in, err)
			continue
		}
		if g.Name() != want {
			t.Errorf("GrammarByName(%q).Name() = %q, want %q", in, g.Name(), want)
		}
	}
	if _, err := GrammarByName("xml"); err == nil {
		t.Error("expected error for unknown grammar")
	}
	if names := GrammarNames(); len(names) != 4 || names[0] != "json" {
		t.Errorf("GrammarNames() = %v", names)
	}
}
