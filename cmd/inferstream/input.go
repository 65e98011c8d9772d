package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kbukum/inferstream/repair"
)

// readInput returns the joined args, or all of r when args are empty or "-".
func readInput(args []string, r io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

// readFileOrStdin returns the file contents, or all of stdin for "" or "-".
func readFileOrStdin(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		return readInput(nil, stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseParams turns "name=value" pairs into sampling parameters. Values
// must be booleans or numbers.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("param %q: want name=value", p)
		}
		value = strings.TrimSpace(value)
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			params[name] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[name] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			params[name] = b
		} else {
			return nil, fmt.Errorf("param %q: %q is neither a number nor a boolean", name, value)
		}
	}
	return params, nil
}

// grammarFlag resolves a --grammar value. Empty means no grammar.
func grammarFlag(name string) (repair.Grammar, error) {
	if name == "" {
		return nil, nil
	}
	return repair.GrammarByName(name)
}
