package repair

import "strings"

// StripFences removes code-fence wrappers around text.
//
// A fenced block opens with a line of three or more backticks or tildes,
// optionally followed by an info string ("```json"), and closes with a line
// of the same character at least as long. Text before the first block, such
// as a "Here is the JSON:" preamble, is dropped along with anything after the
// block. Wrappers are peeled repeatedly, so doubled fences come off too. An
// opening fence that is never closed is dropped on its own. Text without
// fences is returned trimmed.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	for {
		next, ok := peel(s)
		if !ok {
			return s
		}
		s = strings.TrimSpace(next)
	}
}

// peel removes one fence level and reports whether it found one.
func peel(s string) (string, bool) {
	if inner, ok := inlineFence(s); ok {
		return inner, true
	}

	lines := strings.Split(s, "\n")
	open := -1
	var marker fence
	for i, line := range lines {
		if f, ok := openingFence(line); ok {
			open, marker = i, f
			break
		}
	}
	if open < 0 {
		return s, false
	}

	body := lines[open+1:]
	for j, line := range body {
		if marker.closes(line) {
			return strings.Join(body[:j], "\n"), true
		}
	}
	return strings.Join(body, "\n"), true
}

type fence struct {
	char byte
	n    int
}

// openingFence matches a fence line with an optional info string.
func openingFence(line string) (fence, bool) {
	line = strings.TrimSpace(line)
	f, rest := fenceRun(line)
	if f.n < 3 {
		return fence{}, false
	}
	// Backtick info strings may not contain backticks.
	if f.char == '`' && strings.ContainsRune(rest, '`') {
		return fence{}, false
	}
	return f, true
}

func (f fence) closes(line string) bool {
	c, rest := fenceRun(strings.TrimSpace(line))
	return c.char == f.char && c.n >= f.n && strings.TrimSpace(rest) == ""
}

func fenceRun(line string) (fence, string) {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return fence{}, line
	}
	c := line[0]
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return fence{char: c, n: n}, line[n:]
}

// inlineFence handles a single-line "```{...}```" wrapper.
func inlineFence(s string) (string, bool) {
	if strings.Contains(s, "\n") {
		return "", false
	}
	open, rest := fenceRun(s)
	if open.n < 3 || len(rest) <= open.n {
		return "", false
	}
	end := strings.Repeat(string(open.char), open.n)
	if !strings.HasSuffix(rest, end) {
		return "", false
	}
	inner := strings.TrimSuffix(rest, end)
	// Drop a leading info word glued to the fence, as in ```json{"a":1}```.
	if i := strings.IndexAny(inner, "{[\"'"); i > 0 && isWord(inner[:i]) {
		inner = inner[i:]
	}
	return inner, true
}

func isWord(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ') {
			return false
		}
	}
	return true
}
