package exercise

import (
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/luatutor/internal/catalog"
)

// placeholderRE matches a blank such as {{variableName}}. \w is ASCII only,
// so names are letters, digits and underscores.
var placeholderRE = regexp.MustCompile(`\{\{(\w+)\}\}`)

// PlaceholderTokens returns the distinct {{name}} tokens in code, in order of
// first occurrence, braces included.
func PlaceholderTokens(code string) []string {
	matches := placeholderRE.FindAllString(code, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tokens = append(tokens, m)
	}
	return tokens
}

// Placeholders returns the distinct placeholder names in a template, in order
// of first occurrence, without braces.
func Placeholders(template string) []string {
	tokens := PlaceholderTokens(template)
	names := make([]string, len(tokens))
	for i, tok := range tokens {
		names[i] = strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}")
	}
	return names
}

// Hint is a placeholder name paired with its human readable explanation.
type Hint struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Hints lists the hints of an exercise. Placeholders that appear in the
// template come first, in template order; any remaining map entries follow
// sorted by name.
func Hints(ex *catalog.FillInBlank) []Hint {
	if ex == nil {
		return nil
	}
	hints := make([]Hint, 0, len(ex.Placeholders))
	used := make(map[string]struct{}, len(ex.Placeholders))
	for _, name := range Placeholders(ex.Template) {
		if text, ok := ex.Placeholders[name]; ok {
			hints = append(hints, Hint{Name: name, Text: text})
			used[name] = struct{}{}
		}
	}

	rest := make([]string, 0, len(ex.Placeholders)-len(used))
	for name := range ex.Placeholders {
		if _, ok := used[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		hints = append(hints, Hint{Name: name, Text: ex.Placeholders[name]})
	}
	return hints
}

// Lint reports mismatches between an exercise template and its hint map:
// placeholders with no hint and hints with no placeholder. It also flags a
// solution that still contains placeholders.
func Lint(ex *catalog.FillInBlank) []string {
	if ex == nil {
		return nil
	}
	var problems []string
	inTemplate := make(map[string]struct{})
	for _, name := range Placeholders(ex.Template) {
		inTemplate[name] = struct{}{}
		if _, ok := ex.Placeholders[name]; !ok {
			problems = append(problems, "placeholder {{"+name+"}} has no hint")
		}
	}

	var unused []string
	for name := range ex.Placeholders {
		if _, ok := inTemplate[name]; !ok {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	for _, name := range unused {
		problems = append(problems, "hint "+name+" does not match any placeholder")
	}

	if !Enabled(ex.Solution) {
		problems = append(problems, "solution is empty, validation is disabled")
	} else if len(PlaceholderTokens(ex.Solution)) > 0 {
		problems = append(problems, "solution still contains placeholders")
	}
	return problems
}
