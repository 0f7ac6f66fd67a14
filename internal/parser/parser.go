// Package parser extracts YAML frontmatter from Markdown content.
package parser

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fence = "---"
	bom   = "\ufeff"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
}

// Parse separates frontmatter from body. Malformed frontmatter is not an
// error: invalid YAML leaves Frontmatter nil and the whole input as body.
func Parse(data []byte) *Result {
	text := string(data)
	block, body, ok := cut(text)
	if !ok {
		return &Result{Body: text}
	}
	var fm map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return &Result{Body: text}
	}
	return &Result{Frontmatter: fm, Body: body}
}

// cut splits text into the YAML block between the opening fence on the
// first non-blank line and the next line holding only a fence, and the body
// after it. Lines may end in \r\n.
func cut(text string) (block, body string, ok bool) {
	rest := strings.TrimLeft(strings.TrimPrefix(text, bom), "\r\n")
	first, rest, found := strings.Cut(rest, "\n")
	if !found || strings.TrimRight(first, "\r") != fence {
		return "", "", false
	}

	var lines []string
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r") == fence {
			return strings.Join(lines, "\n"), strings.TrimLeft(rest, "\r\n"), true
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return "", "", false
}
