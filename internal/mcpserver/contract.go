package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/daymark/internal/extract"
)

// DateSourcesGuide describes how notes are assigned to days. The active
// settings are appended when the resource is read.
const DateSourcesGuide = `# Daymark Date Sources

Daymark indexes the vault by day. Exactly one date source is active.

## metadata-field

A note is dated by a field in its YAML frontmatter:

` + "```" + `markdown
---
date: 2025-09-14
---
` + "```" + `

The value is read with the configured date format. A note lands on at most
one day. Notes whose field is missing or unparsable are not indexed.

## filename

A note is dated by the start of its file name, read with the configured
date format. ` + "`" + `2025-09-14 standup.md` + "`" + ` lands on 2025-09-14 when the format
is ` + "`" + `YYYY-MM-DD` + "`" + `.

## inline-tag-pattern

Every line is scanned for the configured tag pattern, e.g.
` + "`" + `#event/YYYY/MM/DD` + "`" + `. Each match is its own item; the text after the tag
on the same line becomes its caption:

` + "```" + `markdown
- #event/2025/09/14 Buy bread
` + "```" + `

## Formats

Date tokens: ` + "`" + `YYYY` + "`" + ` ` + "`" + `YY` + "`" + ` ` + "`" + `MM` + "`" + ` ` + "`" + `M` + "`" + ` ` + "`" + `MMM` + "`" + ` ` + "`" + `MMMM` + "`" + ` ` + "`" + `DD` + "`" + ` ` + "`" + `D` + "`" + ` ` + "`" + `Do` + "`" + ` (15th).
Weekday and time tokens are accepted too. Text in [brackets] is literal.
Days are always reported as YYYY-MM-DD.
`

func (s *Server) dateSources(_ context.Context) string {
	return DateSourcesGuide + "\n" + activeSettings(s.svc.DateSource())
}

func activeSettings(cfg extract.Config) string {
	var b strings.Builder
	b.WriteString("## Active settings\n\n")
	fmt.Fprintf(&b, "- source: %s\n", cfg.Mode)
	switch cfg.Mode {
	case extract.ModeMetadata:
		fmt.Fprintf(&b, "- field: %s\n- format: %s\n", cfg.YAMLKey, cfg.DateFormat)
	case extract.ModeFilename:
		fmt.Fprintf(&b, "- format: %s\n", cfg.DateFormat)
	case extract.ModeTag:
		fmt.Fprintf(&b, "- pattern: %s\n", cfg.HashtagPattern)
	}
	return b.String()
}
