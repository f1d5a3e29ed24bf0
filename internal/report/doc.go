// Package report renders the pages stored under a parent URL.
//
// Writers exist for three formats:
//   - TextWriter: one "#n url | title" line per page, for terminals
//   - MarkdownWriter: a table built with nao1215/markdown, for sharing
//   - JSONWriter: structured output for other tools
//
// NewWriter selects one by Format name, which is how the catch command
// maps its --format flag.
package report
