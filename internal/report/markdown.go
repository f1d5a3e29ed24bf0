package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs a Catch as a Markdown document with a table of
// pages.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs c in Markdown format.
func (w *MarkdownWriter) Write(c *Catch) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Spider Pages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Parent", "`" + c.Parent + "`"},
			{"Pages", strconv.Itoa(len(c.Entries))},
			{"Limit", strconv.Itoa(c.Limit)},
		},
	})
	md.PlainText("")

	md.H2("Pages")
	md.PlainText("")
	if len(c.Entries) == 0 {
		md.Note("No data found by parent " + c.Parent)
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(c.Entries))
	for i, e := range c.Entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			e.URL,
			orDash(e.Title),
			orDash(shortHash(e.Hash)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Title", "Content Hash"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortHash keeps the first 12 hex digits of a content hash.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
