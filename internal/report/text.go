package report

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter writes one line per page:
//
//	#1 https://example.com/about | About
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the entries of c, or a notice when there are none.
func (w *TextWriter) Write(c *Catch) (int, error) {
	var sb strings.Builder

	if len(c.Entries) == 0 {
		fmt.Fprintf(&sb, "No data found by parent=%s\n", c.Parent)
		return io.WriteString(w.output, sb.String())
	}
	for i, e := range c.Entries {
		fmt.Fprintf(&sb, "#%d %s | %s\n", i+1, e.URL, e.Title)
	}
	return io.WriteString(w.output, sb.String())
}
