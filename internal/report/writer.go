package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/spider/internal/database"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ErrUnknownFormat is returned by NewWriter for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatText), string(FormatMarkdown), string(FormatJSON)}
}

// Catch is the result of looking up the pages saved under a parent URL.
type Catch struct {
	// Parent is the seed URL the pages were crawled from.
	Parent string `json:"parent"`

	// Limit is the maximum number of entries requested.
	Limit int `json:"limit"`

	// Entries are the pages in insertion order.
	Entries []database.Entry `json:"entries"`
}

// Writer renders a Catch.
type Writer interface {
	// Write outputs c and returns the number of bytes written.
	Write(c *Catch) (int, error)
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownFormat, format, Formats())
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
