package crawler

import (
	"testing"
)

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page string
		want string
	}{
		{name: "simple", page: `<html><head><title>Test Page</title></head></html>`, want: "Test Page"},
		{name: "line breaks removed and trimmed", page: "<title>\n  Multi\nLine  \r\n</title>", want: "MultiLine"},
		{name: "first title wins", page: `<title>One</title><title>Two</title>`, want: "One"},
		{name: "missing title", page: `<html><body>no title</body></html>`, want: ""},
		{name: "empty title", page: `<title>   </title>`, want: ""},
		{name: "entities decoded", page: `<title>Tom &amp; Jerry</title>`, want: "Tom & Jerry"},
		{name: "NFC normalized", page: "<title>Cafe\u0301</title>", want: "Caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := parseDocument(tt.page)
			if err != nil {
				t.Fatal(err)
			}
			if got := extractTitle(doc); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{contentType: "text/html", want: true},
		{contentType: "text/html; charset=utf-8", want: true},
		{contentType: "TEXT/HTML", want: true},
		{contentType: "application/xhtml+xml", want: true},
		{contentType: "application/json", want: false},
		{contentType: "image/png", want: false},
		{contentType: ";;", want: false},
	}

	for _, tt := range tests {
		if got := isHTML(tt.contentType); got != tt.want {
			t.Errorf("isHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	// "café" in ISO-8859-1
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	got, err := decodeBody(latin1, "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "café" {
		t.Errorf("expected UTF-8 %q, got %q", "café", got)
	}

	utf8, err := decodeBody([]byte("naïve"), "text/html; charset=utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if utf8 != "naïve" {
		t.Errorf("expected UTF-8 input to pass through, got %q", utf8)
	}
}
