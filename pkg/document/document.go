package document

import (
	"bytes"
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"io"
	"strings"
)

// Document is a parsed, read-only HTML page.
type Document struct {
	doc *goquery.Document
}

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

func ParseBytes(raw []byte) (*Document, error) {
	return Parse(bytes.NewReader(raw))
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}
