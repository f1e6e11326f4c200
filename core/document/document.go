// Package document wraps diagram markup in a standalone HTML page.
//
// Pages reference no external resources and contain nothing time- or
// run-dependent, so the same body and title always give the same bytes.
package document

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/FocuswithJustin/colordep/core/errors"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

// TitlePrefix starts every page title.
const TitlePrefix = "Colorful "

// DefaultTitle is used when no title is given.
const DefaultTitle = "Diagram"

type page struct {
	Lang  string
	Title string
	Body  template.HTML
}

// Title normalizes a page title: surrounding space is trimmed, an existing
// TitlePrefix is dropped and an empty title becomes DefaultTitle.
func Title(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimSpace(strings.TrimPrefix(title, TitlePrefix))
	if title == "" {
		return DefaultTitle
	}
	return title
}

// Write renders the page for body to w. body is trusted markup and is
// inserted verbatim.
func Write(w io.Writer, body, title string) error {
	err := pageTemplate.Execute(w, page{
		Lang:  "en",
		Title: Title(title),
		Body:  template.HTML(body), //nolint:gosec // body is renderer output, not user HTML
	})
	if err != nil {
		return errors.NewIO("render", "page", err)
	}
	return nil
}

// Package returns the standalone page for body. The page title reads
// "Colorful <title>".
func Package(body, title string) string {
	var b strings.Builder
	// Writes to a strings.Builder do not fail and the data is fixed-shape.
	_ = Write(&b, body, title)
	return b.String()
}
