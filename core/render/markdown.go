// Package render provides optional per-page export renderers.
// This file implements the Markdown renderer: the document record's
// sections already carry canonical Markdown, so rendering is mostly
// reassembly under the page title.
package render

import (
	"strings"

	"github.com/gaurav-prasanna/confpipe/core"
)

// MarkdownRenderer writes a page as a single Markdown file.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render reassembles the page's sections into one Markdown document.
func (r *MarkdownRenderer) Render(doc *core.DocumentRecord) ([]byte, error) {
	var b strings.Builder
	if doc.Title != "" {
		b.WriteString("# " + doc.Title + "\n")
	}

	for _, sec := range doc.Sections {
		if sec.HeadingText != "" {
			level := sec.HeadingLevel
			if level < 1 {
				level = 1
			}
			b.WriteString("\n" + strings.Repeat("#", level) + " " + sec.HeadingText + "\n")
		}
		if sec.BodyMD != "" {
			b.WriteString("\n" + sec.BodyMD + "\n")
		}
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
