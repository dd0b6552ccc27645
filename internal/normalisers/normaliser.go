// Package normalisers turns file contents into indexable plain text.
//
// The format is chosen from the file extension. Markdown and HTML lose
// their markup; every other text format passes through unchanged.
package normalisers

import (
	"path/filepath"
	"strings"
)

// Format names the markup a document was written in.
type Format string

// Known formats.
const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Result is the normalised form of one document.
type Result struct {
	Title  string // Empty when the content carries no title.
	Text   string
	Format Format
}

// FormatFor returns the format implied by the extension of path.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	default:
		return FormatPlain
	}
}

// Normalise extracts the title and text of content read from path.
func Normalise(path, content string) Result {
	switch format := FormatFor(path); format {
	case FormatMarkdown:
		return Result{Title: markdownTitle(content), Text: stripMarkdown(content), Format: format}
	case FormatHTML:
		return Result{Title: htmlTitle(content), Text: stripHTML(content), Format: format}
	default:
		return Result{Text: content, Format: FormatPlain}
	}
}

// TitleFromPath derives a readable title from a file name:
// "release-notes_v2.md" becomes "release notes v2".
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
