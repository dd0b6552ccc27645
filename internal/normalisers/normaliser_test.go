package normalisers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"README.md", FormatMarkdown},
		{"notes.MARKDOWN", FormatMarkdown},
		{"index.html", FormatHTML},
		{"page.htm", FormatHTML},
		{"main.go", FormatPlain},
		{"stdin", FormatPlain},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFor(tt.path))
		})
	}
}

func TestNormalise_Markdown(t *testing.T) {
	content := "# Release Plan\n\nShip **v2** with [docs](https://example.com).\n\n" +
		"- first item\n1. numbered\n\n> quoted\n\n---\n\n```go\nfmt.Println(\"hi\")\n```\n"

	res := Normalise("plan.md", content)

	assert.Equal(t, FormatMarkdown, res.Format)
	assert.Equal(t, "Release Plan", res.Title)
	assert.Contains(t, res.Text, "Release Plan")
	assert.Contains(t, res.Text, "Ship v2 with docs.")
	assert.Contains(t, res.Text, "first item")
	assert.Contains(t, res.Text, "numbered")
	assert.Contains(t, res.Text, "quoted")
	assert.Contains(t, res.Text, `fmt.Println("hi")`)
	assert.NotContains(t, res.Text, "https://example.com")
	assert.NotContains(t, res.Text, "```")
	assert.NotContains(t, res.Text, "---")
}

func TestNormalise_MarkdownWithoutHeading(t *testing.T) {
	res := Normalise("notes.md", "## Only a subheading\n\nbody")
	assert.Empty(t, res.Title)
	assert.Equal(t, "Only a subheading\n\nbody", res.Text)
}

func TestNormalise_HTML(t *testing.T) {
	content := `<html><head><title>Test &amp; Page</title><style>p{}</style></head>
<body><!-- nav --><h1>Heading</h1><p>Hello   <b>World</b></p><script>alert(1)</script>
<ul><li>one</li><li>two</li></ul>line<br/>break</body></html>`

	res := Normalise("page.html", content)

	assert.Equal(t, FormatHTML, res.Format)
	assert.Equal(t, "Test & Page", res.Title)
	assert.Equal(t, "Heading\nHello World\none\ntwo\nline\nbreak", res.Text)
}

func TestNormalise_HTMLWithoutTitle(t *testing.T) {
	res := Normalise("frag.htm", "<p>fragment</p>")
	assert.Empty(t, res.Title)
	assert.Equal(t, "fragment", res.Text)
}

func TestNormalise_PlainPassesThrough(t *testing.T) {
	content := "  keep *this* # as is\n"
	res := Normalise("notes.txt", content)
	assert.Equal(t, FormatPlain, res.Format)
	assert.Empty(t, res.Title)
	assert.Equal(t, content, res.Text)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "release notes v2", TitleFromPath("/docs/release-notes_v2.md"))
	assert.Equal(t, "README", TitleFromPath("README"))
}
