package normalisers

import (
	"html"
	"regexp"
	"strings"
)

// Compiled once; HTML pages can be large.
var (
	htmlTitleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlDropped  = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg\b[^>]*>.*?</svg>`),
	}
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlBlockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBreak      = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	htmlSpaces     = regexp.MustCompile(`[ \t]+`)
)

func htmlTitle(content string) string {
	m := htmlTitleTag.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// stripHTML returns the visible text, one block element per line.
func stripHTML(content string) string {
	for _, re := range htmlDropped {
		content = re.ReplaceAllString(content, "")
	}
	content = htmlComment.ReplaceAllString(content, "")
	content = htmlBlockOpen.ReplaceAllString(content, "\n")
	content = htmlBlockClose.ReplaceAllString(content, "\n")
	content = htmlBreak.ReplaceAllString(content, "\n")
	content = htmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = htmlSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
