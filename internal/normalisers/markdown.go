package normalisers

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	mdCodeFence    = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	mdInlineCode   = regexp.MustCompile("`([^`]+)`")
	mdImage        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis     = regexp.MustCompile(`(\*\*|__|\*)([^*_\n]+)(\*\*|__|\*)`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s?`)
	mdRule         = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	mdBullet       = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	mdNumbered     = regexp.MustCompile(`(?m)^(\s*)\d+\.\s+`)
	mdManyNewlines = regexp.MustCompile(`\n{3,}`)
)

// markdownTitle returns the first level-one heading.
func markdownTitle(content string) string {
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// stripMarkdown removes formatting but keeps the words, code included.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = mdCodeFence.ReplaceAllString(content, "$1")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdEmphasis.ReplaceAllString(content, "$2")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "$1")
	content = mdNumbered.ReplaceAllString(content, "$1")
	content = mdManyNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
