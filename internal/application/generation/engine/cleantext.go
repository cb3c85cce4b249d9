package engine

import (
	"regexp"
	"strings"
)

var (
	mdRule     = regexp.MustCompile(`(?m)^[ \t]*(?:[-*_][ \t]*){3,}$`)
	mdHeading  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	mdQuote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	mdBullet   = regexp.MustCompile(`(?m)^[ \t]*[-*+•][ \t]+`)
	mdImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis = regexp.MustCompile("\\*{1,3}|~~|`{1,3}|__")
	trailingWS = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// CleanText 去除 Markdown 修饰，保留纯文本段落
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = mdRule.ReplaceAllString(s, "")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdQuote.ReplaceAllString(s, "")
	s = mdBullet.ReplaceAllString(s, "")
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdEmphasis.ReplaceAllString(s, "")
	s = trailingWS.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
