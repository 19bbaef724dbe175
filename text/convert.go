package text

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	chapterRegexp = regexp.MustCompile(`\[chapter:([^\]]*)\]`)
	rubyRegexp    = regexp.MustCompile(`\[\[rb:\s*(.*?)\s*>\s*(.*?)\s*\]\]`)
	jumpURIRegexp = regexp.MustCompile(`\[\[jumpuri:\s*(.*?)\s*>\s*.*?\s*\]\]`)
	imageRegexp   = regexp.MustCompile(`\[(?:pixivimage|uploadedimage):[^\]]*\]`)
	jumpRegexp    = regexp.MustCompile(`\[jump:\d+\]`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// ToText converts pixiv novel markup into plain text. It is deterministic,
// best-effort on malformed input, and idempotent on its own output.
func ToText(markup string) string {
	s := markup
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	if strings.Contains(s, "<") {
		s = stripHTML(s)
	}

	s = strings.ReplaceAll(s, "[newpage]", "\n\n")
	s = chapterRegexp.ReplaceAllString(s, "\n\n【$1】\n\n")
	s = rubyRegexp.ReplaceAllString(s, "$1（$2）")
	s = jumpURIRegexp.ReplaceAllString(s, "$1")
	s = imageRegexp.ReplaceAllString(s, "")
	s = jumpRegexp.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")

	s = blankRuns.ReplaceAllString(s, "\n\n")
	s = strings.Trim(s, "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}

func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("script, style, img").Remove()
	doc.Find("br").Each(func(i int, sel *goquery.Selection) {
		sel.ReplaceWithHtml("\n")
	})
	doc.Find("p, div").Each(func(i int, sel *goquery.Selection) {
		sel.AfterHtml("\n\n")
	})

	return doc.Text()
}
