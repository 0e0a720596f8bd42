package render

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	headingPrefix = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	blankLines    = regexp.MustCompile(`\n[ \t]*\n+`)
	emphasis      = strings.NewReplacer("**", "", "__", "")
)

// Narrative converts a model reply into plain paragraphs. Markup the model
// was asked not to produce is removed: HTML tags, bold markers and heading
// hashes. An empty reply yields no paragraphs.
func Narrative(text string) []string {
	text = stripHTML(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = headingPrefix.ReplaceAllString(text, "")
	text = emphasis.Replace(text)

	var paras []string
	for _, p := range blankLines.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}
