package mailer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// PlainText extracts a readable text body from an HTML email for clients
// that do not render HTML.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("style, script, head").Remove()

	var parts []string
	doc.Find("h1, h2, h3, p, li, tr").Each(func(_ int, s *goquery.Selection) {
		if s.Is("tr") {
			var cells []string
			s.Find("th, td").Each(func(_ int, c *goquery.Selection) {
				if t := collapse(c.Text()); t != "" {
					cells = append(cells, t)
				}
			})
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
			return
		}
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	if len(parts) == 0 {
		return collapse(doc.Text()), nil
	}
	text := strings.Join(parts, "\n\n")
	return blankLines.ReplaceAllString(text, "\n\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
