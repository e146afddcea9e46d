package reply

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText flattens answer markup into text. Tags are dropped, entities
// decoded, block elements become line breaks and list items get a bullet.
func PlainText(markup string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(sb.String())
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br":
				sb.WriteString("\n")
			case "li":
				sb.WriteString("\n- ")
			case "p", "div", "ul", "ol", "h1", "h2", "h3", "h4":
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "ul", "ol", "h1", "h2", "h3", "h4":
				sb.WriteString("\n")
			}
		}
	}
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
