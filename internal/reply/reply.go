// Package reply interprets answers from the query service.
package reply

import (
	"regexp"
	"strings"
)

var (
	reVendorIntent = regexp.MustCompile(`(?i)Find local vendors for (\w+) products`)
	reVendorLead   = regexp.MustCompile(`(?i)Find local vendors`)
)

// Intent is an answer split around its vendor call to action.
type Intent struct {
	Category string
	Lead     string
}

// ParseVendorIntent detects "Find local vendors for <category> products".
// The category is lowercased. Lead is the text before the call to action,
// or the whole answer when nothing precedes it.
func ParseVendorIntent(answer string) (Intent, bool) {
	m := reVendorIntent.FindStringSubmatch(answer)
	if m == nil {
		return Intent{}, false
	}

	lead := answer
	if loc := reVendorLead.FindStringIndex(answer); loc != nil {
		if before := strings.TrimSpace(answer[:loc[0]]); before != "" {
			lead = before
		}
	}

	return Intent{Category: strings.ToLower(m[1]), Lead: lead}, true
}

// Rendered is an answer ready for display.
type Rendered struct {
	Text   string
	Intent *Intent
}

// Render applies the vendor pattern; answers without it pass unchanged.
func Render(answer string) Rendered {
	if in, ok := ParseVendorIntent(answer); ok {
		return Rendered{Text: in.Lead, Intent: &in}
	}
	return Rendered{Text: answer}
}
