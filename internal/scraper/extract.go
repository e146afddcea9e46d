package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/models"
)

var reASIN = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

// ExtractHTML parses a page and reads its product context.
func ExtractHTML(html, pageURL string, sel config.Selectors) (models.ProductContext, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ProductContext{URL: pageURL}, eris.Wrap(err, "scraper: parse HTML")
	}
	return Extract(doc, pageURL, sel), nil
}

// Extract reads the product context from a parsed page. Each field is
// independent of the others; missing elements leave the field empty.
func Extract(doc *goquery.Document, pageURL string, sel config.Selectors) models.ProductContext {
	pc := models.ProductContext{
		Name:        firstText(doc.Selection, sel.Title),
		Price:       firstText(doc.Selection, sel.Price),
		Currency:    firstText(doc.Selection, sel.Currency),
		Rating:      firstText(doc.Selection, sel.Rating),
		ReviewCount: firstText(doc.Selection, sel.ReviewCount),
		URL:         pageURL,
		ASIN:        ExtractASIN(pageURL),
	}

	for _, s := range sel.Description {
		if text := firstText(doc.Selection, s); text != "" {
			pc.Description = text
			break
		}
	}

	if features, found := sustainabilityFeatures(doc, sel); found {
		pc.SustainabilityFeatures = features
		pc.SustainabilityCertified = true
	}

	return pc
}

// ExtractASIN returns the 10-character product identifier following /dp/
// in the URL path, or "" when there is none.
func ExtractASIN(pageURL string) string {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		path = u.Path
	}
	m := reASIN.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsRetailHost reports whether the page belongs to the expected retail domain.
func IsRetailHost(pageURL, retailHost string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || retailHost == "" {
		return false
	}
	return strings.Contains(strings.ToLower(u.Hostname()), strings.ToLower(retailHost))
}

func firstText(root *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(root.Find(selector).First().Text())
}

// sustainabilityFeatures finds the innermost element mentioning the phrase
// and collects the item texts of its nearest enclosing div.
func sustainabilityFeatures(doc *goquery.Document, sel config.Selectors) ([]string, bool) {
	phrase := strings.ToLower(sel.SustainabilityPhrase)
	if phrase == "" {
		return nil, false
	}

	mentions := func(s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), phrase)
	}

	var heading *goquery.Selection
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("script, style, noscript") || !mentions(s) {
			return true
		}
		innermost := true
		s.Children().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if mentions(c) {
				innermost = false
				return false
			}
			return true
		})
		if innermost {
			heading = s
			return false
		}
		return true
	})
	if heading == nil {
		return nil, false
	}

	features := []string{}
	container := heading.Closest("div")
	if container.Length() == 0 {
		return features, true
	}
	container.Find(sel.SustainabilityItems).Each(func(_ int, item *goquery.Selection) {
		if text := strings.TrimSpace(item.Text()); text != "" {
			features = append(features, text)
		}
	})
	return features, true
}

// ToProduct converts a scraped context into a storable product.
func ToProduct(pc models.ProductContext) models.Product {
	return models.Product{
		ProductContext: pc,
		PriceValue:     parsePrice(pc.Price),
		RatingValue:    parseRating(pc.Rating),
	}
}

var (
	rePrice  = regexp.MustCompile(`[^\d\.]+`)
	reRating = regexp.MustCompile(`\d+(\.\d+)?`)
)

func parsePrice(priceStr string) float64 {
	val := strings.TrimSuffix(rePrice.ReplaceAllString(priceStr, ""), ".")
	price, _ := strconv.ParseFloat(val, 64)
	return price
}

func parseRating(ratingStr string) float64 {
	m := reRating.FindString(ratingStr)
	rating, _ := strconv.ParseFloat(m, 64)
	return rating
}
