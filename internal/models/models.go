package models

import "time"

// ProductContext holds the fields read from a product page.
// Every field is best effort; absent values are omitted from JSON.
type ProductContext struct {
	Name                    string   `json:"name,omitempty"`
	Price                   string   `json:"price,omitempty"`
	Currency                string   `json:"currency,omitempty"`
	Description             string   `json:"description,omitempty"`
	URL                     string   `json:"url,omitempty"`
	ASIN                    string   `json:"asin,omitempty"`
	Rating                  string   `json:"rating,omitempty"`
	ReviewCount             string   `json:"reviewCount,omitempty"`
	SustainabilityFeatures  []string `json:"sustainabilityFeatures,omitempty"`
	SustainabilityCertified bool     `json:"sustainabilityCertified,omitempty"`
}

// IsEmpty reports whether nothing but the URL was captured.
func (c ProductContext) IsEmpty() bool {
	return c.Name == "" && c.Price == "" && c.Description == "" && c.ASIN == "" &&
		c.Rating == "" && len(c.SustainabilityFeatures) == 0
}

// Product is a stored product page.
type Product struct {
	ProductContext
	PriceValue     float64
	RatingValue    float64
	FirstScrapedAt time.Time
	LastScrapedAt  time.Time
}
