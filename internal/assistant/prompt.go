package assistant

import (
	"fmt"
	"strings"

	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/vendors"
)

const maxDescription = 400

// BuildPrompt assembles the model prompt from the page the user is on,
// related stored products and the question.
func BuildPrompt(query string, page models.ProductContext, related []models.Product, catalog *vendors.Catalog) string {
	var sb strings.Builder

	sb.WriteString("You are EcoSmart, a shopping assistant that helps people choose eco-friendly products.\n")

	if !page.IsEmpty() {
		sb.WriteString("\nThe user is looking at this product:\n")
		writeProduct(&sb, page)
	}

	if len(related) > 0 {
		sb.WriteString("\nRelated products you know about:\n")
		for i, p := range related {
			fmt.Fprintf(&sb, "%d.\n", i+1)
			writeProduct(&sb, p.ProductContext)
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", query)
	sb.WriteString("\nAnswer in a few short sentences and focus on the environmental impact of the choice.")

	if catalog != nil {
		fmt.Fprintf(&sb,
			" If buying from a local store in %s would be a good option, end the answer with exactly "+
				"\"Find local vendors for <category> products in %s\", where <category> is one of: %s.",
			catalog.City, catalog.City, strings.Join(catalog.Categories(), ", "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeProduct(sb *strings.Builder, p models.ProductContext) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(sb, "- %s: %s\n", label, value)
		}
	}

	line("Name", p.Name)
	line("Price", strings.TrimSpace(p.Currency+p.Price))
	line("Rating", p.Rating)
	line("Reviews", p.ReviewCount)
	line("Description", truncate(p.Description, maxDescription))
	if len(p.SustainabilityFeatures) > 0 {
		line("Sustainability features", strings.Join(p.SustainabilityFeatures, "; "))
	}
	if p.SustainabilityCertified {
		line("Certified", "carries a sustainability features label")
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
